package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"FxSentinel/internal/model"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Publisher makes the latest snapshots available to out-of-process consumers.
type Publisher interface {
	Publish(ctx context.Context, states []model.SignalState) error
	Close() error
}

// Noop is used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, []model.SignalState) error { return nil }
func (Noop) Close() error                                         { return nil }

// RedisOptions configures a RedisPublisher.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// RedisPublisher stores each snapshot as JSON under <prefix><instrument> and announces
// the cycle on <prefix>updates.
type RedisPublisher struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRedisPublisher connects to Redis and verifies the connection.
func NewRedisPublisher(ctx context.Context, opts RedisOptions) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return newRedisPublisher(client, opts), nil
}

func newRedisPublisher(client *redis.Client, opts RedisOptions) *RedisPublisher {
	return &RedisPublisher{
		client: client,
		prefix: opts.Prefix,
		ttl:    opts.TTL,
		logger: log.With().Str("component", "publisher").Str("addr", opts.Addr).Logger(),
	}
}

func (p *RedisPublisher) Key(instrument string) string {
	return p.prefix + instrument
}

func (p *RedisPublisher) Channel() string {
	return p.prefix + "updates"
}

// Publish writes all snapshots in one pipeline.
func (p *RedisPublisher) Publish(ctx context.Context, states []model.SignalState) error {
	if len(states) == 0 {
		return nil
	}

	names := make([]string, 0, len(states))
	_, err := p.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, s := range states {
			data, err := json.Marshal(s)
			if err != nil {
				return fmt.Errorf("marshal %s: %w", s.Instrument, err)
			}
			pipe.Set(ctx, p.Key(s.Instrument), data, p.ttl)
			names = append(names, s.Instrument)
		}
		update, err := json.Marshal(names)
		if err != nil {
			return err
		}
		pipe.Publish(ctx, p.Channel(), update)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	p.logger.Debug().Int("instruments", len(names)).Msg("snapshots published")
	return nil
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
