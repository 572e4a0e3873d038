package main

import (
	"context"
	"fmt"

	"FxSentinel/internal/collector"
	"FxSentinel/internal/config"
	"FxSentinel/internal/notifier"
	"FxSentinel/internal/publisher"
	"FxSentinel/internal/recorder"
	"FxSentinel/internal/scheduler"
	"FxSentinel/internal/state"
	"FxSentinel/internal/strategy"

	"github.com/rs/zerolog/log"
)

// app holds the long-lived collaborators of the daemon.
type app struct {
	table    *state.Table
	orch     *scheduler.Orchestrator
	telegram *notifier.TelegramNotifier
	rec      recorder.Recorder
	pub      publisher.Publisher
}

func newTable(cfg *config.Config) *state.Table {
	return state.NewTable(strategy.WithSwingHistory(cfg.Engine.SwingHistory))
}

func newBarSource(cfg *config.Config) (*collector.Collector, error) {
	var fetcher collector.Fetcher
	switch cfg.DataSource.Provider {
	case "yahoo":
		fetcher = collector.NewYahooFetcher(cfg.Proxy)
	case "twelvedata":
		fetcher = collector.NewTwelveDataFetcher(cfg.DataSource.APIKey, cfg.Proxy, cfg.DataSource.RequestsPerMin)
	case "mock":
		fetcher = &collector.MockFetcher{Price: 1.1}
	default:
		return nil, fmt.Errorf("unknown data provider %q", cfg.DataSource.Provider)
	}
	log.Info().Str("source", fetcher.Name()).Msg("data source selected")
	return collector.NewCollector(fetcher), nil
}

// buildApp wires the daemon. Optional collaborators fall back to no-ops when their
// setup fails, so the signal loop always starts.
func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	src, err := newBarSource(cfg)
	if err != nil {
		return nil, err
	}

	a := &app{
		table: newTable(cfg),
		rec:   recorder.NewNoopRecorder(),
		pub:   publisher.Noop{},
	}

	var notif notifier.Notifier = notifier.Noop{}
	if cfg.TelegramEnabled() {
		tn, err := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		if err != nil {
			log.Warn().Err(err).Msg("init telegram failed, status updates disabled")
		} else {
			a.telegram = tn
			notif = tn
		}
	} else {
		log.Info().Msg("telegram not configured, status updates disabled")
	}

	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		} else {
			a.rec = sr
		}
	}

	if cfg.Redis.Addr != "" {
		rp, err := publisher.NewRedisPublisher(ctx, publisher.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
			TTL:      cfg.Redis.TTL,
		})
		if err != nil {
			log.Warn().Err(err).Msg("init redis publisher failed, using noop")
		} else {
			a.pub = rp
		}
	}

	a.orch = scheduler.NewOrchestrator(cfg.Instruments, src, a.table,
		scheduler.WithNotifier(notif),
		scheduler.WithRecorder(a.rec),
		scheduler.WithPublisher(a.pub),
		scheduler.WithWorkers(cfg.Schedule.Workers),
		scheduler.WithCycleTimeout(cfg.Schedule.CycleTimeout),
	)
	return a, nil
}

func (a *app) Close() {
	if err := a.rec.Close(); err != nil {
		log.Error().Err(err).Msg("close recorder")
	}
	if err := a.pub.Close(); err != nil {
		log.Error().Err(err).Msg("close publisher")
	}
}
