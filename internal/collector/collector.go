package collector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"FxSentinel/internal/model"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrDataUnavailable is returned when either bar stream could not be obtained.
var ErrDataUnavailable = errors.New("market data unavailable")

// Collector fetches both bar streams for an instrument and cleans them for analysis.
type Collector struct {
	Fetcher Fetcher
	logger  zerolog.Logger
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher) *Collector {
	return &Collector{
		Fetcher: fetcher,
		logger:  log.With().Str("component", "collector").Str("source", fetcher.Name()).Logger(),
	}
}

// Collect fetches the hourly and five-minute bars for symbol as of now. Bars still
// forming at now and malformed bars are dropped.
func (c *Collector) Collect(ctx context.Context, symbol string, now time.Time) (model.BarSet, error) {
	set := model.BarSet{Symbol: symbol, FetchedAt: now}

	hourly, err := c.fetch(ctx, symbol, model.ResolutionHourly, now)
	if err != nil {
		return set, err
	}
	fiveMin, err := c.fetch(ctx, symbol, model.ResolutionFiveMinute, now)
	if err != nil {
		return set, err
	}

	set.Hourly = hourly
	set.FiveMin = fiveMin
	return set, nil
}

func (c *Collector) fetch(ctx context.Context, symbol string, res model.Resolution, now time.Time) ([]model.Bar, error) {
	raw, err := c.Fetcher.FetchBars(ctx, symbol, res)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrDataUnavailable, symbol, res, err)
	}

	bars, dropped := Clean(raw, res, now)
	if dropped > 0 {
		c.logger.Debug().Str("symbol", symbol).Str("resolution", string(res)).
			Int("dropped", dropped).Msg("dropped unusable bars")
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: %s %s: no completed bars", ErrDataUnavailable, symbol, res)
	}
	return bars, nil
}

// Clean sorts bars oldest first and removes duplicates, malformed bars and bars that
// have not closed at now. It returns the kept bars and how many were dropped.
func Clean(bars []model.Bar, res model.Resolution, now time.Time) ([]model.Bar, int) {
	sorted := make([]model.Bar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	out := sorted[:0]
	for _, b := range sorted {
		if !Valid(b) {
			continue
		}
		if !now.IsZero() && b.Time.Add(res.Duration()).After(now) {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Time.Equal(b.Time) {
			out[n-1] = b // later duplicate wins
			continue
		}
		out = append(out, b)
	}
	return out, len(bars) - len(out)
}

// Valid reports whether a bar is internally consistent.
func Valid(b model.Bar) bool {
	for _, v := range []float64{b.Open, b.High, b.Low, b.Close} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return false
		}
	}
	if b.High < b.Low {
		return false
	}
	return b.Open >= b.Low && b.Open <= b.High && b.Close >= b.Low && b.Close <= b.High
}
