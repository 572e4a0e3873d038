package strategy

import (
	"errors"
	"time"

	"FxSentinel/internal/calculator"
	"FxSentinel/internal/model"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Option configures an Engine.
type Option func(*Engine)

// WithSwingHistory bounds the number of retained swings.
func WithSwingHistory(k int) Option {
	return func(e *Engine) { e.swingCap = k }
}

// WithLogger replaces the engine logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// Engine runs the hourly and five-minute analyzers for a single instrument and
// aggregates their output. It is not safe for concurrent use.
type Engine struct {
	instrument string
	pip        float64
	swingCap   int

	trend      *TrendTracker
	swings     *SwingAnalyzer
	volatility *VolatilityClassifier

	currentPrice   float64
	priceChange    float64
	priceChangePct float64
	lastUpdate     time.Time

	logger zerolog.Logger
}

// NewEngine creates an engine for the instrument. The pip threshold is fixed here.
func NewEngine(instrument string, opts ...Option) *Engine {
	e := &Engine{
		instrument: instrument,
		pip:        calculator.PipThreshold(instrument),
		swingCap:   DefaultSwingHistory,
		logger:     log.With().Str("component", "engine").Str("instrument", instrument).Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.trend = NewTrendTracker()
	e.swings = NewSwingAnalyzer(e.pip, e.swingCap)
	e.volatility = NewVolatilityClassifier(e.pip)
	return e
}

func (e *Engine) Instrument() string { return e.instrument }
func (e *Engine) PipThreshold() float64 { return e.pip }

// Analyze feeds both streams through the analyzers and returns the resulting snapshot.
// Sub-analyses without enough bars keep their previous state.
func (e *Engine) Analyze(hourly, fiveMin []model.Bar, at time.Time) model.SignalState {
	e.updatePrice(hourly)

	if n, err := e.trend.Update(hourly, e.swings); err != nil {
		e.absorb("hourly", len(hourly), err)
	} else if n > 0 {
		e.logger.Debug().Int("bars", n).Str("sign", string(e.trend.state.Sign)).Msg("hourly bars consumed")
	}

	if err := e.volatility.Classify(fiveMin); err != nil {
		e.absorb("five_minute", len(fiveMin), err)
	}

	e.lastUpdate = at
	return e.Snapshot()
}

// Snapshot returns a copy of the aggregate state.
func (e *Engine) Snapshot() model.SignalState {
	return model.SignalState{
		Instrument:     e.instrument,
		CurrentPrice:   e.currentPrice,
		PriceChange:    e.priceChange,
		PriceChangePct: e.priceChangePct,
		PipThreshold:   e.pip,
		Trend:          e.trend.State(),
		Volatility:     e.volatility.State(),
		Swings:         e.swings.History(),
		LastUpdate:     e.lastUpdate,
	}
}

func (e *Engine) updatePrice(hourly []model.Bar) {
	n := len(hourly)
	if n < 2 {
		return
	}
	current := hourly[n-1].Close
	prev := hourly[n-2].Close
	e.currentPrice = current
	e.priceChange = current - prev
	e.priceChangePct = 0
	if prev != 0 {
		e.priceChangePct = e.priceChange / prev * 100
	}
}

func (e *Engine) absorb(stream string, bars int, err error) {
	if errors.Is(err, ErrInsufficientHistory) {
		e.logger.Debug().Str("stream", stream).Int("bars", bars).Msg("not enough bars, keeping previous state")
		return
	}
	e.logger.Warn().Err(err).Str("stream", stream).Msg("analysis failed, keeping previous state")
}
