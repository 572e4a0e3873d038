package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"FxSentinel/internal/collector"
	"FxSentinel/internal/metrics"
	"FxSentinel/internal/model"
	"FxSentinel/internal/notifier"
	"FxSentinel/internal/publisher"
	"FxSentinel/internal/recorder"
	"FxSentinel/internal/state"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// BarSource supplies cleaned bar streams for one instrument.
type BarSource interface {
	Collect(ctx context.Context, symbol string, now time.Time) (model.BarSet, error)
}

// CycleResult is the outcome of one polling cycle.
type CycleResult struct {
	ID       string
	At       time.Time
	Updated  []model.SignalState // instruments analysed this cycle, in configured order
	Failed   map[string]error
	Duration time.Duration
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithNotifier(n notifier.Notifier) Option    { return func(o *Orchestrator) { o.notifier = n } }
func WithRecorder(r recorder.Recorder) Option    { return func(o *Orchestrator) { o.recorder = r } }
func WithPublisher(p publisher.Publisher) Option { return func(o *Orchestrator) { o.publisher = p } }
func WithClock(c Clock) Option                   { return func(o *Orchestrator) { o.clock = c } }
func WithIDGenerator(f func() string) Option     { return func(o *Orchestrator) { o.newID = f } }

// WithWorkers bounds the number of instruments fetched concurrently.
func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithCycleTimeout bounds the time spent fetching within one cycle.
func WithCycleTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// Orchestrator runs the fetch-analyse-report cycle over all instruments.
type Orchestrator struct {
	instruments []string
	source      BarSource
	table       *state.Table

	notifier  notifier.Notifier
	recorder  recorder.Recorder
	publisher publisher.Publisher
	clock     Clock
	newID     func() string
	workers   int
	timeout   time.Duration

	cycleMu sync.Mutex
	logger  zerolog.Logger
}

func NewOrchestrator(instruments []string, source BarSource, table *state.Table, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		instruments: append([]string(nil), instruments...),
		source:      source,
		table:       table,
		notifier:    notifier.Noop{},
		recorder:    recorder.NewNoopRecorder(),
		publisher:   publisher.Noop{},
		clock:       RealClock(),
		newID:       uuid.NewString,
		workers:     4,
		timeout:     2 * time.Minute,
		logger:      log.With().Str("component", "orchestrator").Logger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) Instruments() []string {
	return append([]string(nil), o.instruments...)
}

func (o *Orchestrator) Table() *state.Table { return o.table }

// Announce sends the start-up message.
func (o *Orchestrator) Announce(ctx context.Context) {
	text := notifier.FormatStartup(o.instruments, o.clock.Now())
	if err := o.notifier.Send(ctx, text); err != nil {
		o.logger.Error().Err(err).Msg("send startup message")
	}
}

type outcome struct {
	instrument string
	prev       model.SignalState
	tracked    bool
	curr       model.SignalState
	err        error
}

// RunCycle fetches and analyses every instrument as of at, then reports the results.
// Concurrent calls are serialised.
func (o *Orchestrator) RunCycle(ctx context.Context, at time.Time) CycleResult {
	o.cycleMu.Lock()
	defer o.cycleMu.Unlock()

	start := time.Now()
	id := o.newID()
	logger := o.logger.With().Str("cycle_id", id).Time("at", at).Logger()
	logger.Info().Int("instruments", len(o.instruments)).Msg("cycle started")

	fetchCtx, cancel := context.WithTimeout(ctx, o.timeout)
	outcomes := o.fanOut(fetchCtx, at)
	cancel()

	res := CycleResult{ID: id, At: at, Failed: make(map[string]error)}
	for _, name := range o.instruments {
		out, ok := outcomes[name]
		if !ok {
			continue
		}
		if out.err != nil {
			res.Failed[name] = out.err
			metrics.FetchFailures.WithLabelValues(name).Inc()
			if errors.Is(out.err, collector.ErrDataUnavailable) {
				logger.Warn().Err(out.err).Str("instrument", name).Msg("skipping instrument")
			} else {
				logger.Error().Err(out.err).Str("instrument", name).Msg("instrument failed")
			}
			continue
		}
		res.Updated = append(res.Updated, out.curr)
		o.recordTransition(id, out)
	}

	o.report(ctx, logger, res)

	res.Duration = time.Since(start)
	metrics.CycleDuration.Observe(res.Duration.Seconds())
	metrics.TrackedInstruments.Set(float64(o.table.Len()))
	metrics.CyclesTotal.WithLabelValues(cycleOutcome(res)).Inc()

	active := 0
	for _, s := range res.Updated {
		if s.Active() {
			active++
		}
	}
	if err := o.recorder.RecordCycle(&recorder.CycleEvent{
		CycleID:  id,
		Time:     at,
		Tracked:  o.table.Len(),
		Active:   active,
		Failed:   len(res.Failed),
		Duration: res.Duration,
	}); err != nil {
		logger.Error().Err(err).Msg("record cycle")
	}

	logger.Info().Int("updated", len(res.Updated)).Int("failed", len(res.Failed)).
		Int("active", active).Dur("took", res.Duration).Msg("cycle finished")
	return res
}

// fanOut distributes instruments over the worker pool and gathers the outcomes.
func (o *Orchestrator) fanOut(ctx context.Context, at time.Time) map[string]outcome {
	jobs := make(chan string)
	results := make(chan outcome)

	var wg sync.WaitGroup
	workers := min(o.workers, len(o.instruments))
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range jobs {
				results <- o.process(ctx, name, at)
			}
		}()
	}

	go func() {
		for _, name := range o.instruments {
			jobs <- name
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	out := make(map[string]outcome, len(o.instruments))
	for r := range results {
		out[r.instrument] = r
	}
	return out
}

func (o *Orchestrator) process(ctx context.Context, name string, at time.Time) outcome {
	out := outcome{instrument: name}
	set, err := o.source.Collect(ctx, name, at)
	if err != nil {
		out.err = err
		return out
	}
	out.prev, out.tracked = o.table.Snapshot(name)
	out.curr = o.table.Observe(name, set.Hourly, set.FiveMin, at)
	return out
}

func (o *Orchestrator) recordTransition(cycleID string, out outcome) {
	prevSign, prevClass := model.SignNone, model.VolatilityNormal
	if out.tracked {
		prevSign, prevClass = out.prev.Trend.Sign, out.prev.Volatility.Class
	}
	curr := out.curr
	signChanged := curr.Trend.Sign != prevSign
	classChanged := curr.Volatility.Class != prevClass
	if !signChanged && !classChanged {
		return
	}

	if signChanged {
		metrics.SignTransitions.WithLabelValues(curr.Instrument, string(curr.Trend.Sign)).Inc()
	}
	if classChanged {
		metrics.VolatilityTransitions.WithLabelValues(curr.Instrument, string(curr.Volatility.Class)).Inc()
	}

	evt := &recorder.SignalEvent{
		CycleID:    cycleID,
		Time:       curr.LastUpdate,
		Instrument: curr.Instrument,
		PrevSign:   prevSign,
		Sign:       curr.Trend.Sign,
		PrevClass:  prevClass,
		Class:      curr.Volatility.Class,
		Trend:      curr.Trend.CurrentTrend,
		TrendBars:  curr.Trend.TrendBars,
		Price:      curr.CurrentPrice,
	}
	if err := o.recorder.RecordSignal(evt); err != nil {
		o.logger.Error().Err(err).Str("instrument", curr.Instrument).Msg("record signal")
	}
}

// report delivers the cycle's snapshots. Collaborator failures are logged only.
func (o *Orchestrator) report(ctx context.Context, logger zerolog.Logger, res CycleResult) {
	if len(res.Updated) == 0 {
		return
	}
	if err := o.notifier.ReplaceStatus(ctx, notifier.FormatStatus(res.Updated, res.At)); err != nil {
		logger.Error().Err(err).Msg("send status update")
	}
	if err := o.publisher.Publish(ctx, res.Updated); err != nil {
		logger.Error().Err(err).Msg("publish snapshots")
	}
}

func cycleOutcome(res CycleResult) string {
	switch {
	case len(res.Failed) == 0:
		return "ok"
	case len(res.Updated) == 0:
		return "failed"
	default:
		return "partial"
	}
}
