package strategy

import (
	"errors"
	"time"

	"FxSentinel/internal/calculator"
	"FxSentinel/internal/model"
)

// ErrInsufficientHistory is returned when a rule needs more bars than are available.
var ErrInsufficientHistory = errors.New("insufficient history")

const (
	minHourlyBars = 4

	flipRatio        = 0.4
	superShortRatio  = 0.3
	strongRevRatio   = 0.8
	minConfirmedBars = 2
)

// FlipObserver is notified after every bar that flipped the trend.
type FlipObserver interface {
	OnFlip(s *model.TrendState, bar model.Bar)
}

// runMark is the run in effect just before a bar was consumed.
type runMark struct {
	bar  time.Time
	dir  model.Direction
	bars int
}

// TrendTracker maintains the running hourly trend for one instrument.
type TrendTracker struct {
	state   model.TrendState
	preLast runMark
}

func NewTrendTracker() *TrendTracker {
	return &TrendTracker{state: model.NewTrendState()}
}

// State returns a copy of the current trend state.
func (t *TrendTracker) State() model.TrendState {
	s := t.state
	if s.PrevTrend != nil {
		prev := *s.PrevTrend
		s.PrevTrend = &prev
	}
	return s
}

// Update consumes the hourly bars not seen before and returns how many were consumed.
// The first call only consumes the newest bar; later calls catch up bar by bar.
func (t *TrendTracker) Update(bars []model.Bar, obs FlipObserver) (int, error) {
	if len(bars) < minHourlyBars {
		return 0, ErrInsufficientHistory
	}

	n := len(bars)
	start := n - 1
	if !t.state.LastBarTime.IsZero() {
		start = n
		for i := n - 1; i >= minHourlyBars-1 && bars[i].Time.After(t.state.LastBarTime); i-- {
			start = i
		}
	}

	for i := start; i < n; i++ {
		if t.step(bars[i-2], bars[i-1], bars[i]) && obs != nil {
			obs.OnFlip(&t.state, bars[i])
		}
	}
	return n - start, nil
}

// step applies the ordered rules to bar b, given the previous bar p and the one before it q.
// Later rules overwrite the sign set by earlier ones.
func (t *TrendTracker) step(q, p, b model.Bar) bool {
	s := &t.state
	preP := t.preLast
	t.preLast = runMark{bar: b.Time, dir: s.CurrentTrend, bars: s.TrendBars}

	s.Sign = model.SignNone
	s.SuperShortBar = false
	s.StrongReversal = false
	s.FullBreakthrough = false
	s.LastBarTime = b.Time

	switch calculator.UniformDirection([]model.Bar{q, p, b}) {
	case model.DirectionBullish:
		s.Sign = model.SignBullish
	case model.DirectionBearish:
		s.Sign = model.SignBearish
	}

	flipped := t.advance(p, b)
	t.checkSuperShortBar(p, q)
	t.checkHoldingConfirmation(b)
	if preP.bar.Equal(p.Time) {
		t.checkStrongReversal(preP, p, q)
	}
	return flipped
}

// advance extends, starts or flips the trend run. Counter-moves whose body is not
// larger than flipRatio of the previous body are absorbed.
func (t *TrendTracker) advance(p, b model.Bar) bool {
	s := &t.state
	dir := b.Direction()

	if s.CurrentTrend == model.DirectionNone {
		if dir == model.DirectionNone {
			return false
		}
		t.seed(b)
		return false
	}

	if dir == s.CurrentTrend {
		s.TrendBars++
		if b.High > s.TrendHigh {
			s.TrendHigh = b.High
		}
		if b.Low < s.TrendLow {
			s.TrendLow = b.Low
		}
		return false
	}

	if dir == model.DirectionNone || b.Body() <= flipRatio*p.Body() {
		return false
	}

	s.PrevTrend = &model.TrendSnapshot{
		Direction: s.CurrentTrend,
		High:      s.TrendHigh,
		Low:       s.TrendLow,
	}
	t.seed(b)
	return true
}

func (t *TrendTracker) seed(b model.Bar) {
	t.state.CurrentTrend = b.Direction()
	t.state.TrendBars = 1
	t.state.TrendHigh = b.High
	t.state.TrendLow = b.Low
}

func (t *TrendTracker) checkSuperShortBar(p, q model.Bar) {
	if q.Direction() == model.DirectionNone {
		return
	}
	if p.Body() <= superShortRatio*q.Body() {
		t.state.SuperShortBar = true
		t.state.PendingReversal = true
		t.state.Sign = model.SignPotentialReversal
	}
}

// checkHoldingConfirmation resolves a pending reversal with the direction of the bar
// that follows the short bar. A doji leaves the reversal unresolved.
func (t *TrendTracker) checkHoldingConfirmation(b model.Bar) {
	if !t.state.PendingReversal {
		return
	}
	switch b.Direction() {
	case model.DirectionBullish:
		t.state.Sign = model.SignBullishReversal
	case model.DirectionBearish:
		t.state.Sign = model.SignBearishReversal
	}
	t.state.PendingReversal = false
}

// checkStrongReversal looks for a large bar p against a run of at least two bars that
// was established before p arrived.
func (t *TrendTracker) checkStrongReversal(run runMark, p, q model.Bar) {
	if run.bars < minConfirmedBars {
		return
	}
	opposes := (run.dir == model.DirectionBullish && p.IsBearish()) ||
		(run.dir == model.DirectionBearish && p.IsBullish())
	if opposes && p.Body() > strongRevRatio*q.Body() {
		t.state.StrongReversal = true
		t.state.Sign = model.SignStrongReversal
	}
}
