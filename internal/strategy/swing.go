package strategy

import (
	"math"

	"FxSentinel/internal/model"
)

// DefaultSwingHistory covers the stability and support/resistance lookback with room to spare.
const DefaultSwingHistory = 8

const breakthroughRatio = 0.4

// SwingAnalyzer derives swing records from trend flips and classifies market structure.
type SwingAnalyzer struct {
	pip      float64
	capacity int
	history  []model.SwingRecord
}

// NewSwingAnalyzer creates an analyzer keeping at most capacity swings (minimum 2).
func NewSwingAnalyzer(pip float64, capacity int) *SwingAnalyzer {
	if capacity < 2 {
		capacity = 2
	}
	return &SwingAnalyzer{
		pip:      pip,
		capacity: capacity,
		history:  make([]model.SwingRecord, 0, capacity),
	}
}

// History returns a copy of the retained swings, oldest first.
func (a *SwingAnalyzer) History() []model.SwingRecord {
	out := make([]model.SwingRecord, len(a.history))
	copy(out, a.history)
	return out
}

// OnFlip records the swing between the run that just closed and the run bar started,
// then applies stability, breakthrough and support/resistance rules in that order.
func (a *SwingAnalyzer) OnFlip(s *model.TrendState, bar model.Bar) {
	if s.PrevTrend == nil {
		return
	}
	prev := s.PrevTrend

	swing := model.SwingRecord{
		High:      (prev.High + s.TrendHigh) / 2,
		Low:       (prev.Low + s.TrendLow) / 2,
		MeanPrice: (prev.High + prev.Low + s.TrendHigh + s.TrendLow) / 4,
		HighDiff:  math.Abs(s.TrendHigh - prev.High),
		LowDiff:   math.Abs(s.TrendLow - prev.Low),
		Trend:     s.CurrentTrend,
	}
	a.append(swing)

	a.checkStability(s)
	a.checkBreakthrough(s, swing, bar)
	a.checkSupportResistance(s)
}

func (a *SwingAnalyzer) append(swing model.SwingRecord) {
	if len(a.history) == a.capacity {
		copy(a.history, a.history[1:])
		a.history = a.history[:len(a.history)-1]
	}
	a.history = append(a.history, swing)
}

func (a *SwingAnalyzer) lastTwo() (prev, last model.SwingRecord, ok bool) {
	n := len(a.history)
	if n < 2 {
		return prev, last, false
	}
	return a.history[n-2], a.history[n-1], true
}

func (a *SwingAnalyzer) checkStability(s *model.TrendState) {
	prev, last, ok := a.lastTwo()
	if !ok {
		return
	}
	if math.Abs(last.High-prev.High) < a.pip && math.Abs(last.Low-prev.Low) < a.pip {
		s.Sign = model.SignStableSwing
	}
}

// checkBreakthrough compares how far bar reached past the swing mean against the swing
// range. The label follows the bar's own direction.
func (a *SwingAnalyzer) checkBreakthrough(s *model.TrendState, swing model.SwingRecord, bar model.Bar) {
	priceDiff := swing.High - swing.Low

	var enhanced float64
	if bar.IsBullish() {
		enhanced = bar.High - swing.MeanPrice
	} else {
		enhanced = swing.MeanPrice - bar.Low
	}

	if enhanced <= breakthroughRatio*priceDiff {
		return
	}
	if bar.IsBullish() {
		s.Sign = model.SignBullishBreakthrough
	} else {
		s.Sign = model.SignBearishBreakthrough
	}
	s.FullBreakthrough = enhanced > priceDiff
}

// checkSupportResistance flags a level that held while the opposite side of the range moved.
func (a *SwingAnalyzer) checkSupportResistance(s *model.TrendState) {
	prev, last, ok := a.lastTwo()
	if !ok {
		return
	}
	wide := 2 * a.pip

	switch {
	case last.Trend == model.DirectionBullish &&
		prev.HighDiff > wide &&
		last.LowDiff < a.pip &&
		math.Abs(last.High-prev.High) > wide:
		s.Sign = model.SignStrongSupport
	case last.Trend == model.DirectionBearish &&
		prev.LowDiff > wide &&
		last.HighDiff < a.pip &&
		math.Abs(last.Low-prev.Low) > wide:
		s.Sign = model.SignStrongResistance
	}
}
