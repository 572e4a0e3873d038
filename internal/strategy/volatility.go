package strategy

import (
	"FxSentinel/internal/calculator"
	"FxSentinel/internal/model"
)

const (
	minFiveMinBars  = 3
	minBreakoutBars = 10

	spikeLookback = 9
	spikeRatio    = 3.0
	rollingWindow = 5
)

// VolatilityClassifier labels short-horizon compression and expansion on the five-minute stream.
type VolatilityClassifier struct {
	pip   float64
	state model.VolatilityState
}

func NewVolatilityClassifier(pip float64) *VolatilityClassifier {
	return &VolatilityClassifier{pip: pip, state: model.NewVolatilityState()}
}

func (v *VolatilityClassifier) State() model.VolatilityState { return v.state }

// Classify evaluates the window ending at the newest bar. Rules run in order and
// later matches replace earlier ones.
func (v *VolatilityClassifier) Classify(bars []model.Bar) error {
	n := len(bars)
	if n < minFiveMinBars {
		return ErrInsufficientHistory
	}

	class := model.VolatilityNormal
	current := bars[n-1]

	lastThree := bars[n-3:]
	dir := calculator.UniformDirection(lastThree)
	if spread, err := calculator.RangeSpread(lastThree); err == nil && dir != model.DirectionNone && spread < v.pip {
		class = model.VolatilityExecuteNow
	}

	from := n - 1 - spikeLookback
	if from < 0 {
		from = 0
	}
	if avg, err := calculator.MeanRange(bars[from:n-1], spikeLookback); err == nil && current.Range() > spikeRatio*avg {
		class = model.VolatilitySuperHigh
	}

	if n >= minBreakoutBars {
		if high, low, err := calculator.RollingExtremes(bars[:n-1], rollingWindow); err == nil {
			brk := model.SwingBreakNone
			switch {
			case current.Close > high:
				brk = model.SwingBreakUp
			case current.Close < low:
				brk = model.SwingBreakDown
			}
			if brk != model.SwingBreakNone {
				v.state.LastSwingBreak = brk
			}
			switch {
			case brk == model.SwingBreakUp && dir == model.DirectionBullish:
				class = model.VolatilityHighUptrend
			case brk == model.SwingBreakDown && dir == model.DirectionBearish:
				class = model.VolatilityHighDowntrend
			}
		}
	}

	v.state.Class = class
	return nil
}
