package calculator

import (
	"errors"
	"math"

	"FxSentinel/internal/model"
)

// RollingExtremes scans the last `window` bars and returns the highest High and lowest Low.
func RollingExtremes(bars []model.Bar, window int) (high, low float64, err error) {
	if window <= 0 {
		return 0, 0, errors.New("window must be positive")
	}
	if len(bars) < window {
		return 0, 0, errors.New("not enough bars for rolling window")
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for i := len(bars) - window; i < len(bars); i++ {
		if bars[i].High > high {
			high = bars[i].High
		}
		if bars[i].Low < low {
			low = bars[i].Low
		}
	}
	return high, low, nil
}

// RangeSpread returns max(range) - min(range) across the given bars.
func RangeSpread(bars []model.Bar) (float64, error) {
	if len(bars) == 0 {
		return 0, errors.New("no bars provided")
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, b := range bars {
		r := b.Range()
		lo = math.Min(lo, r)
		hi = math.Max(hi, r)
	}
	return hi - lo, nil
}

// UniformDirection reports the shared direction of all bars, or DirectionNone
// when any bar disagrees or has no body.
func UniformDirection(bars []model.Bar) model.Direction {
	if len(bars) == 0 {
		return model.DirectionNone
	}
	d := bars[0].Direction()
	for _, b := range bars[1:] {
		if b.Direction() != d {
			return model.DirectionNone
		}
	}
	return d
}
