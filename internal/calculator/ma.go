package calculator

import (
	"errors"

	"FxSentinel/internal/model"
)

// CalculateSMA computes the simple moving average of the given values over the specified period.
func CalculateSMA(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(values) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(values) - period; i < len(values); i++ {
		sum += values[i]
	}
	return sum / float64(period), nil
}

// MeanRange returns the average High-Low range of up to `period` bars,
// using fewer when the slice is shorter.
func MeanRange(bars []model.Bar, period int) (float64, error) {
	if len(bars) == 0 {
		return 0, errors.New("no bars provided")
	}
	if len(bars) < period {
		period = len(bars)
	}
	return CalculateSMA(extractRanges(bars), period)
}

func extractRanges(bars []model.Bar) []float64 {
	ranges := make([]float64, len(bars))
	for i, b := range bars {
		ranges[i] = b.Range()
	}
	return ranges
}
