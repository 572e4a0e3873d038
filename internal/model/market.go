package model

import (
	"math"
	"time"
)

// Bar represents a single OHLC sample for a fixed interval.
type Bar struct {
	Time  time.Time `json:"time"`
	Open  float64   `json:"open"`
	High  float64   `json:"high"`
	Low   float64   `json:"low"`
	Close float64   `json:"close"`
}

func (b Bar) IsBullish() bool { return b.Close > b.Open }
func (b Bar) IsBearish() bool { return b.Close < b.Open }

// Direction classifies the bar body. A doji (Close == Open) has no direction.
func (b Bar) Direction() Direction {
	switch {
	case b.IsBullish():
		return DirectionBullish
	case b.IsBearish():
		return DirectionBearish
	default:
		return DirectionNone
	}
}

// Body is the absolute open-to-close distance.
func (b Bar) Body() float64 { return math.Abs(b.Close - b.Open) }

// Range is the high-to-low distance.
func (b Bar) Range() float64 { return b.High - b.Low }

// Resolution is the sampling interval of a bar stream.
type Resolution string

const (
	ResolutionHourly     Resolution = "1h"
	ResolutionFiveMinute Resolution = "5m"
)

// Duration returns the length of one bar at this resolution.
func (r Resolution) Duration() time.Duration {
	switch r {
	case ResolutionHourly:
		return time.Hour
	case ResolutionFiveMinute:
		return 5 * time.Minute
	default:
		return 0
	}
}

// BarSet holds both streams for one instrument, oldest bar first.
type BarSet struct {
	Symbol    string
	Hourly    []Bar
	FiveMin   []Bar
	FetchedAt time.Time
}
