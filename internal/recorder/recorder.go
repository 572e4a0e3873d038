package recorder

import (
	"time"

	"FxSentinel/internal/model"
)

// SignalEvent records a change of an instrument's hourly sign or five-minute class.
type SignalEvent struct {
	CycleID    string
	Time       time.Time
	Instrument string
	PrevSign   model.Sign
	Sign       model.Sign
	PrevClass  model.VolatilityClass
	Class      model.VolatilityClass
	Trend      model.Direction
	TrendBars  int
	Price      float64
}

// CycleEvent summarises one polling cycle.
type CycleEvent struct {
	CycleID  string
	Time     time.Time
	Tracked  int
	Active   int
	Failed   int
	Duration time.Duration
}

// Recorder journals signal history for offline analysis. It is write-only.
type Recorder interface {
	RecordSignal(evt *SignalEvent) error
	RecordCycle(evt *CycleEvent) error
	Close() error
}
