package model

import "time"

// Direction of a bar or trend run.
type Direction string

const (
	DirectionNone    Direction = "none"
	DirectionBullish Direction = "bullish"
	DirectionBearish Direction = "bearish"
)

// Sign is the hourly classification label.
type Sign string

const (
	SignNone                Sign = "no sign"
	SignBullish             Sign = "bullish"
	SignBearish             Sign = "bearish"
	SignPotentialReversal   Sign = "potential reversal"
	SignBullishReversal     Sign = "bullish reversal"
	SignBearishReversal     Sign = "bearish reversal"
	SignStrongReversal      Sign = "strong reversal"
	SignStableSwing         Sign = "stable swing"
	SignBullishBreakthrough Sign = "bullish breakthrough"
	SignBearishBreakthrough Sign = "bearish breakthrough"
	SignStrongSupport       Sign = "strong support"
	SignStrongResistance    Sign = "strong resistance"
)

// Signs lists every Sign in a stable order.
var Signs = []Sign{
	SignNone,
	SignBullish,
	SignBearish,
	SignPotentialReversal,
	SignBullishReversal,
	SignBearishReversal,
	SignStrongReversal,
	SignStableSwing,
	SignBullishBreakthrough,
	SignBearishBreakthrough,
	SignStrongSupport,
	SignStrongResistance,
}

func (s Sign) Valid() bool {
	for _, v := range Signs {
		if s == v {
			return true
		}
	}
	return false
}

// VolatilityClass is the five-minute classification label.
type VolatilityClass string

const (
	VolatilityNormal        VolatilityClass = "normal"
	VolatilityExecuteNow    VolatilityClass = "high - execute now"
	VolatilitySuperHigh     VolatilityClass = "super high"
	VolatilityHighUptrend   VolatilityClass = "high - uptrend"
	VolatilityHighDowntrend VolatilityClass = "high - downtrend"
)

// VolatilityClasses lists every VolatilityClass in a stable order.
var VolatilityClasses = []VolatilityClass{
	VolatilityNormal,
	VolatilityExecuteNow,
	VolatilitySuperHigh,
	VolatilityHighUptrend,
	VolatilityHighDowntrend,
}

func (v VolatilityClass) Valid() bool {
	for _, c := range VolatilityClasses {
		if v == c {
			return true
		}
	}
	return false
}

// SwingBreak is the direction of the last close outside the rolling range.
type SwingBreak string

const (
	SwingBreakNone SwingBreak = "none"
	SwingBreakUp   SwingBreak = "up"
	SwingBreakDown SwingBreak = "down"
)

// TrendSnapshot captures the run that was active when a flip happened.
type TrendSnapshot struct {
	Direction Direction `json:"direction"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
}

// TrendState is the running hourly trend for one instrument.
type TrendState struct {
	CurrentTrend     Direction      `json:"current_trend"`
	TrendBars        int            `json:"trend_bars"`
	TrendHigh        float64        `json:"trend_high"`
	TrendLow         float64        `json:"trend_low"`
	PrevTrend        *TrendSnapshot `json:"prev_trend,omitempty"`
	Sign             Sign           `json:"sign"`
	SuperShortBar    bool           `json:"super_short_bar"`
	PendingReversal  bool           `json:"pending_reversal"`
	StrongReversal   bool           `json:"strong_reversal"`
	FullBreakthrough bool           `json:"full_breakthrough"`
	LastBarTime      time.Time      `json:"last_bar_time"`
}

// NewTrendState returns the state of an instrument that has seen no bars.
func NewTrendState() TrendState {
	return TrendState{CurrentTrend: DirectionNone, Sign: SignNone}
}

// SwingRecord summarises the transition between two consecutive trend runs.
type SwingRecord struct {
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	MeanPrice float64   `json:"mean_price"`
	HighDiff  float64   `json:"high_diff"`
	LowDiff   float64   `json:"low_diff"`
	Trend     Direction `json:"trend"`
}

// VolatilityState is the five-minute classification for one instrument.
type VolatilityState struct {
	Class          VolatilityClass `json:"class"`
	LastSwingBreak SwingBreak      `json:"last_swing_break"`
}

// NewVolatilityState returns the state of an instrument that has seen no bars.
func NewVolatilityState() VolatilityState {
	return VolatilityState{Class: VolatilityNormal, LastSwingBreak: SwingBreakNone}
}

// SignalState is the aggregate per-instrument record handed to collaborators.
type SignalState struct {
	Instrument     string          `json:"instrument"`
	CurrentPrice   float64         `json:"current_price"`
	PriceChange    float64         `json:"price_change"`
	PriceChangePct float64         `json:"price_change_pct"`
	PipThreshold   float64         `json:"pip_threshold"`
	Trend          TrendState      `json:"trend"`
	Volatility     VolatilityState `json:"volatility"`
	Swings         []SwingRecord   `json:"swings"`
	LastUpdate     time.Time       `json:"last_update"`
}

// Active reports whether the hourly tracker currently carries a label.
func (s *SignalState) Active() bool {
	return s.Trend.Sign != SignNone
}
