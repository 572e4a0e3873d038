package collector

import (
	"context"

	"FxSentinel/internal/model"
)

// Fetcher defines the interface for fetching OHLC bars.
// Bars are returned oldest first; the newest bar may still be forming.
type Fetcher interface {
	FetchBars(ctx context.Context, symbol string, res model.Resolution) ([]model.Bar, error)
	Name() string
}
