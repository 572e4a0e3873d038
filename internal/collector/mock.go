package collector

import (
	"context"
	"math"
	"time"

	"FxSentinel/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price   float64
	Hourly  []model.Bar
	FiveMin []model.Bar
	Err     error
	Now     func() time.Time
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchBars(_ context.Context, _ string, res model.Resolution) ([]model.Bar, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	switch res {
	case model.ResolutionHourly:
		if m.Hourly != nil {
			return m.Hourly, nil
		}
		return m.generate(res, 7*24), nil
	case model.ResolutionFiveMinute:
		if m.FiveMin != nil {
			return m.FiveMin, nil
		}
		return m.generate(res, 2*24*12), nil
	}
	return nil, nil
}

// generate produces a deterministic oscillating series ending with the bar that
// contains now.
func (m *MockFetcher) generate(res model.Resolution, count int) []model.Bar {
	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	step := res.Duration()
	last := now().UTC().Truncate(step)

	price := m.Price
	if price == 0 {
		price = 1.1
	}
	bars := make([]model.Bar, count)
	for i := 0; i < count; i++ {
		open := price * (1 + 0.002*math.Sin(float64(i)/6))
		cl := price * (1 + 0.002*math.Sin(float64(i+1)/6))
		bars[i] = model.Bar{
			Time:  last.Add(-time.Duration(count-1-i) * step),
			Open:  open,
			High:  math.Max(open, cl) * 1.0002,
			Low:   math.Min(open, cl) * 0.9998,
			Close: cl,
		}
	}
	return bars
}
