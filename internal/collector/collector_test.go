package collector

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"FxSentinel/internal/model"
)

var base = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

func bar(t time.Time, o, h, l, c float64) model.Bar {
	return model.Bar{Time: t, Open: o, High: h, Low: l, Close: c}
}

func TestValid(t *testing.T) {
	tests := []struct {
		name string
		bar  model.Bar
		want bool
	}{
		{"ok", bar(base, 1.1, 1.2, 1.0, 1.15), true},
		{"doji", bar(base, 1.1, 1.1, 1.1, 1.1), true},
		{"high below low", bar(base, 1.1, 1.0, 1.2, 1.1), false},
		{"open above high", bar(base, 1.3, 1.2, 1.0, 1.1), false},
		{"close below low", bar(base, 1.1, 1.2, 1.0, 0.9), false},
		{"nan", bar(base, math.NaN(), 1.2, 1.0, 1.1), false},
		{"inf", bar(base, 1.1, math.Inf(1), 1.0, 1.1), false},
		{"zero", bar(base, 0, 0, 0, 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Valid(tt.bar); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestClean(t *testing.T) {
	now := base.Add(3*time.Hour + 20*time.Minute)
	raw := []model.Bar{
		bar(base.Add(2*time.Hour), 1.1, 1.2, 1.0, 1.1),
		bar(base, 1.1, 1.2, 1.0, 1.1),
		bar(base.Add(time.Hour), 1.1, 1.0, 1.2, 1.1), // malformed
		bar(base.Add(2*time.Hour), 1.1, 1.2, 1.0, 1.15),
		bar(base.Add(3*time.Hour), 1.1, 1.2, 1.0, 1.1), // still forming
	}

	got, dropped := Clean(raw, model.ResolutionHourly, now)
	if dropped != 3 {
		t.Errorf("expected 3 dropped, got %d", dropped)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(got))
	}
	if !got[0].Time.Equal(base) || !got[1].Time.Equal(base.Add(2*time.Hour)) {
		t.Errorf("unexpected order %v, %v", got[0].Time, got[1].Time)
	}
	if got[1].Close != 1.15 {
		t.Errorf("expected later duplicate to win, got close %v", got[1].Close)
	}
	if raw[0].Time != base.Add(2*time.Hour) {
		t.Error("input slice was reordered")
	}
}

func TestClean_BarClosingAtNowIsKept(t *testing.T) {
	now := base.Add(10 * time.Minute)
	raw := []model.Bar{
		bar(base, 1.1, 1.2, 1.0, 1.1),
		bar(base.Add(5*time.Minute), 1.1, 1.2, 1.0, 1.1),
	}
	got, _ := Clean(raw, model.ResolutionFiveMinute, now)
	if len(got) != 2 {
		t.Errorf("expected both bars kept, got %d", len(got))
	}
}

func TestCollector_Collect(t *testing.T) {
	now := base.Add(7*24*time.Hour + 2*time.Minute)
	c := NewCollector(&MockFetcher{Price: 1.1, Now: func() time.Time { return now }})

	set, err := c.Collect(context.Background(), "EURUSD=X", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if set.Symbol != "EURUSD=X" || !set.FetchedAt.Equal(now) {
		t.Errorf("unexpected set header %+v", set)
	}
	if len(set.Hourly) != 7*24-1 {
		t.Errorf("expected forming hourly bar dropped, got %d bars", len(set.Hourly))
	}
	if len(set.FiveMin) != 2*24*12-1 {
		t.Errorf("expected forming five-minute bar dropped, got %d bars", len(set.FiveMin))
	}
	last := set.FiveMin[len(set.FiveMin)-1]
	if last.Time.Add(5 * time.Minute).After(now) {
		t.Errorf("newest bar %v has not closed at %v", last.Time, now)
	}
}

func TestCollector_DataUnavailable(t *testing.T) {
	tests := []struct {
		name    string
		fetcher *MockFetcher
	}{
		{"fetch error", &MockFetcher{Err: errors.New("boom")}},
		{"empty stream", &MockFetcher{Hourly: []model.Bar{}, FiveMin: []model.Bar{}}},
		{"only forming bar", &MockFetcher{
			Hourly:  []model.Bar{bar(base, 1.1, 1.2, 1.0, 1.1)},
			FiveMin: []model.Bar{bar(base, 1.1, 1.2, 1.0, 1.1)},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCollector(tt.fetcher)
			_, err := c.Collect(context.Background(), "EURUSD=X", base.Add(time.Minute))
			if !errors.Is(err, ErrDataUnavailable) {
				t.Errorf("expected ErrDataUnavailable, got %v", err)
			}
		})
	}
}

const yahooBody = `{"chart":{"result":[{
	"timestamp":[1740992400,1740988800,1740996000],
	"indicators":{"quote":[{
		"open":[1.0410,1.0400,null],
		"high":[1.0425,1.0415,1.0440],
		"low":[1.0405,1.0395,1.0420],
		"close":[1.0420,1.0410,1.0430]
	}]}
}],"error":null}}`

func TestYahooFetcher_FetchBars(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Write([]byte(yahooBody))
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL

	bars, err := f.FetchBars(context.Background(), "EURUSD=X", model.ResolutionHourly)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/v8/finance/chart/EURUSD=X" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotQuery != "interval=60m&range=7d" {
		t.Errorf("unexpected query %q", gotQuery)
	}
	if len(bars) != 2 {
		t.Fatalf("expected null bar skipped, got %d bars", len(bars))
	}
	if !bars[0].Time.Before(bars[1].Time) {
		t.Error("bars not sorted oldest first")
	}
	if bars[0].Open != 1.0400 || bars[1].Close != 1.0420 {
		t.Errorf("unexpected values %+v", bars)
	}
}

func TestYahooFetcher_FiveMinuteRange(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(yahooBody))
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL
	if _, err := f.FetchBars(context.Background(), "EURUSD=X", model.ResolutionFiveMinute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotQuery != "interval=5m&range=2d" {
		t.Errorf("unexpected query %q", gotQuery)
	}
}

func TestYahooFetcher_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`))
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL
	_, err := f.FetchBars(context.Background(), "XXXYYY=X", model.ResolutionHourly)
	if err == nil || !strings.Contains(err.Error(), "No data found") {
		t.Errorf("expected api error, got %v", err)
	}
}

func TestYahooFetcher_RetriesServerErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(yahooBody))
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL
	if _, err := f.FetchBars(context.Background(), "EURUSD=X", model.ResolutionHourly); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestYahooFetcher_ClientErrorIsPermanent(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL
	_, err := f.FetchBars(context.Background(), "EURUSD=X", model.ResolutionHourly)
	var serr *StatusError
	if !errors.As(err, &serr) || serr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected StatusError 404, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected no retries, got %d calls", calls)
	}
}

func TestTwelveDataSymbol(t *testing.T) {
	tests := []struct{ in, want string }{
		{"EURUSD=X", "EUR/USD"},
		{"usdjpy=x", "USD/JPY"},
		{"GBP/USD", "GBP/USD"},
		{"XAUUSD", "XAU/USD"},
		{"SPX", "SPX"},
	}
	for _, tt := range tests {
		if got := twelveDataSymbol(tt.in); got != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.in, tt.want, got)
		}
	}
}

func TestTwelveDataFetcher_FetchBars(t *testing.T) {
	var query map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		w.Write([]byte(`{"meta":{"symbol":"EUR/USD","interval":"5min"},"values":[
			{"datetime":"2025-03-03 10:05:00","open":"1.04100","high":"1.04150","low":"1.04050","close":"1.04120"},
			{"datetime":"2025-03-03 10:00:00","open":"1.04000","high":"1.04110","low":"1.03990","close":"1.04100"}
		],"status":"ok"}`))
	}))
	defer srv.Close()

	f := NewTwelveDataFetcher("secret", "", 600)
	f.BaseURL = srv.URL

	bars, err := f.FetchBars(context.Background(), "EURUSD=X", model.ResolutionFiveMinute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if query["symbol"][0] != "EUR/USD" || query["interval"][0] != "5min" || query["apikey"][0] != "secret" {
		t.Errorf("unexpected query %v", query)
	}
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}
	want := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	if !bars[0].Time.Equal(want) || bars[0].Open != 1.04 {
		t.Errorf("unexpected first bar %+v", bars[0])
	}
	if bars[1].Close != 1.0412 {
		t.Errorf("unexpected second bar %+v", bars[1])
	}
}

func TestTwelveDataFetcher_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":401,"message":"invalid api key","status":"error"}`))
	}))
	defer srv.Close()

	f := NewTwelveDataFetcher("bad", "", 600)
	f.BaseURL = srv.URL
	_, err := f.FetchBars(context.Background(), "EURUSD=X", model.ResolutionHourly)
	if err == nil || !strings.Contains(err.Error(), "invalid api key") {
		t.Errorf("expected api error, got %v", err)
	}
}

func TestTwelveDataFetcher_RespectsContext(t *testing.T) {
	f := NewTwelveDataFetcher("key", "", 1)
	f.BaseURL = "http://127.0.0.1:0"
	f.Limiter.Allow() // drain the burst

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.FetchBars(ctx, "EURUSD=X", model.ResolutionHourly); err == nil {
		t.Error("expected error for cancelled context")
	}
}
