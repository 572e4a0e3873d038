package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"FxSentinel/internal/model"

	"golang.org/x/time/rate"
)

const twelveDataBaseURL = "https://api.twelvedata.com"

var twelveDataIntervals = map[model.Resolution]string{
	model.ResolutionHourly:     "1h",
	model.ResolutionFiveMinute: "5min",
}

// TwelveDataFetcher implements Fetcher using the Twelve Data time_series API.
type TwelveDataFetcher struct {
	BaseURL    string
	APIKey     string
	OutputSize int
	Client     *http.Client
	Limiter    *rate.Limiter
	Retries    int
}

// NewTwelveDataFetcher creates a fetcher limited to requestsPerMin calls per minute.
func NewTwelveDataFetcher(apiKey, proxyURL string, requestsPerMin int) *TwelveDataFetcher {
	if requestsPerMin <= 0 {
		requestsPerMin = 8
	}
	return &TwelveDataFetcher{
		BaseURL:    twelveDataBaseURL,
		APIKey:     apiKey,
		OutputSize: 200,
		Client:     newHTTPClient(proxyURL),
		Limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMin)), 1),
		Retries:    defaultRetries,
	}
}

func (f *TwelveDataFetcher) Name() string { return "twelvedata" }

type twelveResponse struct {
	Values []struct {
		Datetime string  `json:"datetime"`
		Open     float64 `json:"open,string"`
		High     float64 `json:"high,string"`
		Low      float64 `json:"low,string"`
		Close    float64 `json:"close,string"`
	} `json:"values"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// twelveDataSymbol converts a Yahoo-style id such as "EURUSD=X" to "EUR/USD".
func twelveDataSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSuffix(symbol, "=X"))
	s = strings.NewReplacer("/", "", "-", "", "_", "").Replace(s)
	if len(s) == 6 {
		return s[:3] + "/" + s[3:]
	}
	return s
}

func (f *TwelveDataFetcher) FetchBars(ctx context.Context, symbol string, res model.Resolution) ([]model.Bar, error) {
	interval, ok := twelveDataIntervals[res]
	if !ok {
		return nil, fmt.Errorf("twelvedata: unsupported resolution %q", res)
	}

	if f.Limiter != nil {
		if err := f.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}
	}

	q := url.Values{}
	q.Set("symbol", twelveDataSymbol(symbol))
	q.Set("interval", interval)
	q.Set("outputsize", fmt.Sprint(f.OutputSize))
	q.Set("timezone", "UTC")
	q.Set("apikey", f.APIKey)
	endpoint := f.BaseURL + "/time_series?" + q.Encode()

	body, err := getWithRetry(ctx, f.Client, endpoint, f.Retries)
	if err != nil {
		return nil, fmt.Errorf("twelvedata fetch %s %s: %w", symbol, res, err)
	}

	var data twelveResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("twelvedata decode: %w", err)
	}
	if data.Status == "error" {
		return nil, fmt.Errorf("twelvedata api error: %s", data.Message)
	}
	if len(data.Values) == 0 {
		return nil, fmt.Errorf("twelvedata: empty data returned")
	}

	bars := make([]model.Bar, 0, len(data.Values))
	for _, v := range data.Values {
		t, err := parseTwelveDatetime(v.Datetime)
		if err != nil {
			return nil, err
		}
		bars = append(bars, model.Bar{Time: t, Open: v.Open, High: v.High, Low: v.Low, Close: v.Close})
	}

	// The API returns newest first.
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

func parseTwelveDatetime(s string) (time.Time, error) {
	for _, layout := range []string{time.DateTime, time.DateOnly} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("twelvedata: bad datetime %q", s)
}
