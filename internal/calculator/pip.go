package calculator

import "strings"

const (
	// SpecialQuote is the quote currency whose prices are quoted with two decimals.
	SpecialQuote = "JPY"

	pipSpecial = 0.05
	pipDefault = 0.0005
)

// QuoteCurrency extracts the quote leg from symbols like "USDJPY=X", "USD/JPY" or "usd-jpy".
func QuoteCurrency(symbol string) string {
	s := strings.TrimSuffix(strings.ToUpper(symbol), "=X")
	s = strings.NewReplacer("/", "", "-", "", "_", "", " ", "").Replace(s)
	if len(s) < 3 {
		return s
	}
	return s[len(s)-3:]
}

// PipThreshold returns the minimum meaningful price move for the instrument.
func PipThreshold(symbol string) float64 {
	if QuoteCurrency(symbol) == SpecialQuote {
		return pipSpecial
	}
	return pipDefault
}
