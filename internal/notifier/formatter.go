package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"FxSentinel/internal/model"
)

const timeLayout = "2006-01-02 15:04:05"

var signEmoji = map[model.Sign]string{
	model.SignNone:                "⚪",
	model.SignBullish:             "🟢",
	model.SignBullishReversal:     "🟢",
	model.SignBullishBreakthrough: "🟢",
	model.SignStrongSupport:       "🟢",
	model.SignBearish:             "🔴",
	model.SignBearishReversal:     "🔴",
	model.SignBearishBreakthrough: "🔴",
	model.SignStrongResistance:    "🔴",
	model.SignPotentialReversal:   "🔄",
	model.SignStrongReversal:      "🔄",
	model.SignStableSwing:         "🟡",
}

var volatilityEmoji = map[model.VolatilityClass]string{
	model.VolatilityNormal:        "🔵",
	model.VolatilityExecuteNow:    "⚡",
	model.VolatilityHighUptrend:   "⚡",
	model.VolatilityHighDowntrend: "⚡",
	model.VolatilitySuperHigh:     "🚨",
}

// SignEmoji returns the marker shown next to an hourly sign.
func SignEmoji(s model.Sign) string {
	if e, ok := signEmoji[s]; ok {
		return e
	}
	return "⚪"
}

// VolatilityEmoji returns the marker shown next to a five-minute class.
func VolatilityEmoji(v model.VolatilityClass) string {
	if e, ok := volatilityEmoji[v]; ok {
		return e
	}
	return "🔵"
}

func PriceEmoji(change float64) string {
	switch {
	case change > 0:
		return "📈"
	case change < 0:
		return "📉"
	default:
		return "➖"
	}
}

// DisplayName strips the Yahoo FX suffix from an instrument id.
func DisplayName(instrument string) string {
	return strings.TrimSuffix(instrument, "=X")
}

// FormatPair formats one instrument block.
func FormatPair(s model.SignalState) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("<code>%s</code> - <b>%s</b>\n",
		s.LastUpdate.UTC().Format(timeLayout), html.EscapeString(DisplayName(s.Instrument))))
	b.WriteString(fmt.Sprintf("%s <code>%.5f</code> (%+.2f%%)\n",
		PriceEmoji(s.PriceChange), s.CurrentPrice, s.PriceChangePct))
	b.WriteString(fmt.Sprintf("%s 1H: <code>%s</code>\n", SignEmoji(s.Trend.Sign), s.Trend.Sign))
	b.WriteString(fmt.Sprintf("%s 5M: <code>%s</code>\n", VolatilityEmoji(s.Volatility.Class), s.Volatility.Class))
	return b.String()
}

// FormatStatus formats the consolidated cycle message. Only instruments carrying an
// hourly sign are listed.
func FormatStatus(states []model.SignalState, at time.Time) string {
	var b strings.Builder
	writeHeader(&b, at)

	active := 0
	for _, s := range states {
		if !s.Active() {
			continue
		}
		b.WriteString("\n")
		b.WriteString(FormatPair(s))
		active++
	}
	if active == 0 {
		b.WriteString("\n🔵 No active signals detected")
	}
	return b.String()
}

// FormatOverview lists every tracked instrument, active or not.
func FormatOverview(states []model.SignalState, at time.Time) string {
	var b strings.Builder
	writeHeader(&b, at)
	if len(states) == 0 {
		b.WriteString("\nNo instruments tracked yet")
		return b.String()
	}
	for _, s := range states {
		b.WriteString("\n")
		b.WriteString(FormatPair(s))
	}
	return b.String()
}

func FormatStartup(instruments []string, at time.Time) string {
	names := make([]string, len(instruments))
	for i, id := range instruments {
		names[i] = DisplayName(id)
	}
	return fmt.Sprintf("🤖 <b>Forex Monitor Started</b>\n⏰ %s UTC\nTracking: %s",
		at.UTC().Format(timeLayout), html.EscapeString(strings.Join(names, ", ")))
}

func FormatHelp() string {
	return "<b>Commands</b>\n" +
		"/status - all tracked pairs\n" +
		"/pair SYMBOL - one pair, e.g. /pair EURUSD\n" +
		"/help - this message"
}

func writeHeader(b *strings.Builder, at time.Time) {
	b.WriteString("📊 <b>Forex Status Update</b>\n")
	b.WriteString(fmt.Sprintf("⏰ %s UTC\n", at.UTC().Format(timeLayout)))
}
