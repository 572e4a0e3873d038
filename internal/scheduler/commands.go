package scheduler

import (
	"fmt"
	"html"
	"strings"

	"FxSentinel/internal/notifier"
)

// HandleCommand processes a user command and returns a reply.
func (o *Orchestrator) HandleCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.FormatHelp()
	}
	// Group chats address commands as /status@botname.
	cmd, _, _ := strings.Cut(strings.ToLower(fields[0]), "@")

	switch cmd {
	case "/status":
		return notifier.FormatOverview(o.table.Snapshots(), o.clock.Now())
	case "/pair":
		if len(fields) < 2 {
			return "Usage: /pair SYMBOL, e.g. /pair EURUSD"
		}
		id := normalizeSymbol(fields[1])
		s, ok := o.table.Snapshot(id)
		if !ok {
			return fmt.Sprintf("Pair %s is not tracked", html.EscapeString(id))
		}
		return notifier.FormatPair(s)
	default:
		return notifier.FormatHelp()
	}
}

// normalizeSymbol maps user input such as "eurusd" or "EUR/USD" to "EURUSD=X".
func normalizeSymbol(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "/", "")
	if !strings.HasSuffix(s, "=X") && len(s) == 6 {
		s += "=X"
	}
	return s
}
