package notifier

import "context"

// Notifier delivers formatted messages to the operator.
type Notifier interface {
	// Send posts a standalone message.
	Send(ctx context.Context, text string) error
	// ReplaceStatus posts text as the new status message, removing the previous one.
	ReplaceStatus(ctx context.Context, text string) error
}

// CommandHandler is called when a user command is received and returns the reply.
type CommandHandler func(command string) string

// Noop discards all messages.
type Noop struct{}

func (Noop) Send(context.Context, string) error          { return nil }
func (Noop) ReplaceStatus(context.Context, string) error { return nil }
