package notify

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
)

// Notifier delivers an alert on one channel.
type Notifier interface {
	Send(ctx context.Context, title, text string) error
}

// AlertError is a failed alert delivery. It never stops the watcher.
type AlertError struct {
	Channel string
	Err     error
}

func (e *AlertError) Error() string {
	return fmt.Sprintf("alert %s: %v", e.Channel, e.Err)
}

func (e *AlertError) Unwrap() error { return e.Err }

// Multi sends to every notifier and combines the failures.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, title, text string) error {
	var err error
	for _, n := range m {
		if n == nil {
			continue
		}
		err = multierr.Append(err, n.Send(ctx, title, text))
	}
	return err
}

// Nop discards alerts.
type Nop struct{}

func (Nop) Send(context.Context, string, string) error { return nil }
