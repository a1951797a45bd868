// Package notifier delivers operator notifications for events that deserve
// attention outside the logs, such as failed batch submissions.
package notifier

import "time"

// Notifier sends a message to the operator.
type Notifier interface {
	Send(msg string) error
	SendWithRetry(msg string) error
}

// Noop discards every message; used when no Telegram credentials are
// configured.
type Noop struct{}

func NewNoop() Noop { return Noop{} }

func (Noop) Send(string) error          { return nil }
func (Noop) SendWithRetry(string) error { return nil }

// retrySend attempts fn a fixed number of times with a constant delay.
func retrySend(attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		time.Sleep(delay)
	}
	return err
}
