package domain

import "context"

// Notifier delivers a failure report to an operator. Implementations
// must be usable before any job resources (lock, mount) exist.
type Notifier interface {
	Notify(ctx context.Context, subject string, body string) error
}
