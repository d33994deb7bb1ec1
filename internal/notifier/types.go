// Package notifier delivers small operator-facing messages (failed runs,
// sync results) over named channels. Delivery outcomes are counted in the
// metrics store per channel.
package notifier

import (
	"context"
	"errors"
)

var (
	ErrDisabled  = errors.New("notifier disabled")
	ErrQueueFull = errors.New("notifier queue full")
	ErrStopped   = errors.New("notifier stopped")
)

// Config controls the notification pipeline.
type Config struct {
	Enabled    bool
	RatePerSec float64
	QueueSize  int
}

// Notification is one message to deliver on every registered channel.
type Notification struct {
	Subject string
	Body    string
}

// Sender is one delivery channel (telegram, log, ...).
type Sender interface {
	Name() string
	Send(ctx context.Context, n Notification) error
}
