// Package notify publishes instance lifecycle events.
package notify

import (
	"context"
	"time"
)

// Event types emitted by the provisioning flow.
const (
	EventInstanceCreated      = "instance.created"
	EventInstanceCreateFailed = "instance.create_failed"
	EventInstanceStarted      = "instance.started"
	EventInstanceStopped      = "instance.stopped"
	EventInstanceDeleted      = "instance.deleted"
	EventModelReady           = "model.ready"
)

// Event represents a notification event.
type Event struct {
	Type      string
	Message   string
	Timestamp time.Time
}

// Notifier sends alerts when notable events occur.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}
