// Package notify records in-app notifications and pushes them to the
// customer's devices through a OneSignal-style push API. Delivery is
// best-effort by contract: callers fire and forget, and a push failure
// never affects the state transition that triggered it.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Notification is an in-app notification record.
type Notification struct {
	ID         string
	CustomerID string
	Title      string
	Message    string
	Read       bool
	CreatedAt  time.Time
}

// Repository persists in-app notifications.
type Repository interface {
	Create(ctx context.Context, n *Notification) error
	ListByCustomer(ctx context.Context, customerID string) ([]Notification, error)
	MarkRead(ctx context.Context, id string) error
}

// Pusher delivers a notification to the customer's devices.
type Pusher interface {
	Push(ctx context.Context, title, message string) error
}

// Dispatcher stores an in-app notification and pushes it.
type Dispatcher struct {
	repo   Repository
	pusher Pusher
}

// NewDispatcher creates a Dispatcher. pusher may be nil, in which case only
// the in-app record is written.
func NewDispatcher(repo Repository, pusher Pusher) *Dispatcher {
	return &Dispatcher{repo: repo, pusher: pusher}
}

// Notify records the notification and pushes it. The in-app record is
// written first; a push failure is returned for logging but the record
// stays.
func (d *Dispatcher) Notify(ctx context.Context, customerID, title, message string) error {
	n := &Notification{
		ID:         uuid.New().String(),
		CustomerID: customerID,
		Title:      title,
		Message:    message,
	}
	if err := d.repo.Create(ctx, n); err != nil {
		return err
	}
	if d.pusher != nil {
		return d.pusher.Push(ctx, title, message)
	}
	return nil
}
