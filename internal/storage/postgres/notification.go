package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rxkart/checkout-api/internal/notify"
)

const (
	createNotificationSQL = `INSERT INTO notifications (id, customer_id, title, message)
		VALUES ($1, $2, $3, $4)`

	listNotificationsSQL = `SELECT id, customer_id, title, message, is_read, created_at
		FROM notifications WHERE customer_id = $1 ORDER BY created_at DESC`

	markNotificationReadSQL = `UPDATE notifications SET is_read = TRUE WHERE id = $1`
)

var _ notify.Repository = (*NotificationRepository)(nil)

// NotificationRepository implements notify.Repository backed by PostgreSQL.
type NotificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository returns a NotificationRepository that uses the
// given pool.
func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

// Create persists an in-app notification.
func (r *NotificationRepository) Create(ctx context.Context, n *notify.Notification) error {
	_, err := r.pool.Exec(ctx, createNotificationSQL, n.ID, n.CustomerID, n.Title, n.Message)
	if err != nil {
		return fmt.Errorf("creating notification for %q: %w", n.CustomerID, err)
	}
	return nil
}

// ListByCustomer returns the customer's notifications, newest first.
func (r *NotificationRepository) ListByCustomer(ctx context.Context, customerID string) ([]notify.Notification, error) {
	rows, err := r.pool.Query(ctx, listNotificationsSQL, customerID)
	if err != nil {
		return nil, fmt.Errorf("listing notifications for %q: %w", customerID, err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (notify.Notification, error) {
		var n notify.Notification
		err := row.Scan(&n.ID, &n.CustomerID, &n.Title, &n.Message, &n.Read, &n.CreatedAt)
		return n, err
	})
}

// MarkRead marks a single notification as read.
func (r *NotificationRepository) MarkRead(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, markNotificationReadSQL, id)
	if err != nil {
		return fmt.Errorf("marking notification %q read: %w", id, err)
	}
	return nil
}
