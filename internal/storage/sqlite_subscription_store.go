package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shaharia-lab/webhookd/internal/webhook"
)

// SQLiteSubscriptionStore implements SubscriptionStore backed by SQLite. It is
// used when no remote storefront is configured.
type SQLiteSubscriptionStore struct {
	db *sql.DB
}

// NewSQLiteSubscriptionStore returns a new SQLiteSubscriptionStore.
func NewSQLiteSubscriptionStore(db *sql.DB) *SQLiteSubscriptionStore {
	return &SQLiteSubscriptionStore{db: db}
}

const subscriptionColumns = `id, name, status, topic, delivery_url, secret, date_created, date_modified`

// List returns all subscriptions in insertion order.
func (s *SQLiteSubscriptionStore) List(ctx context.Context) (subs []*webhook.Subscription, err error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("querying subscriptions: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", cerr)
		}
	}()

	subs = []*webhook.Subscription{}
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating subscription rows: %w", err)
	}
	return subs, nil
}

// Get returns the subscription with the given id or ErrNotFound.
func (s *SQLiteSubscriptionStore) Get(ctx context.Context, id string) (*webhook.Subscription, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = ?`, id)
	sub, err := scanSubscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("subscription %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Create assigns a UUID and timestamps, then inserts the subscription.
func (s *SQLiteSubscriptionStore) Create(ctx context.Context, sub *webhook.Subscription) (*webhook.Subscription, error) {
	stored := *sub
	stored.ID = uuid.NewString()
	now := time.Now().UTC()
	stored.CreatedAt = now
	stored.ModifiedAt = now
	if stored.Status == "" {
		stored.Status = webhook.StatusActive
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subscriptions (`+subscriptionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		stored.ID, stored.Name, string(stored.Status), string(stored.Topic),
		stored.DeliveryURL, stored.Secret, stored.CreatedAt, stored.ModifiedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting subscription: %w", err)
	}
	return &stored, nil
}

// Update applies patch to the stored subscription and bumps date_modified.
func (s *SQLiteSubscriptionStore) Update(ctx context.Context, id string, patch webhook.SubscriptionPatch) (*webhook.Subscription, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	patch.Apply(existing)
	existing.ModifiedAt = time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET name = ?, status = ?, topic = ?, delivery_url = ?, secret = ?, date_modified = ?
		WHERE id = ?`,
		existing.Name, string(existing.Status), string(existing.Topic),
		existing.DeliveryURL, existing.Secret, existing.ModifiedAt, id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating subscription %q: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("subscription %q: %w", id, ErrNotFound)
	}
	return existing, nil
}

// Delete removes the subscription. Deleting an unknown id returns ErrNotFound.
func (s *SQLiteSubscriptionStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting subscription %q: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting subscription %q: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("subscription %q: %w", id, ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (*webhook.Subscription, error) {
	var (
		sub    webhook.Subscription
		status string
		topic  string
	)
	if err := row.Scan(&sub.ID, &sub.Name, &status, &topic, &sub.DeliveryURL,
		&sub.Secret, &sub.CreatedAt, &sub.ModifiedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning subscription row: %w", err)
	}
	sub.Status = webhook.Status(status)
	sub.Topic = webhook.Topic(topic)
	return &sub, nil
}
