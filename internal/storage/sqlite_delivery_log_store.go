package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/shaharia-lab/webhookd/internal/webhook"
)

// SQLiteDeliveryLogStore implements DeliveryLogStore backed by SQLite.
// Insertion order is tracked by an autoincrement sequence column, so ordering
// does not depend on clock resolution.
type SQLiteDeliveryLogStore struct {
	db        *sql.DB
	retention int
}

// NewSQLiteDeliveryLogStore returns a store keeping at most retention entries.
// A retention <= 0 uses DefaultLogRetention.
func NewSQLiteDeliveryLogStore(db *sql.DB, retention int) *SQLiteDeliveryLogStore {
	return &SQLiteDeliveryLogStore{db: db, retention: retentionOrDefault(retention)}
}

// Append inserts entry and prunes everything beyond the retention window in
// the same transaction.
func (s *SQLiteDeliveryLogStore) Append(ctx context.Context, entry *webhook.DeliveryLogEntry) error {
	if entry.ID == "" {
		entry.ID = newEntryID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	var code sql.NullInt64
	if entry.ResponseCode != nil {
		code = sql.NullInt64{Int64: int64(*entry.ResponseCode), Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delivery log append: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO delivery_log (id, webhook_id, topic, resource, event, delivery_id, delivery_url,
		                          status, response_code, response_message, payload, date_created)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.SubscriptionID, string(entry.Topic), entry.Resource, entry.Event,
		entry.DeliveryID, entry.DeliveryURL, string(entry.Status), code,
		entry.ResponseMessage, string(entry.Payload), entry.CreatedAt.UTC(),
	); err != nil {
		rollback(tx)
		return fmt.Errorf("inserting delivery log entry: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM delivery_log
		WHERE seq NOT IN (SELECT seq FROM delivery_log ORDER BY seq DESC LIMIT ?)`,
		s.retention,
	); err != nil {
		rollback(tx)
		return fmt.Errorf("pruning delivery log: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delivery log append: %w", err)
	}
	return nil
}

// List returns entries ordered most-recent-first, optionally filtered by
// subscription.
func (s *SQLiteDeliveryLogStore) List(ctx context.Context, subscriptionID string) (entries []*webhook.DeliveryLogEntry, err error) {
	query := `
		SELECT id, webhook_id, topic, resource, event, delivery_id, delivery_url,
		       status, response_code, response_message, payload, date_created
		FROM delivery_log`
	var args []any
	if subscriptionID != "" {
		query += " WHERE webhook_id = ?"
		args = append(args, subscriptionID)
	}
	query += " ORDER BY seq DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying delivery log: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", cerr)
		}
	}()

	entries = []*webhook.DeliveryLogEntry{}
	for rows.Next() {
		var (
			e       webhook.DeliveryLogEntry
			topic   string
			status  string
			code    sql.NullInt64
			payload string
		)
		if err := rows.Scan(&e.ID, &e.SubscriptionID, &topic, &e.Resource, &e.Event,
			&e.DeliveryID, &e.DeliveryURL, &status, &code, &e.ResponseMessage,
			&payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning delivery log row: %w", err)
		}
		e.Topic = webhook.Topic(topic)
		e.Status = webhook.DeliveryStatus(status)
		if code.Valid {
			c := int(code.Int64)
			e.ResponseCode = &c
		}
		if payload != "" && json.Valid([]byte(payload)) {
			e.Payload = json.RawMessage(payload)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating delivery log rows: %w", err)
	}
	return entries, nil
}

// Clear deletes every delivery log entry.
func (s *SQLiteDeliveryLogStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM delivery_log"); err != nil {
		return fmt.Errorf("clearing delivery log: %w", err)
	}
	return nil
}

func rollback(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil {
		log.Printf("failed to rollback transaction: %v", err)
	}
}
