package storage

import (
	"context"
	"time"
)

// NotificationLogEntry records one alert sent (or attempted) for a delivery event.
type NotificationLogEntry struct {
	ID             int64     `json:"id"`
	EventType      string    `json:"event_type"`
	SubscriptionID string    `json:"subscription_id,omitempty"`
	DeliveryID     string    `json:"delivery_id,omitempty"`
	Provider       string    `json:"provider"`
	Subject        string    `json:"subject"`
	Status         string    `json:"status"`
	ErrorMsg       string    `json:"error_msg"`
	CreatedAt      time.Time `json:"created_at"`
}

// NotificationStore persists alert delivery attempts.
type NotificationStore interface {
	LogNotification(ctx context.Context, entry NotificationLogEntry) error
	// ListNotifications returns the newest entries first, up to limit.
	ListNotifications(ctx context.Context, limit int) ([]NotificationLogEntry, error)
}
