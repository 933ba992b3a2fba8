// Package webhook holds the domain types shared by the subscription registry,
// the delivery harness and the delivery log: subscriptions, delivery log
// entries, the topic catalog and the HMAC signature engine.
package webhook

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// MaxResponseMessage is the maximum number of runes kept from a receiver's
// response (or a transport error) in a delivery log entry.
const MaxResponseMessage = 500

// Status is the lifecycle state of a subscription.
type Status string

// Subscription statuses.
const (
	StatusActive   Status = "active"
	StatusPaused   Status = "paused"
	StatusDisabled Status = "disabled"
)

// Valid reports whether s is one of the known subscription statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusPaused, StatusDisabled:
		return true
	}
	return false
}

// DeliveryStatus is the outcome of one delivery attempt.
type DeliveryStatus string

// Delivery outcomes. Pending is only produced by externally reported
// deliveries; a synchronous test is always success or failed.
const (
	DeliverySuccess DeliveryStatus = "success"
	DeliveryFailed  DeliveryStatus = "failed"
	DeliveryPending DeliveryStatus = "pending"
)

// Valid reports whether s is one of the known delivery outcomes.
func (s DeliveryStatus) Valid() bool {
	switch s {
	case DeliverySuccess, DeliveryFailed, DeliveryPending:
		return true
	}
	return false
}

// Subscription binds one topic to one delivery URL and an optional signing
// secret. ID, CreatedAt and ModifiedAt are assigned by the subscription store.
type Subscription struct {
	ID          string    `json:"id,omitempty"`
	Name        string    `json:"name"`
	Status      Status    `json:"status"`
	Topic       Topic     `json:"topic"`
	DeliveryURL string    `json:"delivery_url"`
	Secret      string    `json:"secret,omitempty"`
	CreatedAt   time.Time `json:"date_created"`
	ModifiedAt  time.Time `json:"date_modified"`
}

// SubscriptionPatch is a partial update. Nil fields are left unchanged.
type SubscriptionPatch struct {
	Name        *string `json:"name,omitempty"`
	Status      *Status `json:"status,omitempty"`
	Topic       *Topic  `json:"topic,omitempty"`
	DeliveryURL *string `json:"delivery_url,omitempty"`
	Secret      *string `json:"secret,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p SubscriptionPatch) IsEmpty() bool {
	return p.Name == nil && p.Status == nil && p.Topic == nil && p.DeliveryURL == nil && p.Secret == nil
}

// Apply copies the non-nil fields of p onto s.
func (p SubscriptionPatch) Apply(s *Subscription) {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.Status != nil {
		s.Status = *p.Status
	}
	if p.Topic != nil {
		s.Topic = *p.Topic
	}
	if p.DeliveryURL != nil {
		s.DeliveryURL = *p.DeliveryURL
	}
	if p.Secret != nil {
		s.Secret = *p.Secret
	}
}

// Event is the JSON body posted to a delivery URL.
type Event struct {
	ID        string    `json:"id"`
	Event     string    `json:"event"`
	CreatedAt time.Time `json:"created_at"`
	Resource  string    `json:"resource"`
	EventID   int64     `json:"event_id"`
	Topic     Topic     `json:"topic"`
	Payload   any       `json:"payload"`
}

// DeliveryLogEntry is an immutable record of one delivery attempt.
// SubscriptionID is empty for ad-hoc deliveries not bound to a stored
// subscription. ResponseCode is nil when no HTTP response was received.
type DeliveryLogEntry struct {
	ID              string          `json:"id"`
	SubscriptionID  string          `json:"webhook_id,omitempty"`
	Topic           Topic           `json:"topic"`
	Resource        string          `json:"resource"`
	Event           string          `json:"event"`
	DeliveryID      string          `json:"delivery_id"`
	DeliveryURL     string          `json:"delivery_url"`
	CreatedAt       time.Time       `json:"date_created"`
	Status          DeliveryStatus  `json:"status"`
	ResponseCode    *int            `json:"response_code,omitempty"`
	ResponseMessage string          `json:"response_message,omitempty"`
	Payload         json.RawMessage `json:"payload,omitempty"`
}

// StoreDelivery is a delivery attempt as recorded by the remote storefront
// itself, independent of the local delivery log. Times are UTC.
type StoreDelivery struct {
	ID              int64             `json:"id"`
	Duration        string            `json:"duration,omitempty"`
	Summary         string            `json:"summary,omitempty"`
	RequestURL      string            `json:"request_url,omitempty"`
	RequestHeaders  map[string]string `json:"request_headers,omitempty"`
	RequestBody     string            `json:"request_body,omitempty"`
	ResponseCode    string            `json:"response_code,omitempty"`
	ResponseMessage string            `json:"response_message,omitempty"`
	ResponseBody    string            `json:"response_body,omitempty"`
	CreatedAt       time.Time         `json:"date_created"`
}

// Stats is a summary of the registry and the delivery log. It is derived on
// demand and never stored.
type Stats struct {
	TotalSubscriptions   int     `json:"total_webhooks"`
	ActiveSubscriptions  int     `json:"active_webhooks"`
	TotalDeliveries      int     `json:"total_deliveries"`
	SuccessfulDeliveries int     `json:"successful_deliveries"`
	FailedDeliveries     int     `json:"failed_deliveries"`
	SuccessRate          float64 `json:"success_rate"`
}

// ValidateDeliveryURL checks that raw is an absolute http or https URL with a host.
func ValidateDeliveryURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("delivery_url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("delivery_url is not a valid URL: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("delivery_url must be an absolute URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("delivery_url scheme must be http or https, got %q", u.Scheme)
	}
	return nil
}

// TruncateMessage keeps the first line of msg, capped at MaxResponseMessage runes.
func TruncateMessage(msg string) string {
	msg = strings.TrimSpace(msg)
	if i := strings.IndexAny(msg, "\r\n"); i >= 0 {
		msg = msg[:i]
	}
	runes := []rune(msg)
	if len(runes) > MaxResponseMessage {
		return string(runes[:MaxResponseMessage])
	}
	return msg
}
