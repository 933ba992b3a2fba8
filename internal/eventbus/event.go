package eventbus

import (
	"log/slog"
	"time"
)

// Payload keys set on delivery events.
const (
	KeySource          = "source"
	KeyLogID           = "log_id"
	KeySubscriptionID  = "subscription_id"
	KeyTopic           = "topic"
	KeyDeliveryID      = "delivery_id"
	KeyDeliveryURL     = "delivery_url"
	KeyStatus          = "status"
	KeyResponseCode    = "response_code"
	KeyResponseMessage = "response_message"
)

// Event is one published application event. Timestamp is UTC.
type Event struct {
	Type      string            `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Payload   map[string]string `json:"payload"`
}

// Get returns the payload value for key, or "" when absent.
func (e Event) Get(key string) string {
	return e.Payload[key]
}

// LogValue renders the event type and the identifying payload keys.
func (e Event) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("type", e.Type),
		slog.String(KeySubscriptionID, e.Get(KeySubscriptionID)),
		slog.String(KeyDeliveryID, e.Get(KeyDeliveryID)),
		slog.String(KeyStatus, e.Get(KeyStatus)),
	)
}

// Listener handles an event. Listeners run on worker goroutines.
type Listener func(Event)
