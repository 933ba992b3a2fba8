package service

// Delivery event types published after every test, receive or record.
const (
	EventDeliverySucceeded = "webhook.delivery.succeeded"
	EventDeliveryFailed    = "webhook.delivery.failed"
)

// EventPublisher is the interface for publishing application events.
// Services use this interface to emit events without depending on a concrete
// event bus implementation.
type EventPublisher interface {
	Publish(eventType string, payload map[string]string)
}
