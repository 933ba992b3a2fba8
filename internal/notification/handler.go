package notification

import (
	"context"
	"log/slog"
	"time"

	"github.com/shaharia-lab/webhookd/internal/eventbus"
	"github.com/shaharia-lab/webhookd/internal/storage"
)

// Event types the handler reacts to. They match the delivery service's events.
const (
	EventDeliverySucceeded = "webhook.delivery.succeeded"
	EventDeliveryFailed    = "webhook.delivery.failed"
)

const sendTimeout = 30 * time.Second

// SettingsLoader loads the current settings. It is called on every event so
// edits to the settings file apply without a restart.
type SettingsLoader func() (*NotificationSettings, error)

// AlertHandler turns delivery events into email alerts.
type AlertHandler struct {
	settingsLoader SettingsLoader
	store          storage.NotificationStore
	logger         *slog.Logger
	newProvider    ProviderFactory
	now            func() time.Time
}

// NewAlertHandler creates an AlertHandler. A nil factory uses
// DefaultProviderFactory.
func NewAlertHandler(
	loader SettingsLoader, store storage.NotificationStore, factory ProviderFactory, logger *slog.Logger,
) *AlertHandler {
	if factory == nil {
		factory = DefaultProviderFactory
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AlertHandler{
		settingsLoader: loader,
		store:          store,
		logger:         logger,
		newProvider:    factory,
		now:            time.Now,
	}
}

func humanSubject(eventType string) string {
	switch eventType {
	case EventDeliverySucceeded:
		return "Webhook Delivery Succeeded"
	case EventDeliveryFailed:
		return "Webhook Delivery Failed"
	}
	return eventType
}

func shouldSendForEvent(eventType string, settings *NotificationSettings) bool {
	switch eventType {
	case EventDeliveryFailed:
		return settings.Preferences.IsOnFailedEnabled()
	case EventDeliverySucceeded:
		return settings.Preferences.IsOnSucceededEnabled()
	}
	return false
}

// Handle loads settings, sends the alert and records the attempt.
// Events other than delivery outcomes are ignored.
func (h *AlertHandler) Handle(eventType string, payload map[string]string) {
	settings, err := h.settingsLoader()
	if err != nil {
		h.logger.Error("loading notification settings failed", "error", err)
		return
	}
	if !settings.Enabled || !shouldSendForEvent(eventType, settings) {
		return
	}

	body, err := buildAlertBody(payload)
	if err != nil {
		h.logger.Error("rendering alert failed", "event", eventType, "error", err)
		return
	}
	provider := h.newProvider(settings.Provider)
	subject := buildSubject(humanSubject(eventType))

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	sendErr := provider.Send(ctx, Message{Subject: subject, Body: body})

	entry := storage.NotificationLogEntry{
		EventType:      eventType,
		SubscriptionID: payload[eventbus.KeySubscriptionID],
		DeliveryID:     payload[eventbus.KeyDeliveryID],
		Provider:       provider.Name(),
		Subject:        subject,
		Status:         "sent",
		CreatedAt:      h.now().UTC(),
	}
	if sendErr != nil {
		entry.Status = "failed"
		entry.ErrorMsg = sendErr.Error()
		h.logger.Warn("sending alert failed",
			"event", eventType, "subscription_id", entry.SubscriptionID, "error", sendErr)
	}

	if h.store == nil {
		return
	}
	if logErr := h.store.LogNotification(context.Background(), entry); logErr != nil {
		h.logger.Error("recording alert failed", "event", eventType, "error", logErr)
	}
}
