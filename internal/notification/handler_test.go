package notification_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaharia-lab/webhookd/internal/notification"
	"github.com/shaharia-lab/webhookd/internal/storage"
)

// --- stubs ---

type stubStore struct {
	entries []storage.NotificationLogEntry
	err     error
}

func (s *stubStore) LogNotification(_ context.Context, entry storage.NotificationLogEntry) error {
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *stubStore) ListNotifications(_ context.Context, _ int) ([]storage.NotificationLogEntry, error) {
	return s.entries, nil
}

type fakeProvider struct {
	sent []notification.Message
	err  error
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Send(_ context.Context, msg notification.Message) error {
	p.sent = append(p.sent, msg)
	return p.err
}

func silentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func enabledSettings() *notification.NotificationSettings {
	return &notification.NotificationSettings{
		Enabled: true,
		Provider: notification.SMTPConfig{
			Host:     "smtp.example.com",
			Port:     587,
			FromAddr: "alerts@example.com",
			ToAddrs:  "ops@example.com",
		},
	}
}

func newHandler(settings *notification.NotificationSettings, store *stubStore, p *fakeProvider) *notification.AlertHandler {
	loader := func() (*notification.NotificationSettings, error) { return settings, nil }
	factory := func(notification.SMTPConfig) notification.Provider { return p }
	return notification.NewAlertHandler(loader, store, factory, silentLogger())
}

var failedPayload = map[string]string{
	"source":           "test",
	"subscription_id":  "42",
	"topic":            "order.created",
	"delivery_id":      "d-1",
	"delivery_url":     "https://example.com/hook",
	"status":           "failed",
	"response_code":    "500",
	"response_message": "Internal Server Error",
}

// --- tests ---

func TestHandle_FailedDeliverySendsAlert(t *testing.T) {
	store := &stubStore{}
	p := &fakeProvider{}
	h := newHandler(enabledSettings(), store, p)

	h.Handle(notification.EventDeliveryFailed, failedPayload)

	require.Len(t, p.sent, 1)
	msg := p.sent[0]
	assert.Equal(t, "webhookd alert - Webhook Delivery Failed", msg.Subject)
	assert.Contains(t, msg.Body, "A webhook delivery failed.")
	assert.Contains(t, msg.Body, "order.created")
	assert.Contains(t, msg.Body, "https://example.com/hook")
	assert.Contains(t, msg.Body, "500")

	require.Len(t, store.entries, 1)
	entry := store.entries[0]
	assert.Equal(t, "sent", entry.Status)
	assert.Equal(t, "fake", entry.Provider)
	assert.Equal(t, "42", entry.SubscriptionID)
	assert.Equal(t, "d-1", entry.DeliveryID)
}

func TestHandle_NotificationsDisabled(t *testing.T) {
	store := &stubStore{}
	p := &fakeProvider{}
	settings := enabledSettings()
	settings.Enabled = false
	h := newHandler(settings, store, p)

	h.Handle(notification.EventDeliveryFailed, failedPayload)

	assert.Empty(t, p.sent)
	assert.Empty(t, store.entries)
}

func TestHandle_SuccessIsOptIn(t *testing.T) {
	p := &fakeProvider{}
	h := newHandler(enabledSettings(), &stubStore{}, p)
	h.Handle(notification.EventDeliverySucceeded, map[string]string{"status": "success"})
	assert.Empty(t, p.sent)

	on := true
	settings := enabledSettings()
	settings.Preferences.OnSucceeded = &on
	h = newHandler(settings, &stubStore{}, p)
	h.Handle(notification.EventDeliverySucceeded, map[string]string{"status": "success"})
	require.Len(t, p.sent, 1)
	assert.Contains(t, p.sent[0].Body, "succeeded")
	assert.Contains(t, p.sent[0].Body, "Response code:  none")
}

func TestHandle_FailedCanBeMuted(t *testing.T) {
	off := false
	settings := enabledSettings()
	settings.Preferences.OnFailed = &off
	p := &fakeProvider{}
	h := newHandler(settings, &stubStore{}, p)

	h.Handle(notification.EventDeliveryFailed, failedPayload)
	assert.Empty(t, p.sent)
}

func TestHandle_UnknownEventIgnored(t *testing.T) {
	p := &fakeProvider{}
	h := newHandler(enabledSettings(), &stubStore{}, p)
	h.Handle("something.else", nil)
	assert.Empty(t, p.sent)
}

func TestHandle_SendErrorIsRecorded(t *testing.T) {
	store := &stubStore{}
	p := &fakeProvider{err: errors.New("connection refused")}
	h := newHandler(enabledSettings(), store, p)

	h.Handle(notification.EventDeliveryFailed, failedPayload)

	require.Len(t, store.entries, 1)
	assert.Equal(t, "failed", store.entries[0].Status)
	assert.Equal(t, "connection refused", store.entries[0].ErrorMsg)
}

func TestHandle_LoaderError(t *testing.T) {
	store := &stubStore{}
	p := &fakeProvider{}
	loader := func() (*notification.NotificationSettings, error) {
		return nil, errors.New("load failure")
	}
	h := notification.NewAlertHandler(loader, store, func(notification.SMTPConfig) notification.Provider { return p }, silentLogger())

	h.Handle(notification.EventDeliveryFailed, failedPayload)
	assert.Empty(t, p.sent)
	assert.Empty(t, store.entries)
}

func TestHandle_LogStoreErrorDoesNotPanic(t *testing.T) {
	store := &stubStore{err: errors.New("db error")}
	p := &fakeProvider{}
	h := newHandler(enabledSettings(), store, p)

	assert.NotPanics(t, func() { h.Handle(notification.EventDeliveryFailed, failedPayload) })
	assert.Len(t, p.sent, 1)
}

func TestHandle_NilStore(t *testing.T) {
	p := &fakeProvider{}
	loader := func() (*notification.NotificationSettings, error) { return enabledSettings(), nil }
	h := notification.NewAlertHandler(loader, nil, func(notification.SMTPConfig) notification.Provider { return p }, nil)

	assert.NotPanics(t, func() { h.Handle(notification.EventDeliveryFailed, failedPayload) })
	assert.Len(t, p.sent, 1)
}
