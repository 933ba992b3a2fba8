package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaharia-lab/webhookd/internal/notification"
	"github.com/shaharia-lab/webhookd/internal/service"
	"github.com/shaharia-lab/webhookd/internal/storage"
)

// --- in-memory notification store ---

type memNotificationStore struct {
	entries []storage.NotificationLogEntry
	err     error
}

func (m *memNotificationStore) LogNotification(_ context.Context, e storage.NotificationLogEntry) error {
	m.entries = append(m.entries, e)
	return nil
}

func (m *memNotificationStore) ListNotifications(_ context.Context, limit int) ([]storage.NotificationLogEntry, error) {
	if m.err != nil {
		return nil, m.err
	}
	if limit > 0 && len(m.entries) > limit {
		return m.entries[:limit], nil
	}
	return m.entries, nil
}

type recordingProvider struct {
	sent []notification.Message
	cfg  notification.SMTPConfig
}

func (p *recordingProvider) Name() string { return "recording" }

func (p *recordingProvider) Send(_ context.Context, msg notification.Message) error {
	p.sent = append(p.sent, msg)
	return nil
}

func newTestNotificationService(t *testing.T) (service.NotificationService, *memNotificationStore, *recordingProvider, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "notifications.yaml")
	store := &memNotificationStore{}
	p := &recordingProvider{}
	factory := func(cfg notification.SMTPConfig) notification.Provider {
		p.cfg = cfg
		return p
	}
	return service.NewNotificationService(path, store, factory), store, p, path
}

func buildSMTPSettings() *notification.NotificationSettings {
	return &notification.NotificationSettings{
		Enabled: true,
		Provider: notification.SMTPConfig{
			Host:       "smtp.example.com",
			Port:       587,
			Username:   "user",
			Password:   "secret",
			FromAddr:   "from@example.com",
			ToAddrs:    "to@example.com",
			Encryption: "starttls",
		},
	}
}

func TestGetSettings_DefaultEmpty(t *testing.T) {
	svc, _, _, _ := newTestNotificationService(t)
	ns, err := svc.GetSettings()
	require.NoError(t, err)
	assert.False(t, ns.Enabled)
}

func TestUpdateAndGet_RoundTrip(t *testing.T) {
	svc, _, _, path := newTestNotificationService(t)

	require.NoError(t, svc.UpdateSettings(buildSMTPSettings()))

	got, err := svc.GetSettings()
	require.NoError(t, err)
	assert.True(t, got.Enabled)
	assert.Equal(t, "smtp.example.com", got.Provider.Host)
	assert.Equal(t, "***", got.Provider.Password)

	onDisk, err := notification.LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "secret", onDisk.Provider.Password)
}

func TestUpdateSettings_PreservesPassword(t *testing.T) {
	svc, _, _, path := newTestNotificationService(t)
	require.NoError(t, svc.UpdateSettings(buildSMTPSettings()))

	update := buildSMTPSettings()
	update.Provider.Password = "***"
	update.Provider.Host = "new-smtp.example.com"
	require.NoError(t, svc.UpdateSettings(update))

	onDisk, err := notification.LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "new-smtp.example.com", onDisk.Provider.Host)
	assert.Equal(t, "secret", onDisk.Provider.Password)
}

func TestUpdateSettings_ValidatesWhenEnabled(t *testing.T) {
	svc, _, _, _ := newTestNotificationService(t)

	bad := buildSMTPSettings()
	bad.Provider.Host = ""
	err := svc.UpdateSettings(bad)
	var ve *service.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "provider", ve.Field)

	bad.Enabled = false
	assert.NoError(t, svc.UpdateSettings(bad), "disabled settings may be incomplete")
}

func TestTestNotification_WorksWhenDisabled(t *testing.T) {
	svc, _, p, _ := newTestNotificationService(t)
	settings := buildSMTPSettings()
	settings.Enabled = false
	require.NoError(t, svc.UpdateSettings(settings))

	require.NoError(t, svc.TestNotification(context.Background()))
	require.Len(t, p.sent, 1)
	assert.Equal(t, notification.SubjectPrefix+"Test Notification", p.sent[0].Subject)
	assert.Equal(t, "secret", p.cfg.Password, "provider gets the unmasked password")
}

func TestNotificationListLog(t *testing.T) {
	svc, store, _, _ := newTestNotificationService(t)
	for i := 0; i < 3; i++ {
		_ = store.LogNotification(context.Background(), storage.NotificationLogEntry{
			EventType: service.EventDeliveryFailed,
			Provider:  "smtp",
			Status:    "sent",
		})
	}

	list, err := svc.ListLog(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	store.err = errors.New("db closed")
	_, err = svc.ListLog(context.Background(), 10)
	var su *service.StoreUnavailableError
	assert.ErrorAs(t, err, &su)
}
