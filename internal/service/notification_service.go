package service

import (
	"context"
	"fmt"

	"github.com/shaharia-lab/webhookd/internal/notification"
	"github.com/shaharia-lab/webhookd/internal/storage"
)

const maskedPassword = "***"

// NotificationService manages alert settings and the alert log.
type NotificationService interface {
	// GetSettings returns the current settings with the SMTP password masked.
	GetSettings() (*notification.NotificationSettings, error)
	// UpdateSettings persists new settings. A masked password keeps the stored one.
	UpdateSettings(settings *notification.NotificationSettings) error
	// TestNotification sends a test alert with the current settings, even
	// when alerts are disabled.
	TestNotification(ctx context.Context) error
	ListLog(ctx context.Context, limit int) ([]storage.NotificationLogEntry, error)
}

type notificationService struct {
	settingsPath string
	store        storage.NotificationStore
	newProvider  notification.ProviderFactory
}

// NewNotificationService creates a NotificationService over the YAML file at
// settingsPath. A nil factory uses notification.DefaultProviderFactory.
func NewNotificationService(
	settingsPath string, store storage.NotificationStore, factory notification.ProviderFactory,
) NotificationService {
	if factory == nil {
		factory = notification.DefaultProviderFactory
	}
	return &notificationService{settingsPath: settingsPath, store: store, newProvider: factory}
}

func (s *notificationService) GetSettings() (*notification.NotificationSettings, error) {
	ns, err := notification.LoadSettings(s.settingsPath)
	if err != nil {
		return nil, err
	}
	if ns.Provider.Password != "" {
		ns.Provider.Password = maskedPassword
	}
	return ns, nil
}

func (s *notificationService) UpdateSettings(incoming *notification.NotificationSettings) error {
	if incoming == nil {
		return &ValidationError{Message: "settings are required"}
	}
	if incoming.Enabled {
		if err := incoming.Provider.Validate(); err != nil {
			return &ValidationError{Field: "provider", Message: err.Error()}
		}
	}
	if incoming.Provider.Password == maskedPassword {
		existing, err := notification.LoadSettings(s.settingsPath)
		if err != nil {
			return fmt.Errorf("loading existing settings: %w", err)
		}
		incoming.Provider.Password = existing.Provider.Password
	}
	if err := notification.SaveSettings(s.settingsPath, incoming); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	return nil
}

func (s *notificationService) TestNotification(ctx context.Context) error {
	ns, err := notification.LoadSettings(s.settingsPath)
	if err != nil {
		return err
	}
	provider := s.newProvider(ns.Provider)
	return provider.Send(ctx, notification.Message{
		Subject: notification.SubjectPrefix + "Test Notification",
		Body:    "This is a test alert from webhookd.\n\nYour SMTP configuration is working.",
	})
}

func (s *notificationService) ListLog(ctx context.Context, limit int) ([]storage.NotificationLogEntry, error) {
	entries, err := s.store.ListNotifications(ctx, limit)
	if err != nil {
		return nil, &StoreUnavailableError{Op: "list notification log", Err: err}
	}
	return entries, nil
}
