// Package notification sends operator alerts (email via SMTP) when webhook
// deliveries fail, and keeps the alert settings file.
package notification

import "context"

// Message is the content to be delivered by a Provider.
type Message struct {
	Subject string
	Body    string
}

// Provider is the interface for notification delivery backends.
type Provider interface {
	// Name returns the provider identifier (e.g. "smtp").
	Name() string
	Send(ctx context.Context, msg Message) error
}

// ProviderFactory builds a Provider from the current SMTP settings.
type ProviderFactory func(cfg SMTPConfig) Provider

// DefaultProviderFactory returns an SMTPProvider.
func DefaultProviderFactory(cfg SMTPConfig) Provider {
	return NewSMTPProvider(cfg)
}
