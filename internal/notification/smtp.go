package notification

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
)

// SMTPProvider delivers alerts via SMTP using go-mail.
type SMTPProvider struct {
	config SMTPConfig
}

// NewSMTPProvider creates a new SMTPProvider with the given configuration.
func NewSMTPProvider(config SMTPConfig) *SMTPProvider {
	return &SMTPProvider{config: config}
}

// Name returns the provider identifier.
func (p *SMTPProvider) Name() string { return "smtp" }

// Send delivers msg to every configured recipient.
func (p *SMTPProvider) Send(ctx context.Context, msg Message) error {
	if err := p.config.Validate(); err != nil {
		return err
	}

	m, err := p.buildMessage(msg)
	if err != nil {
		return err
	}

	opts := []mail.Option{
		mail.WithPort(p.config.Port),
		mail.WithTLSPolicy(tlsPolicyFromEncryption(p.config.Encryption)),
	}
	if p.config.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(p.config.Username),
			mail.WithPassword(p.config.Password),
		)
	}
	if p.config.Encryption == "ssl_tls" {
		opts = append(opts, mail.WithSSL())
	}

	c, err := mail.NewClient(p.config.Host, opts...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}
	if err := c.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("sending mail via %s:%d: %w", p.config.Host, p.config.Port, err)
	}
	return nil
}

func (p *SMTPProvider) buildMessage(msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(p.config.FromAddr); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	for _, r := range p.config.Recipients() {
		if err := m.AddTo(r); err != nil {
			return nil, fmt.Errorf("invalid recipient %q: %w", r, err)
		}
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)
	if html, err := buildEmailHTML(msg.Subject, msg.Body); err == nil {
		m.AddAlternativeString(mail.TypeTextHTML, html)
	}
	return m, nil
}

// tlsPolicyFromEncryption converts the encryption string to a go-mail TLSPolicy.
func tlsPolicyFromEncryption(enc string) mail.TLSPolicy {
	switch enc {
	case "ssl_tls":
		return mail.TLSMandatory
	case "starttls":
		return mail.TLSOpportunistic
	default:
		return mail.NoTLS
	}
}
