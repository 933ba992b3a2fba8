package notification

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// SMTPConfig holds connection parameters for the SMTP provider.
type SMTPConfig struct {
	Host       string `json:"host" yaml:"host"`
	Port       int    `json:"port" yaml:"port"`
	Username   string `json:"username" yaml:"username"`
	Password   string `json:"password" yaml:"password"`
	FromAddr   string `json:"from_address" yaml:"from_address"`
	ToAddrs    string `json:"to_addresses" yaml:"to_addresses"`
	Encryption string `json:"encryption" yaml:"encryption"` // "none", "starttls", "ssl_tls"
}

// Recipients splits ToAddrs on commas, dropping blanks.
func (c SMTPConfig) Recipients() []string {
	var out []string
	for _, r := range strings.Split(c.ToAddrs, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

// Validate reports the first missing field needed to send mail.
func (c SMTPConfig) Validate() error {
	switch {
	case c.Host == "":
		return errors.New("smtp host is required")
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("smtp port %d is out of range", c.Port)
	case c.FromAddr == "":
		return errors.New("from address is required")
	case len(c.Recipients()) == 0:
		return errors.New("at least one recipient is required")
	}
	return nil
}

// Preferences selects which delivery outcomes trigger an alert. Nil fields
// take their defaults: failures alert, successes do not.
type Preferences struct {
	OnFailed    *bool `json:"on_failed,omitempty" yaml:"on_failed,omitempty"`
	OnSucceeded *bool `json:"on_succeeded,omitempty" yaml:"on_succeeded,omitempty"`
}

// IsOnFailedEnabled defaults to true.
func (p Preferences) IsOnFailedEnabled() bool {
	return p.OnFailed == nil || *p.OnFailed
}

// IsOnSucceededEnabled defaults to false.
func (p Preferences) IsOnSucceededEnabled() bool {
	return p.OnSucceeded != nil && *p.OnSucceeded
}

// NotificationSettings is the content of notifications.yaml.
// The name is intentional: it provides clarity when referenced as notification.NotificationSettings.
//
//nolint:revive
type NotificationSettings struct {
	Enabled     bool        `json:"enabled" yaml:"enabled"`
	Provider    SMTPConfig  `json:"provider" yaml:"provider"`
	Preferences Preferences `json:"preferences" yaml:"preferences"`
}

// LoadSettings reads settings from a YAML file. A missing file yields
// disabled, empty settings.
func LoadSettings(path string) (*NotificationSettings, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from AppConfig
	if errors.Is(err, os.ErrNotExist) {
		return &NotificationSettings{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading notification settings: %w", err)
	}
	var s NotificationSettings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing notification settings: %w", err)
	}
	return &s, nil
}

// SaveSettings writes settings to path atomically.
func SaveSettings(path string, s *NotificationSettings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding notification settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("writing notification settings: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing notification settings: %w", err)
	}
	return nil
}
