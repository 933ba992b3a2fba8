package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/shaharia-lab/webhookd/internal/webhook"
)

// FSDeliveryLogStore implements DeliveryLogStore as a single JSON snapshot on
// the local filesystem. Every mutation rewrites the whole file via a temp file
// and rename. It is safe for concurrent use within one process but assumes no
// other process writes the same file.
type FSDeliveryLogStore struct {
	path      string
	retention int

	mu      sync.Mutex
	entries []*webhook.DeliveryLogEntry // most recent first
}

// NewFSDeliveryLogStore loads the snapshot at path, if any. A missing file
// starts an empty log.
func NewFSDeliveryLogStore(path string, retention int) (*FSDeliveryLogStore, error) {
	s := &FSDeliveryLogStore{path: path, retention: retentionOrDefault(retention)}

	data, err := os.ReadFile(path) //nolint:gosec // path constructed from admin-configured data dir
	switch {
	case os.IsNotExist(err):
		s.entries = []*webhook.DeliveryLogEntry{}
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("reading delivery log %q: %w", path, err)
	}

	if len(data) == 0 {
		s.entries = []*webhook.DeliveryLogEntry{}
		return s, nil
	}
	if err := json.Unmarshal(data, &s.entries); err != nil {
		return nil, fmt.Errorf("parsing delivery log %q: %w", path, err)
	}
	if len(s.entries) > s.retention {
		s.entries = s.entries[:s.retention]
	}
	return s, nil
}

// Append prepends entry, drops the oldest entries beyond the retention window
// and rewrites the snapshot. The in-memory log is left untouched if the
// write fails.
func (s *FSDeliveryLogStore) Append(_ context.Context, entry *webhook.DeliveryLogEntry) error {
	if entry.ID == "" {
		entry.ID = newEntryID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	stored := *entry

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]*webhook.DeliveryLogEntry, 0, min(len(s.entries)+1, s.retention))
	next = append(next, &stored)
	next = append(next, s.entries...)
	if len(next) > s.retention {
		next = next[:s.retention]
	}

	if err := s.write(next); err != nil {
		return err
	}
	s.entries = next
	return nil
}

// List returns copies of the stored entries, most recent first.
func (s *FSDeliveryLogStore) List(_ context.Context, subscriptionID string) ([]*webhook.DeliveryLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*webhook.DeliveryLogEntry, 0, len(s.entries))
	for _, e := range s.entries {
		if subscriptionID != "" && e.SubscriptionID != subscriptionID {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

// Clear wipes the log and rewrites an empty snapshot.
func (s *FSDeliveryLogStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	empty := []*webhook.DeliveryLogEntry{}
	if err := s.write(empty); err != nil {
		return err
	}
	s.entries = empty
	return nil
}

func (s *FSDeliveryLogStore) write(entries []*webhook.DeliveryLogEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshaling delivery log: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("creating delivery log directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".delivery-log-*.json")
	if err != nil {
		return fmt.Errorf("creating temp delivery log: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing delivery log: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("closing delivery log: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replacing delivery log %q: %w", s.path, err)
	}
	return nil
}
