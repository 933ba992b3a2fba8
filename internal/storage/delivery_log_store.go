package storage

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/shaharia-lab/webhookd/internal/webhook"
)

// DefaultLogRetention is the number of delivery log entries kept when no
// explicit retention is configured.
const DefaultLogRetention = 1000

// DeliveryLogStore persists delivery log entries. Implementations keep at most
// the configured number of most recent entries, evicting the oldest after
// each append. Entries are never updated once written.
type DeliveryLogStore interface {
	// Append records entry. If entry.ID is empty a new ID is assigned to it.
	Append(ctx context.Context, entry *webhook.DeliveryLogEntry) error
	// List returns entries most-recent-first. An empty subscriptionID returns
	// every entry.
	List(ctx context.Context, subscriptionID string) ([]*webhook.DeliveryLogEntry, error)
	// Clear removes every entry.
	Clear(ctx context.Context) error
}

var entrySeq atomic.Uint64

// newEntryID returns a process-unique log entry ID built from the current
// time and a counter, so entries appended within the same nanosecond do not
// collide.
func newEntryID() string {
	n := entrySeq.Add(1)
	return strconv.FormatInt(time.Now().UnixNano(), 10) + "-" + strconv.FormatUint(n, 10)
}

func retentionOrDefault(n int) int {
	if n <= 0 {
		return DefaultLogRetention
	}
	return n
}
