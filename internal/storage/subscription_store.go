package storage

import (
	"context"

	"github.com/shaharia-lab/webhookd/internal/webhook"
)

// SubscriptionStore is the durable source of truth for webhook subscriptions.
// It is implemented locally by SQLiteSubscriptionStore and remotely by the
// WooCommerce REST client. Get, Update and Delete return ErrNotFound (possibly
// wrapped) for unknown IDs.
type SubscriptionStore interface {
	List(ctx context.Context) ([]*webhook.Subscription, error)
	Get(ctx context.Context, id string) (*webhook.Subscription, error)
	// Create persists sub and returns the stored copy with ID and timestamps set.
	Create(ctx context.Context, sub *webhook.Subscription) (*webhook.Subscription, error)
	Update(ctx context.Context, id string, patch webhook.SubscriptionPatch) (*webhook.Subscription, error)
	Delete(ctx context.Context, id string) error
}

// DeliveryHistorySource is implemented by subscription stores that keep their
// own per-webhook delivery history. Unknown IDs return ErrNotFound.
type DeliveryHistorySource interface {
	ListDeliveries(ctx context.Context, id string) ([]*webhook.StoreDelivery, error)
}
