package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shaharia-lab/webhookd/internal/storage"
	"github.com/shaharia-lab/webhookd/internal/webhook"
)

// DefaultStoreTimeout bounds a single subscription store call.
const DefaultStoreTimeout = 5 * time.Second

// SubscriptionService defines the business logic interface for managing
// webhook subscriptions. Durable state lives in the subscription store; the
// service enforces local invariants and classifies store failures.
type SubscriptionService interface {
	List(ctx context.Context) ([]*webhook.Subscription, error)
	Get(ctx context.Context, id string) (*webhook.Subscription, error)
	Create(ctx context.Context, sub *webhook.Subscription) (*webhook.Subscription, error)
	Update(ctx context.Context, id string, patch webhook.SubscriptionPatch) (*webhook.Subscription, error)
	Delete(ctx context.Context, id string) error
	// SetStatus changes only the status of one subscription. Other
	// subscriptions on the same topic are left alone.
	SetStatus(ctx context.Context, id string, status webhook.Status) (*webhook.Subscription, error)
	// StoreDeliveries returns the delivery history the remote store keeps for
	// one subscription. Stores without such a history return UnsupportedError.
	StoreDeliveries(ctx context.Context, id string) ([]*webhook.StoreDelivery, error)
}

// subscriptionService is the default implementation.
type subscriptionService struct {
	store   storage.SubscriptionStore
	logger  *slog.Logger
	timeout time.Duration
}

// NewSubscriptionService returns a new SubscriptionService. A non-positive
// timeout uses DefaultStoreTimeout.
func NewSubscriptionService(store storage.SubscriptionStore, logger *slog.Logger, timeout time.Duration) SubscriptionService {
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	return &subscriptionService{store: store, logger: logger, timeout: timeout}
}

func (s *subscriptionService) List(ctx context.Context) ([]*webhook.Subscription, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	subs, err := s.store.List(ctx)
	if err != nil {
		return nil, s.storeError("list webhooks", "", err)
	}
	return subs, nil
}

func (s *subscriptionService) Get(ctx context.Context, id string) (*webhook.Subscription, error) {
	if id == "" {
		return nil, &ValidationError{Field: "id", Message: "id is required"}
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	sub, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, s.storeError("get webhook", id, err)
	}
	return sub, nil
}

func (s *subscriptionService) Create(ctx context.Context, sub *webhook.Subscription) (*webhook.Subscription, error) {
	if sub == nil {
		return nil, &ValidationError{Message: "webhook is required"}
	}
	in := *sub
	in.ID = ""
	in.Name = strings.TrimSpace(in.Name)
	if in.Status == "" {
		in.Status = webhook.StatusActive
	}

	if in.Name == "" {
		return nil, &ValidationError{Field: "name", Message: "name is required"}
	}
	if err := validateTopic(in.Topic); err != nil {
		return nil, err
	}
	if err := validateDeliveryURL(in.DeliveryURL); err != nil {
		return nil, err
	}
	if !in.Status.Valid() {
		return nil, &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", in.Status)}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	created, err := s.store.Create(ctx, &in)
	if err != nil {
		return nil, s.storeError("create webhook", "", err)
	}
	s.logger.Info("webhook created", "subscription_id", created.ID, "topic", created.Topic)
	return created, nil
}

func (s *subscriptionService) Update(
	ctx context.Context, id string, patch webhook.SubscriptionPatch,
) (*webhook.Subscription, error) {
	if id == "" {
		return nil, &ValidationError{Field: "id", Message: "id is required"}
	}
	if patch.IsEmpty() {
		return s.Get(ctx, id)
	}
	if err := validatePatch(&patch); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	updated, err := s.store.Update(ctx, id, patch)
	if err != nil {
		return nil, s.storeError("update webhook", id, err)
	}
	s.logger.Info("webhook updated", "subscription_id", id, "status", updated.Status)
	return updated, nil
}

func (s *subscriptionService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return &ValidationError{Field: "id", Message: "id is required"}
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.store.Delete(ctx, id); err != nil {
		return s.storeError("delete webhook", id, err)
	}
	s.logger.Info("webhook deleted", "subscription_id", id)
	return nil
}

func (s *subscriptionService) SetStatus(
	ctx context.Context, id string, status webhook.Status,
) (*webhook.Subscription, error) {
	if !status.Valid() {
		return nil, &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", status)}
	}
	return s.Update(ctx, id, webhook.SubscriptionPatch{Status: &status})
}

func (s *subscriptionService) StoreDeliveries(ctx context.Context, id string) ([]*webhook.StoreDelivery, error) {
	src, ok := s.store.(storage.DeliveryHistorySource)
	if !ok {
		return nil, &UnsupportedError{Op: "listing store deliveries"}
	}
	if id == "" {
		return nil, &ValidationError{Field: "id", Message: "id is required"}
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	deliveries, err := src.ListDeliveries(ctx, id)
	if err != nil {
		return nil, s.storeError("list store deliveries", id, err)
	}
	return deliveries, nil
}

// storeError classifies a store failure. ErrNotFound becomes NotFoundError;
// everything else is StoreUnavailableError.
func (s *subscriptionService) storeError(op, id string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return &NotFoundError{Resource: "webhook", ID: id}
	}
	s.logger.Error("subscription store failed", "op", op, "subscription_id", id, "error", err)
	return &StoreUnavailableError{Op: op, Err: err}
}

// validatePatch checks only the fields the patch changes. Names are trimmed in place.
func validatePatch(p *webhook.SubscriptionPatch) error {
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return &ValidationError{Field: "name", Message: "name must not be empty"}
		}
		p.Name = &name
	}
	if p.Status != nil && !p.Status.Valid() {
		return &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", *p.Status)}
	}
	if p.Topic != nil {
		if err := validateTopic(*p.Topic); err != nil {
			return err
		}
	}
	if p.DeliveryURL != nil {
		if err := validateDeliveryURL(*p.DeliveryURL); err != nil {
			return err
		}
	}
	return nil
}

func validateTopic(t webhook.Topic) error {
	if t == "" {
		return &ValidationError{Field: "topic", Message: "topic is required"}
	}
	if !webhook.IsValidTopic(t) {
		return &ValidationError{Field: "topic", Message: fmt.Sprintf("unknown topic %q", t)}
	}
	return nil
}

func validateDeliveryURL(raw string) error {
	if err := webhook.ValidateDeliveryURL(raw); err != nil {
		return &ValidationError{Field: "delivery_url", Message: err.Error()}
	}
	return nil
}
