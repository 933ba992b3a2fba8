package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/shaharia-lab/webhookd/internal/webhook"
)

// MockSubscriptionStore is a mock implementation of storage.SubscriptionStore.
type MockSubscriptionStore struct {
	mock.Mock
}

//nolint:revive
func (m *MockSubscriptionStore) List(ctx context.Context) ([]*webhook.Subscription, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*webhook.Subscription), args.Error(1)
}

//nolint:revive
func (m *MockSubscriptionStore) Get(ctx context.Context, id string) (*webhook.Subscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*webhook.Subscription), args.Error(1)
}

//nolint:revive
func (m *MockSubscriptionStore) Create(ctx context.Context, sub *webhook.Subscription) (*webhook.Subscription, error) {
	args := m.Called(ctx, sub)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*webhook.Subscription), args.Error(1)
}

//nolint:revive
func (m *MockSubscriptionStore) Update(ctx context.Context, id string, patch webhook.SubscriptionPatch) (*webhook.Subscription, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*webhook.Subscription), args.Error(1)
}

//nolint:revive
func (m *MockSubscriptionStore) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
