package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/shaharia-lab/webhookd/internal/webhook"
)

// MockSubscriptionService is a mock implementation of service.SubscriptionService.
type MockSubscriptionService struct {
	mock.Mock
}

//nolint:revive
func (m *MockSubscriptionService) List(ctx context.Context) ([]*webhook.Subscription, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*webhook.Subscription), args.Error(1)
}

//nolint:revive
func (m *MockSubscriptionService) Get(ctx context.Context, id string) (*webhook.Subscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*webhook.Subscription), args.Error(1)
}

//nolint:revive
func (m *MockSubscriptionService) Create(ctx context.Context, sub *webhook.Subscription) (*webhook.Subscription, error) {
	args := m.Called(ctx, sub)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*webhook.Subscription), args.Error(1)
}

//nolint:revive
func (m *MockSubscriptionService) Update(ctx context.Context, id string, patch webhook.SubscriptionPatch) (*webhook.Subscription, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*webhook.Subscription), args.Error(1)
}

//nolint:revive
func (m *MockSubscriptionService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

//nolint:revive
func (m *MockSubscriptionService) SetStatus(ctx context.Context, id string, status webhook.Status) (*webhook.Subscription, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*webhook.Subscription), args.Error(1)
}

//nolint:revive
func (m *MockSubscriptionService) StoreDeliveries(ctx context.Context, id string) ([]*webhook.StoreDelivery, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*webhook.StoreDelivery), args.Error(1)
}
