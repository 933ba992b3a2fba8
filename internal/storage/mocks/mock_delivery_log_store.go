package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/shaharia-lab/webhookd/internal/webhook"
)

// MockDeliveryLogStore is a mock implementation of storage.DeliveryLogStore.
type MockDeliveryLogStore struct {
	mock.Mock
}

//nolint:revive
func (m *MockDeliveryLogStore) Append(ctx context.Context, entry *webhook.DeliveryLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

//nolint:revive
func (m *MockDeliveryLogStore) List(ctx context.Context, subscriptionID string) ([]*webhook.DeliveryLogEntry, error) {
	args := m.Called(ctx, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*webhook.DeliveryLogEntry), args.Error(1)
}

//nolint:revive
func (m *MockDeliveryLogStore) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
