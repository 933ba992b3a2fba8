package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/shaharia-lab/webhookd/internal/service"
	"github.com/shaharia-lab/webhookd/internal/webhook"
)

// MockDeliveryService is a mock implementation of service.DeliveryService.
type MockDeliveryService struct {
	mock.Mock
}

func entryResult(args mock.Arguments) (*webhook.DeliveryLogEntry, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*webhook.DeliveryLogEntry), args.Error(1)
}

//nolint:revive
func (m *MockDeliveryService) Test(ctx context.Context, sub *webhook.Subscription) (*webhook.DeliveryLogEntry, error) {
	return entryResult(m.Called(ctx, sub))
}

//nolint:revive
func (m *MockDeliveryService) TestByID(ctx context.Context, id string) (*webhook.DeliveryLogEntry, error) {
	return entryResult(m.Called(ctx, id))
}

//nolint:revive
func (m *MockDeliveryService) Receive(ctx context.Context, in service.InboundDelivery) (*webhook.DeliveryLogEntry, error) {
	return entryResult(m.Called(ctx, in))
}

//nolint:revive
func (m *MockDeliveryService) Record(ctx context.Context, entry *webhook.DeliveryLogEntry) (*webhook.DeliveryLogEntry, error) {
	return entryResult(m.Called(ctx, entry))
}

//nolint:revive
func (m *MockDeliveryService) ListLog(ctx context.Context, subscriptionID string) ([]*webhook.DeliveryLogEntry, error) {
	args := m.Called(ctx, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*webhook.DeliveryLogEntry), args.Error(1)
}

//nolint:revive
func (m *MockDeliveryService) ClearLog(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
