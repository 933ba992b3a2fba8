package service

import (
	"context"

	"github.com/shaharia-lab/webhookd/internal/storage"
	"github.com/shaharia-lab/webhookd/internal/webhook"
)

// StatsService summarises the registry and the delivery log.
type StatsService interface {
	// Compute always reads current state; nothing is cached. Pending log
	// entries count toward the total but toward neither outcome.
	Compute(ctx context.Context) (*webhook.Stats, error)
}

type statsService struct {
	subscriptions SubscriptionService
	log           storage.DeliveryLogStore
}

// NewStatsService returns a new StatsService.
func NewStatsService(subscriptions SubscriptionService, log storage.DeliveryLogStore) StatsService {
	return &statsService{subscriptions: subscriptions, log: log}
}

func (s *statsService) Compute(ctx context.Context) (*webhook.Stats, error) {
	subs, err := s.subscriptions.List(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := s.log.List(ctx, "")
	if err != nil {
		return nil, &StoreUnavailableError{Op: "list delivery log", Err: err}
	}

	stats := &webhook.Stats{
		TotalSubscriptions: len(subs),
		TotalDeliveries:    len(entries),
	}
	for _, sub := range subs {
		if sub.Status == webhook.StatusActive {
			stats.ActiveSubscriptions++
		}
	}
	for _, e := range entries {
		switch e.Status {
		case webhook.DeliverySuccess:
			stats.SuccessfulDeliveries++
		case webhook.DeliveryFailed:
			stats.FailedDeliveries++
		}
	}
	if stats.TotalDeliveries > 0 {
		stats.SuccessRate = float64(stats.SuccessfulDeliveries) / float64(stats.TotalDeliveries) * 100
	}
	return stats, nil
}
