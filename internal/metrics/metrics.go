// Package metrics exposes Prometheus collectors for webhook deliveries and
// registry health.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/shaharia-lab/webhookd/internal/webhook"
)

const namespace = "webhookd"

// Metrics holds the registered collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	deliveries      *prometheus.CounterVec
	deliveryLatency *prometheus.HistogramVec
	subscriptions   *prometheus.GaugeVec
	logEntries      prometheus.Gauge
	successRate     prometheus.Gauge
	lastRefresh     prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Delivery attempts by source, outcome and topic.",
		}, []string{"source", "status", "topic"}),
		deliveryLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "delivery_duration_seconds",
			Help:      "Time spent on outbound test deliveries.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"status"}),
		subscriptions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscriptions",
			Help:      "Subscriptions in the registry, total and active.",
		}, []string{"state"}),
		logEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "delivery_log_entries",
			Help:      "Entries currently retained in the delivery log.",
		}),
		successRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "delivery_success_ratio_percent",
			Help:      "Successful deliveries as a percentage of the retained log.",
		}),
		lastRefresh: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stats_last_refresh_timestamp_seconds",
			Help:      "Unix time of the last successful stats refresh.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.deliveries, m.deliveryLatency, m.subscriptions, m.logEntries, m.successRate, m.lastRefresh,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveDelivery counts one attempt. Latency is recorded only for outbound
// tests, where elapsed is the round trip.
func (m *Metrics) ObserveDelivery(source string, status webhook.DeliveryStatus, topic webhook.Topic, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.deliveries.WithLabelValues(source, string(status), string(topic)).Inc()
	if source == "test" {
		m.deliveryLatency.WithLabelValues(string(status)).Observe(elapsed.Seconds())
	}
}

// SetStats publishes a stats snapshot as gauges.
func (m *Metrics) SetStats(s *webhook.Stats, at time.Time) {
	if m == nil || s == nil {
		return
	}
	m.subscriptions.WithLabelValues("total").Set(float64(s.TotalSubscriptions))
	m.subscriptions.WithLabelValues("active").Set(float64(s.ActiveSubscriptions))
	m.logEntries.Set(float64(s.TotalDeliveries))
	m.successRate.Set(s.SuccessRate)
	m.lastRefresh.Set(float64(at.Unix()))
}

// RegisterEventBusDropped exposes the event bus overflow count, read from
// dropped at scrape time.
func RegisterEventBusDropped(reg prometheus.Registerer, dropped func() uint64) error {
	return reg.Register(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "eventbus_dropped_total",
		Help:      "Events discarded because the event bus buffer was full.",
	}, func() float64 { return float64(dropped()) }))
}
