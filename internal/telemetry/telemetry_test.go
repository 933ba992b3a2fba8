package telemetry_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/shaharia-lab/webhookd/internal/telemetry"
)

func TestSetup_BridgesOTelMetricsToPrometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := telemetry.Setup(context.Background(), telemetry.Config{
		ServiceName:    "webhookd",
		ServiceVersion: "test",
		Registerer:     reg,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })
	assert.Nil(t, p.LogHandler, "no OTLP endpoint, no log export")

	counter, err := otel.Meter("telemetry_test").Int64Counter("webhookd_test_events")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	families, err := reg.Gather()
	require.NoError(t, err)
	var found bool
	for _, f := range families {
		if strings.HasPrefix(f.GetName(), "webhookd_test_events") {
			found = true
			require.NotEmpty(t, f.GetMetric())
			assert.InDelta(t, 3, f.GetMetric()[0].GetCounter().GetValue(), 0)
		}
	}
	assert.True(t, found, "otel counter exposed through the prometheus registry")
}

func TestSetup_RequiresRegisterer(t *testing.T) {
	_, err := telemetry.Setup(context.Background(), telemetry.Config{ServiceName: "webhookd"})
	assert.Error(t, err)
}

func TestSetup_OTLPEnablesLogHandler(t *testing.T) {
	p, err := telemetry.Setup(context.Background(), telemetry.Config{
		ServiceName:  "webhookd",
		Registerer:   prometheus.NewRegistry(),
		OTLPEndpoint: "127.0.0.1:4317",
		Insecure:     true,
		UserAgent:    "webhookd/test",
	})
	require.NoError(t, err)
	assert.NotNil(t, p.LogHandler)

	// Nothing listens on the endpoint; shutdown must still return.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = p.Shutdown(ctx)
}

func TestShutdown_NilProviders(t *testing.T) {
	var p *telemetry.Providers
	assert.NoError(t, p.Shutdown(context.Background()))
}
