// Package telemetry installs the global OpenTelemetry providers.
//
// Metrics recorded through the OTel API (including the otelhttp server and
// client instrumentation) are always bridged into the Prometheus registry
// served at /metrics. When an OTLP endpoint is configured, traces, metrics
// and logs are also exported over gRPC.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc"
)

// DefaultExportInterval is the OTLP metric push interval.
const DefaultExportInterval = 30 * time.Second

// Config controls provider setup.
type Config struct {
	ServiceName    string
	ServiceVersion string
	// Registerer receives the OTel-to-Prometheus bridge. Required.
	Registerer prometheus.Registerer
	// OTLPEndpoint is a host:port gRPC collector address. Empty disables OTLP export.
	OTLPEndpoint string
	Insecure     bool
	UserAgent    string
}

// Providers holds the installed providers. LogHandler is nil unless OTLP
// export is enabled.
type Providers struct {
	LogHandler slog.Handler

	shutdowns []func(context.Context) error
}

// Setup builds the providers from cfg and installs them as the OTel globals.
func Setup(ctx context.Context, cfg Config) (*Providers, error) {
	if cfg.Registerer == nil {
		return nil, errors.New("telemetry: prometheus registerer is required")
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
	))
	if err != nil {
		return nil, fmt.Errorf("building otel resource: %w", err)
	}

	p := &Providers{}

	promExporter, err := otelprom.New(otelprom.WithRegisterer(cfg.Registerer))
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}
	meterOpts := []sdkmetric.Option{
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(promExporter),
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	if cfg.OTLPEndpoint != "" {
		dial := grpc.WithUserAgent(cfg.UserAgent)

		traceOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint), otlptracegrpc.WithDialOption(dial)}
		metricOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint), otlpmetricgrpc.WithDialOption(dial)}
		logOpts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(cfg.OTLPEndpoint), otlploggrpc.WithDialOption(dial)}
		if cfg.Insecure {
			traceOpts = append(traceOpts, otlptracegrpc.WithInsecure())
			metricOpts = append(metricOpts, otlpmetricgrpc.WithInsecure())
			logOpts = append(logOpts, otlploggrpc.WithInsecure())
		}

		traceExporter, err := otlptracegrpc.New(ctx, traceOpts...)
		if err != nil {
			return nil, fmt.Errorf("creating otlp trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(traceExporter), sdktrace.WithResource(res))
		otel.SetTracerProvider(tp)
		p.shutdowns = append(p.shutdowns, tp.Shutdown)

		metricExporter, err := otlpmetricgrpc.New(ctx, metricOpts...)
		if err != nil {
			_ = p.Shutdown(ctx)
			return nil, fmt.Errorf("creating otlp metric exporter: %w", err)
		}
		meterOpts = append(meterOpts, sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(DefaultExportInterval)),
		))

		logExporter, err := otlploggrpc.New(ctx, logOpts...)
		if err != nil {
			_ = p.Shutdown(ctx)
			return nil, fmt.Errorf("creating otlp log exporter: %w", err)
		}
		lp := sdklog.NewLoggerProvider(
			sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
			sdklog.WithResource(res),
		)
		global.SetLoggerProvider(lp)
		p.LogHandler = otelslog.NewHandler(cfg.ServiceName, otelslog.WithLoggerProvider(lp))
		p.shutdowns = append(p.shutdowns, lp.Shutdown)
	}

	mp := sdkmetric.NewMeterProvider(meterOpts...)
	otel.SetMeterProvider(mp)
	p.shutdowns = append(p.shutdowns, mp.Shutdown)

	return p, nil
}

// Shutdown flushes and stops every provider in reverse order of creation.
func (p *Providers) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	var errs []error
	for i := len(p.shutdowns) - 1; i >= 0; i-- {
		if err := p.shutdowns[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	p.shutdowns = nil
	return errors.Join(errs...)
}
