package instrumentation

import (
	"context"
	"fmt"
	"net/http"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Provider encapsulates the OpenTelemetry meter provider and its
// Prometheus exporter.
type Provider struct {
	config        Config
	meterProvider *metric.MeterProvider
	registry      *promclient.Registry
	metrics       *Metrics
	enabled       bool
}

// NewProvider creates a new instrumentation provider. When disabled it
// returns a provider whose Metrics recorder is a no-op.
func NewProvider(ctx context.Context, config Config) (*Provider, error) {
	if !config.Enabled {
		return &Provider{config: config, enabled: false}, nil
	}

	resourceAttrs := []attribute.KeyValue{
		semconv.ServiceName(config.ServiceName),
	}
	if config.ServiceVersion != "" {
		resourceAttrs = append(resourceAttrs, semconv.ServiceVersion(config.ServiceVersion))
	}
	res, err := resource.New(ctx, resource.WithAttributes(resourceAttrs...))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	registry := promclient.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	meterProvider := metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(exporter),
	)
	otel.SetMeterProvider(meterProvider)

	meter := meterProvider.Meter(config.ServiceName)
	metrics, err := NewMetrics(meter)
	if err != nil {
		if shutdownErr := meterProvider.Shutdown(ctx); shutdownErr != nil {
			err = fmt.Errorf("%w (shutdown also failed: %v)", err, shutdownErr)
		}
		return nil, fmt.Errorf("failed to create metrics recorder: %w", err)
	}

	return &Provider{
		config:        config,
		meterProvider: meterProvider,
		registry:      registry,
		metrics:       metrics,
		enabled:       true,
	}, nil
}

// Metrics returns the recorder for this provider. It is nil when the
// provider is disabled, which all recorder methods tolerate.
func (p *Provider) Metrics() *Metrics {
	return p.metrics
}

// Enabled reports whether metrics collection is active.
func (p *Provider) Enabled() bool {
	return p.enabled
}

// Handler returns the HTTP handler serving the Prometheus scrape
// endpoint. When disabled it serves an empty registry.
func (p *Provider) Handler() http.Handler {
	if !p.enabled {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Shutdown flushes and stops the meter provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if !p.enabled {
		return nil
	}
	if err := p.meterProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown meter provider: %w", err)
	}
	return nil
}
