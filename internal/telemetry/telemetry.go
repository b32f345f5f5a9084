// Package telemetry sets up OpenTelemetry metrics for toolbridge and exposes them
// in the Prometheus format.
package telemetry

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// Config holds the configuration for telemetry.
type Config struct {
	ServiceName string
	Enabled     bool
}

// Providers holds the initialized OpenTelemetry providers.
// When telemetry is disabled, Meter is a no-op meter and the remaining fields are nil.
type Providers struct {
	Meter metric.Meter

	meterProvider *sdkmetric.MeterProvider
	registry      *prometheus.Registry
	config        *Config
}

// Init initializes the OpenTelemetry metrics pipeline according to the config.
func Init(ctx context.Context, config *Config) (*Providers, error) {
	if config == nil {
		config = &Config{}
	}
	if config.ServiceName == "" {
		config.ServiceName = "toolbridge"
	}

	p := &Providers{config: config}
	if !config.Enabled {
		p.Meter = noop.NewMeterProvider().Meter(config.ServiceName)
		return p, nil
	}

	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	res := resource.NewSchemaless(attribute.String("service.name", config.ServiceName))
	p.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)
	p.registry = registry
	p.Meter = p.meterProvider.Meter(config.ServiceName)

	// otelgin records its HTTP server metrics through the global provider.
	otel.SetMeterProvider(p.meterProvider)
	return p, nil
}

// IsEnabled returns true if telemetry is enabled.
func (p *Providers) IsEnabled() bool {
	return p != nil && p.config != nil && p.config.Enabled
}

// ServiceName returns the name under which metrics are reported.
func (p *Providers) ServiceName() string {
	if p == nil || p.config == nil {
		return ""
	}
	return p.config.ServiceName
}

// MetricsHandler returns the HTTP handler serving the collected metrics in the Prometheus format.
// It returns nil if telemetry is disabled.
func (p *Providers) MetricsHandler() http.Handler {
	if !p.IsEnabled() {
		return nil
	}
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Shutdown flushes and stops the meter provider.
func (p *Providers) Shutdown(ctx context.Context) error {
	if p == nil || p.meterProvider == nil {
		return nil
	}
	if err := p.meterProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown meter provider: %w", err)
	}
	return nil
}
