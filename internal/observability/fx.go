// Package observability wires logging, tracing and metrics into the fx graph.
package observability

import (
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"

	"github.com/southtrip/caravel/internal/config"
	"github.com/southtrip/caravel/internal/observability/logger"
	"github.com/southtrip/caravel/internal/observability/metrics"
	"github.com/southtrip/caravel/internal/observability/tracing"
)

var Module = fx.Module("observability",
	fx.Provide(logger.NewLogger),
	fx.Provide(newTracingConfig),
	fx.Provide(tracing.NewProvider),
	fx.Provide(newMetricsConfig),
	fx.Provide(newHTTPMetrics),
	fx.Provide(newEngineMetrics),
	// The provider only registers itself globally; nothing injects it.
	fx.Invoke(func(*sdktrace.TracerProvider) {}),
)

func newTracingConfig(cfg config.Config) tracing.Config {
	return tracing.Config{
		Enabled:          cfg.Tracing.Enabled,
		ServiceName:      "caravel",
		ServiceVersion:   "dev",
		Environment:      cfg.Environment,
		ExporterEndpoint: cfg.Tracing.ExporterEndpoint,
		ExporterProtocol: cfg.Tracing.ExporterProtocol,
		SamplingRatio:    cfg.Tracing.SamplingRatio,
	}
}

func newMetricsConfig(cfg config.Config) metrics.Config {
	return metrics.Config{
		ServiceName: "caravel",
		Environment: cfg.Environment,
	}
}

func newHTTPMetrics(cfg metrics.Config) (*metrics.HTTPMetrics, error) {
	return metrics.NewHTTPMetrics(cfg, otel.GetMeterProvider())
}

func newEngineMetrics(cfg metrics.Config) *metrics.EngineMetrics {
	return metrics.EngineWithConfig(cfg)
}
