// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package telemetry installs the OpenTelemetry tracer provider. Provider
// dispatch spans are exported over OTLP/HTTP when enabled.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.uber.org/zap"

	"github.com/pdiddy/answer-engine/pkg/types"
)

// ServiceName is reported as the OTLP service.name resource attribute.
const ServiceName = "answer-engine"

// Shutdown flushes and stops the tracer provider.
type Shutdown func(context.Context) error

func noop(context.Context) error { return nil }

// Init installs a batching OTLP tracer provider when cfg.Enabled. When
// tracing is disabled the global no-op provider stays in place and the
// returned Shutdown does nothing.
func Init(ctx context.Context, cfg types.TelemetryConfig, logger *zap.Logger) (Shutdown, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Enabled {
		logger.Debug("OpenTelemetry tracing is disabled")
		return noop, nil
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "localhost:4318"
	}
	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return noop, fmt.Errorf("creating OTLP exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(ServiceName),
		)),
	)
	otel.SetTracerProvider(tp)
	logger.Info("OpenTelemetry tracer initialized", zap.String("endpoint", endpoint))
	return tp.Shutdown, nil
}
