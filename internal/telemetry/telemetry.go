// Package telemetry wires OpenTelemetry tracing to an OTLP/HTTP collector.
package telemetry

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// ServiceName identifies this tool in exported traces.
const ServiceName = "vnpatch"

// Config holds the tracing configuration.
type Config struct {
	// Endpoint is host:port of the collector; an http:// prefix is accepted.
	// Empty disables tracing.
	Endpoint string
	Version  string
}

// Enabled reports whether spans are exported.
func (c Config) Enabled() bool { return c.Endpoint != "" }

// Init installs a global tracer provider and returns its shutdown func.
// With tracing disabled the global no-op provider stays in place.
func Init(ctx context.Context, c Config) (func(), error) {
	if !c.Enabled() {
		return func() {}, nil
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(strings.TrimPrefix(c.Endpoint, "http://")),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	version := c.Version
	if version == "" {
		version = "dev"
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(ServiceName),
			semconv.ServiceVersionKey.String(version),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(ctx)
	}, nil
}

// Tracer returns the global tracer for the CLI.
func Tracer() oteltrace.Tracer {
	return otel.Tracer(ServiceName)
}
