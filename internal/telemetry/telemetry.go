// Package telemetry installs the process-wide OpenTelemetry tracer provider.
package telemetry

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"

	serviceName = "personal-assistant"
)

// Shutdown flushes pending spans and stops the provider.
type Shutdown func(context.Context) error

// Setup installs a global tracer provider for the named exporter. The stdout
// exporter writes JSON spans to w. With "none" or "" nothing is installed and
// spans stay no-ops.
func Setup(exporter, version string, w io.Writer) (Shutdown, error) {
	switch exporter {
	case "", ExporterNone:
		return func(context.Context) error { return nil }, nil
	case ExporterStdout:
	default:
		return nil, fmt.Errorf("unknown tracing exporter %q (want %s or %s)", exporter, ExporterNone, ExporterStdout)
	}

	exp, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("creating stdout exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			"",
			attribute.String("service.name", serviceName),
			attribute.String("service.version", version),
		)),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}
