// Package telemetry installs the OpenTelemetry trace pipeline used for run
// spans.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Stdout selects standard output as the trace destination.
const Stdout = "-"

// ShutdownFunc flushes pending spans and releases the trace destination.
type ShutdownFunc func(context.Context) error

// Setup writes spans as JSON to dest, a file path or Stdout, and installs
// the provider globally. An empty dest leaves the global no-op provider in
// place.
func Setup(ctx context.Context, serviceName, version, dest string) (ShutdownFunc, error) {
	if dest == "" {
		return func(context.Context) error { return nil }, nil
	}

	var (
		w      io.Writer = os.Stdout
		closer io.Closer
	)
	if dest != Stdout {
		f, err := os.Create(dest)
		if err != nil {
			return nil, fmt.Errorf("open trace file: %w", err)
		}
		w, closer = f, f
	}

	tp, err := NewProvider(ctx, serviceName, version, w)
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, err
	}
	otel.SetTracerProvider(tp)

	return func(ctx context.Context) error {
		err := tp.Shutdown(ctx)
		if closer != nil {
			err = errors.Join(err, closer.Close())
		}
		return err
	}, nil
}

// NewProvider returns a tracer provider exporting every span to w as it
// ends.
func NewProvider(ctx context.Context, serviceName, version string, w io.Writer) (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create trace resource: %w", err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
		sdktrace.WithResource(res),
	), nil
}
