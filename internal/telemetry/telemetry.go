// Package telemetry installs the process-wide OpenTelemetry tracer provider.
package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const ServiceName = "stock-extremes"

// Shutdown flushes and stops the provider.
type Shutdown func(context.Context) error

func noop(context.Context) error { return nil }

// Setup exports spans to file (stderr when file is empty) when enabled.
// When disabled the global no-op provider is left in place.
func Setup(enabled bool, file string, attrs ...attribute.KeyValue) (Shutdown, error) {
	if !enabled {
		return noop, nil
	}

	var w io.Writer = os.Stderr
	var f *os.File
	if file != "" {
		if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
			return noop, fmt.Errorf("trace dir: %w", err)
		}
		var err error
		f, err = os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return noop, fmt.Errorf("trace file: %w", err)
		}
		w = f
	}

	tp, err := NewProvider(w, attrs...)
	if err != nil {
		if f != nil {
			f.Close()
		}
		return noop, err
	}
	otel.SetTracerProvider(tp)

	return func(ctx context.Context) error {
		err := tp.Shutdown(ctx)
		if f != nil {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}
		return err
	}, nil
}

// NewProvider returns a provider that writes spans to w synchronously.
func NewProvider(w io.Writer, attrs ...attribute.KeyValue) (*sdktrace.TracerProvider, error) {
	exp, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("stdouttrace: %w", err)
	}
	res := resource.NewSchemaless(append([]attribute.KeyValue{
		attribute.String("service.name", ServiceName),
	}, attrs...)...)
	return sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exp),
		sdktrace.WithResource(res),
	), nil
}
