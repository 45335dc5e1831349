// Package tracing owns the process-wide tracer used to instrument MCP tool
// calls. Init installs an OpenTelemetry SDK provider; Tracer returns the
// installed tracer or a no-op one, so call sites never need to check
// whether tracing was configured.
package tracing

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"steward/pkg/logging"
)

const instrumentationName = "steward"

// Config controls tracer installation.
type Config struct {
	// ServiceName identifies the MCP server process in exported spans.
	ServiceName string
	// Writer receives exported spans. Defaults to stderr; it must never be
	// stdout, which carries framed protocol messages.
	Writer io.Writer
	// Pretty enables indented span output for local debugging.
	Pretty bool
}

var (
	mu       sync.RWMutex
	provider *sdktrace.TracerProvider
)

// Init installs the process-wide tracer provider. It returns a shutdown
// function that flushes buffered spans; the caller should invoke it on
// process exit. Calling Init twice replaces the previous provider.
func Init(cfg Config) (func(context.Context) error, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "steward"
	}
	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}

	opts := []stdouttrace.Option{stdouttrace.WithWriter(w)}
	if cfg.Pretty {
		opts = append(opts, stdouttrace.WithPrettyPrint())
	}
	exporter, err := stdouttrace.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
	)

	mu.Lock()
	provider = tp
	mu.Unlock()
	otel.SetTracerProvider(tp)

	logging.Debug("Tracing", "Installed tracer provider for %s", cfg.ServiceName)

	return func(ctx context.Context) error {
		// Exporter failures must not block shutdown; log and move on.
		if err := tp.Shutdown(ctx); err != nil {
			logging.Error("Tracing", err, "Trace provider shutdown failed")
			return err
		}
		return nil
	}, nil
}

// InitWithProvider installs an externally constructed provider. Used by
// tests to capture spans in memory.
func InitWithProvider(tp *sdktrace.TracerProvider) {
	mu.Lock()
	provider = tp
	mu.Unlock()
	otel.SetTracerProvider(tp)
}

// Tracer returns the process tracer. When Init was never called this
// returns a no-op tracer, so span creation is always safe.
func Tracer() trace.Tracer {
	mu.RLock()
	tp := provider
	mu.RUnlock()
	if tp == nil {
		return otel.Tracer(instrumentationName)
	}
	return tp.Tracer(instrumentationName)
}

// ServerAttribute builds the mcp.server.name attribute applied to every
// tool-call span.
func ServerAttribute(serverName string) attribute.KeyValue {
	return attribute.String("mcp.server.name", serverName)
}
