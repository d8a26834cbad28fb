package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	minllm "github.com/AAxiom-org/MinLLM"
	"github.com/AAxiom-org/MinLLM/bus"
	"github.com/AAxiom-org/MinLLM/config"
	flowotel "github.com/AAxiom-org/MinLLM/otel"
)

// buildLogger constructs the slog logger described by the config and wires
// it into the engine's warning output.
func buildLogger(cfg config.LogConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	logger := slog.New(handler)
	minllm.SetLogger(logger)
	return logger
}

// buildEventStore opens the event store described by the config. The
// returned cleanup is always safe to call.
func buildEventStore(cfg config.EventsConfig) (bus.EventStore, func(), error) {
	switch cfg.Driver {
	case "", "memory":
		return bus.NewMemEventStore(), func() {}, nil
	case "sqlite":
		store, err := bus.NewSQLiteEventStore(bus.SQLiteStoreConfig{
			DSN:            cfg.Path,
			RetentionAge:   cfg.RetentionAge.Std(),
			RetentionCount: cfg.RetentionCount,
		})
		if err != nil {
			return nil, func() {}, err
		}
		return store, func() { _ = store.Close() }, nil
	default:
		return nil, func() {}, fmt.Errorf("unknown events driver %q", cfg.Driver)
	}
}

// buildTracing sets up an OTLP/HTTP trace exporter when an endpoint is
// configured. Returns a nil handler when tracing is disabled.
func buildTracing(ctx context.Context, cfg config.OTLPConfig) (*flowotel.TracingHandler, func(), error) {
	if cfg.Endpoint == "" {
		return nil, func() {}, nil
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, func() {}, fmt.Errorf("otlp exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	shutdown := func() { _ = tp.Shutdown(context.Background()) }
	return flowotel.NewTracingHandler(tp.Tracer("minllm")), shutdown, nil
}

// buildEventHandler assembles the run event handler: persistence (rate
// limited) plus optional tracing.
func buildEventHandler(store bus.EventStore, logger *slog.Logger, tracing *flowotel.TracingHandler) minllm.EventHandler {
	persist := bus.NewRateLimitedHandler(
		bus.NewStoreSubscriber(store, logger).Handle,
		bus.ThrottleConfig{},
	)

	handlers := []minllm.EventHandler{persist.Handle}
	if tracing != nil {
		handlers = append(handlers, tracing.Handle)
	}
	return minllm.MultiEventHandler(handlers...)
}
