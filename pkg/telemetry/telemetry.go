// Package telemetry wires tracing and metrics exporters for the scanbench command.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

var (
	// ErrNilContext is returned when Init is called with a nil context.
	ErrNilContext = errors.New("telemetry: nil context")

	// ErrUnknownExporter is returned for an unsupported trace exporter name.
	ErrUnknownExporter = errors.New("telemetry: unknown exporter")
)

// Config controls telemetry behavior.
type Config struct {
	// ServiceName identifies this process in traces.
	ServiceName string

	// TraceExporter selects the trace exporter: "stdout" or "none".
	TraceExporter string

	// TraceWriter receives stdout traces. Defaults to os.Stderr.
	TraceWriter io.Writer

	// MetricsAddr, when set, serves the Prometheus registry at /metrics.
	MetricsAddr string

	// Gatherer is served at /metrics. Defaults to prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer

	// Logger reports exporter lifecycle. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns a configuration with metrics disabled and the trace
// exporter taken from OTEL_TRACES_EXPORTER, "none" when unset.
func DefaultConfig() Config {
	return Config{
		ServiceName:   "scanbench",
		TraceExporter: getEnvOr("OTEL_TRACES_EXPORTER", "none"),
	}
}

// Init installs the configured exporters. The returned shutdown flushes spans
// and stops the metrics server; it must be called before exit.
func Init(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	var shutdownFuncs []func(context.Context) error
	shutdown = func(ctx context.Context) error {
		var errs []error
		for _, fn := range shutdownFuncs {
			if err := fn(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}

	// --- TRACES ---
	switch cfg.TraceExporter {
	case "", "none":
	case "stdout":
		tp, err := initTracer(cfg)
		if err != nil {
			return nil, fmt.Errorf("init tracer: %w", err)
		}
		otel.SetTracerProvider(tp)
		shutdownFuncs = append(shutdownFuncs, tp.Shutdown)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownExporter, cfg.TraceExporter)
	}

	// --- METRICS ---
	if cfg.MetricsAddr != "" {
		stop, err := serveMetrics(cfg)
		if err != nil {
			_ = shutdown(ctx)
			return nil, fmt.Errorf("serve metrics: %w", err)
		}
		shutdownFuncs = append(shutdownFuncs, stop)
	}

	return shutdown, nil
}

func initTracer(cfg Config) (*sdktrace.TracerProvider, error) {
	w := cfg.TraceWriter
	if w == nil {
		w = os.Stderr
	}
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("create exporter: %w", err)
	}
	res := resource.NewWithAttributes("",
		attribute.String("service.name", cfg.ServiceName),
	)
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	), nil
}

// serveMetrics listens on cfg.MetricsAddr and returns a function that stops the server.
func serveMetrics(cfg Config) (func(context.Context) error, error) {
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	ln, err := net.Listen("tcp", cfg.MetricsAddr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			cfg.Logger.Error("metrics server stopped", slog.String("error", err.Error()))
		}
	}()
	cfg.Logger.Info("serving metrics", slog.String("address", ln.Addr().String()))

	return srv.Shutdown, nil
}

// getEnvOr returns the environment variable value or the fallback.
func getEnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
