// Command scanbench runs the parallel prefix sum engine once or sweeps it
// across growing input sizes against the sequential oracle.
//
// Usage:
//
//	scanbench scan --size 16 --workers 4
//	scanbench scan --size 8 --input ramp --log-level debug
//	scanbench bench --min-exp 4 --max-exp 22 --out results.yaml
//	scanbench bench --config bench.yaml --metrics-addr :9090 --trace stdout
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"blelloch-scan/pkg/bench"
	"blelloch-scan/pkg/scan"
	"blelloch-scan/pkg/telemetry"
)

func main() {
	a := newApp()
	err := newRootCmd(a).Execute()
	if a.shutdown != nil {
		if serr := a.shutdown(); serr != nil {
			a.logger.Error("telemetry shutdown", slog.String("error", serr.Error()))
		}
	}
	if err != nil {
		os.Exit(1)
	}
}

// app carries the state shared by every subcommand.
type app struct {
	configPath  string
	logLevel    string
	logFormat   string
	traceExp    string
	metricsAddr string

	cfg      bench.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	shutdown func() error
}

func newApp() *app {
	return &app{cfg: bench.DefaultConfig()}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:          "scanbench",
		Short:        "Parallel exclusive prefix sum runner and benchmark",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "YAML config file")
	pf.StringVar(&a.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	pf.StringVar(&a.logFormat, "log-format", "text", "log format: text or json")
	pf.StringVar(&a.traceExp, "trace", "none", "trace exporter: stdout or none; unset falls back to $OTEL_TRACES_EXPORTER")
	pf.StringVar(&a.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	pf.IntVar(&a.cfg.MaxWorkers, "workers", a.cfg.MaxWorkers, "maximum concurrent workers")
	pf.StringVar((*string)(&a.cfg.Input), "input", string(a.cfg.Input), "input sequence: constant, ramp or random")
	pf.StringVar(&a.cfg.Seed, "seed", a.cfg.Seed, "seed for random input")
	pf.StringVar(&a.cfg.Executor, "executor", a.cfg.Executor, "worker scheduling: pool or spawn")

	root.AddCommand(newScanCmd(a), newBenchCmd(a))
	return root
}

// setup merges the config file under the command line flags, then builds the
// logger and telemetry.
func (a *app) setup(cmd *cobra.Command) error {
	if a.configPath != "" {
		fileCfg, err := bench.LoadConfig(a.configPath)
		if err != nil {
			return err
		}
		a.cfg = mergeFlags(cmd, fileCfg, a.cfg)
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cmd, a.logLevel, a.logFormat)
	if err != nil {
		return err
	}
	a.logger = logger

	a.registry = prometheus.NewRegistry()
	tc := telemetry.DefaultConfig()
	if cmd.Flags().Changed("trace") {
		tc.TraceExporter = a.traceExp
	}
	tc.TraceWriter = cmd.ErrOrStderr()
	tc.MetricsAddr = a.metricsAddr
	tc.Gatherer = a.registry
	tc.Logger = logger
	shutdown, err := telemetry.Init(cmd.Context(), tc)
	if err != nil {
		return err
	}
	a.shutdown = func() error { return shutdown(cmd.Context()) }
	return nil
}

// mergeFlags returns file with every explicitly set flag taken from flags.
func mergeFlags(cmd *cobra.Command, file, flags bench.Config) bench.Config {
	set := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}
	if set("workers") {
		file.MaxWorkers = flags.MaxWorkers
	}
	if set("input") {
		file.Input = flags.Input
	}
	if set("seed") {
		file.Seed = flags.Seed
	}
	if set("executor") {
		file.Executor = flags.Executor
	}
	if set("size") {
		file.Size = flags.Size
	}
	if set("min-exp") {
		file.MinExp = flags.MinExp
	}
	if set("max-exp") {
		file.MaxExp = flags.MaxExp
	}
	if set("repeats") {
		file.Repeats = flags.Repeats
	}
	return file
}

func newLogger(cmd *cobra.Command, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "text":
		return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// engine builds a scan engine from the merged config.
func (a *app) engine() (*scan.Engine, error) {
	executor, ok := scan.ExecutorByName(a.cfg.Executor)
	if !ok {
		return nil, fmt.Errorf("unknown executor %q", a.cfg.Executor)
	}
	opts := []scan.Option{
		scan.WithLogger(a.logger),
		scan.WithExecutor(executor),
		scan.WithMetrics(scan.NewMetrics(a.registry)),
	}
	if a.logger.Enabled(context.Background(), slog.LevelDebug) {
		opts = append(opts, scan.WithObserver(scan.LogObserver{Logger: a.logger}))
	}
	return scan.New(opts...), nil
}
