package bench

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"blelloch-scan/pkg/scan"
	"blelloch-scan/pkg/seq"
)

// ErrMismatch is returned when the engine disagrees with the sequential oracle.
var ErrMismatch = errors.New("bench: parallel result differs from sequential")

// Sample is the timing of one input size.
type Sample struct {
	N          int           `yaml:"size"`
	Parallel   time.Duration `yaml:"parallel"`
	Sequential time.Duration `yaml:"sequential"`
	Match      bool          `yaml:"match"`
}

// Speedup is Sequential / Parallel.
func (s Sample) Speedup() float64 {
	if s.Parallel <= 0 {
		return 0
	}
	return float64(s.Sequential) / float64(s.Parallel)
}

// Run times engine and scan.Sequential for every size of the sweep. Each size
// is run cfg.Repeats times and the fastest run of each is kept.
func Run(ctx context.Context, engine *scan.Engine, cfg Config, logger *slog.Logger) ([]Sample, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	samples := make([]Sample, 0, cfg.MaxExp-cfg.MinExp+1)
	for exp := cfg.MinExp; exp <= cfg.MaxExp; exp++ {
		if err := ctx.Err(); err != nil {
			return samples, err
		}
		n := 1 << exp
		input, err := seq.Make(cfg.Input, n, []byte(cfg.Seed))
		if err != nil {
			return samples, err
		}

		s, err := measure(ctx, engine, input, cfg)
		if err != nil {
			return samples, fmt.Errorf("n=%d: %w", n, err)
		}
		logger.Info("bench size done",
			slog.Int("n", n),
			slog.Duration("parallel", s.Parallel),
			slog.Duration("sequential", s.Sequential),
			slog.Float64("speedup", s.Speedup()),
		)
		samples = append(samples, s)
	}
	return samples, nil
}

func measure(ctx context.Context, engine *scan.Engine, input []int64, cfg Config) (Sample, error) {
	s := Sample{N: len(input)}
	var par, ser []int64
	for r := 0; r < cfg.Repeats; r++ {
		start := time.Now()
		out, err := engine.Compute(ctx, input, cfg.MaxWorkers)
		if err != nil {
			return s, err
		}
		s.Parallel = fastest(s.Parallel, time.Since(start))
		par = out

		start = time.Now()
		ser = scan.Sequential(input)
		s.Sequential = fastest(s.Sequential, time.Since(start))
	}
	s.Match = slices.Equal(par, ser)
	if !s.Match {
		return s, ErrMismatch
	}
	return s, nil
}

func fastest(best, d time.Duration) time.Duration {
	if best == 0 || d < best {
		return d
	}
	return best
}
