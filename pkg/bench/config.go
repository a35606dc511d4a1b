// Package bench times the parallel scan engine against the sequential oracle
// across growing input sizes and renders the results.
package bench

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"blelloch-scan/pkg/scan"
	"blelloch-scan/pkg/seq"
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("bench: invalid config")

// maxExp bounds the largest input at 2^maxExp elements.
const maxExp = 30

// Config describes one benchmark sweep and the single-run defaults of the CLI.
type Config struct {
	// MinExp and MaxExp bound the sweep: sizes 2^MinExp .. 2^MaxExp.
	MinExp int `yaml:"min_exp"`
	MaxExp int `yaml:"max_exp"`

	// Size is the input length of a single scan run.
	Size int `yaml:"size"`

	// MaxWorkers is the worker budget handed to the engine.
	MaxWorkers int `yaml:"max_workers"`

	// Repeats is the number of timed runs per size; the fastest is kept.
	Repeats int `yaml:"repeats"`

	// Input is the sequence shape: constant, ramp or random.
	Input seq.Kind `yaml:"input"`

	// Seed feeds random inputs.
	Seed string `yaml:"seed"`

	// Executor selects worker scheduling: pool or spawn.
	Executor string `yaml:"executor"`
}

// DefaultConfig mirrors the original driver: 4 workers over 16 ones.
func DefaultConfig() Config {
	return Config{
		MinExp:     4,
		MaxExp:     20,
		Size:       16,
		MaxWorkers: 4,
		Repeats:    3,
		Input:      seq.KindConstant,
		Seed:       "scanbench",
		Executor:   "pool",
	}
}

// LoadConfig reads a YAML file over DefaultConfig. Keys missing from the file
// keep their defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports the first unusable field.
func (c Config) Validate() error {
	switch {
	case c.MinExp < 0 || c.MinExp > maxExp:
		return fmt.Errorf("%w: min_exp %d outside [0, %d]", ErrInvalidConfig, c.MinExp, maxExp)
	case c.MaxExp < c.MinExp || c.MaxExp > maxExp:
		return fmt.Errorf("%w: max_exp %d outside [%d, %d]", ErrInvalidConfig, c.MaxExp, c.MinExp, maxExp)
	case c.MaxWorkers < 1:
		return fmt.Errorf("%w: max_workers must be at least 1", ErrInvalidConfig)
	case c.Repeats < 1:
		return fmt.Errorf("%w: repeats must be at least 1", ErrInvalidConfig)
	}
	if _, err := seq.ParseKind(string(c.Input)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, ok := scan.ExecutorByName(c.Executor); !ok {
		return fmt.Errorf("%w: executor %q", ErrInvalidConfig, c.Executor)
	}
	return nil
}
