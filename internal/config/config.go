// Package config loads settings for the trs command. Values come from, in
// increasing priority: built-in defaults, a YAML file, TRS_* environment
// variables. The merged result is checked with struct-tag validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/gitrdm/gotrs/pkg/trs"
)

var validate = validator.New()

// Config contains every setting of the command.
//
// Thread Safety: Safe to read concurrently. Not safe to modify after creation.
type Config struct {
	// Rewrite contains settings for plain normalisation.
	Rewrite RewriteConfig `yaml:"rewrite"`

	// Trace contains settings for probability-weighted evaluation.
	Trace TraceConfig `yaml:"trace"`

	// Generator contains sampler settings.
	Generator GeneratorConfig `yaml:"generator"`

	// Logging contains log output settings.
	Logging LoggingConfig `yaml:"logging"`

	// Parallel contains batch scoring settings.
	Parallel ParallelConfig `yaml:"parallel"`
}

// RewriteConfig contains settings shared by rewrite and step.
type RewriteConfig struct {
	Strategy string `yaml:"strategy" validate:"oneof=innermost outermost inner outer io oi"`
	MaxSteps int    `yaml:"max_steps" validate:"gte=1"`
}

// TraceConfig mirrors trs.TraceOptions.
type TraceConfig struct {
	PObserve float64 `yaml:"p_observe" validate:"gte=0,lte=1"`
	MaxSteps int     `yaml:"max_steps" validate:"gte=0"`
	MinP     float64 `yaml:"min_p" validate:"gte=0,lte=1"`
}

// GeneratorConfig contains sampler settings.
type GeneratorConfig struct {
	Seed             uint64  `yaml:"seed"`
	MaxDepth         int     `yaml:"max_depth" validate:"gte=0,lte=64"`
	PAlternative     float64 `yaml:"p_alternative" validate:"gte=0,lt=1"`
	PRule            float64 `yaml:"p_rule" validate:"gte=0,lt=1"`
	Invent           bool    `yaml:"invent"`
	RHSFromSignature bool    `yaml:"rhs_from_signature"`
}

// LoggingConfig contains log output settings.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	File  string `yaml:"file"`
	JSON  bool   `yaml:"json"`
}

// ParallelConfig contains batch scoring settings.
type ParallelConfig struct {
	Workers int `yaml:"workers" validate:"gte=1,lte=1024"`
}

// Default returns the built-in settings.
func Default() Config {
	opts := trs.DefaultTraceOptions()
	return Config{
		Rewrite: RewriteConfig{
			Strategy: opts.Strategy.String(),
			MaxSteps: 100,
		},
		Trace: TraceConfig{
			PObserve: opts.PObserve,
			MaxSteps: opts.MaxSteps,
			MinP:     opts.MinP,
		},
		Generator: GeneratorConfig{
			Seed:         1,
			MaxDepth:     trs.DefaultMaxDepth,
			PAlternative: 0.2,
			PRule:        0.5,
			Invent:       true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Parallel: ParallelConfig{
			Workers: runtime.NumCPU(),
		},
	}
}

// Load merges defaults, the YAML file at path (if path is non-empty and the
// file exists) and the environment, then validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := loadEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("load config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func loadEnv(cfg *Config) error {
	if v := os.Getenv("TRS_STRATEGY"); v != "" {
		cfg.Rewrite.Strategy = v
	}
	if v := os.Getenv("TRS_P_OBSERVE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("TRS_P_OBSERVE: %w", err)
		}
		cfg.Trace.PObserve = f
	}
	if v := os.Getenv("TRS_MAX_STEPS"); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TRS_MAX_STEPS: %w", err)
		}
		cfg.Trace.MaxSteps = i
		// Zero lifts the trace bound only; rewriting always stays bounded.
		if i != 0 {
			cfg.Rewrite.MaxSteps = i
		}
	}
	if v := os.Getenv("TRS_MIN_P"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("TRS_MIN_P: %w", err)
		}
		cfg.Trace.MinP = f
	}
	if v := os.Getenv("TRS_SEED"); v != "" {
		u, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("TRS_SEED: %w", err)
		}
		cfg.Generator.Seed = u
	}
	if v := os.Getenv("TRS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TRS_WORKERS"); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TRS_WORKERS: %w", err)
		}
		cfg.Parallel.Workers = i
	}
	return nil
}

// ErrUnboundedTrace is returned when a trace has neither a step bound nor a
// probability floor.
var ErrUnboundedTrace = errors.New("trace needs max_steps > 0 or min_p > 0")

// Validate checks every field against its constraints. A trace max_steps of
// zero removes the step bound, which is allowed only with a positive min_p.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Trace.MaxSteps == 0 && c.Trace.MinP == 0 {
		return ErrUnboundedTrace
	}
	return nil
}

// Strategy returns the configured rewrite strategy.
func (c Config) Strategy() trs.Strategy {
	s, err := trs.ParseStrategy(c.Rewrite.Strategy)
	if err != nil {
		return trs.Innermost
	}
	return s
}

// TraceOptions converts the trace settings.
func (c Config) TraceOptions() trs.TraceOptions {
	return trs.TraceOptions{
		PObserve: c.Trace.PObserve,
		MaxSteps: c.Trace.MaxSteps,
		MinP:     c.Trace.MinP,
		Strategy: c.Strategy(),
	}
}

// Sampler builds a sampler from the generator settings.
func (c Config) Sampler() *trs.Sampler {
	return trs.NewSampler(c.Generator.Seed,
		trs.WithMaxDepth(c.Generator.MaxDepth),
		trs.WithPAlternative(c.Generator.PAlternative),
		trs.WithRHSFromSignature(c.Generator.RHSFromSignature),
	)
}
