package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gitrdm/gotrs/internal/config"
	"github.com/gitrdm/gotrs/internal/logging"
	"github.com/gitrdm/gotrs/pkg/syntax"
	"github.com/gitrdm/gotrs/pkg/trs"
)

// app holds the state shared by every subcommand: the flag values, the
// merged configuration and the logger built from it.
type app struct {
	configPath string
	strategy   string
	maxSteps   int
	pObserve   float64
	minP       float64
	seed       uint64
	logLevel   string

	cfg config.Config
	log *logging.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "trs",
		Short:        "Rewrite, evaluate and sample term rewriting systems",
		SilenceUsage: true,
		Version:      trs.GetVersion(),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			if a.log == nil {
				return nil
			}
			return a.log.Close()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "YAML config file")
	pf.StringVar(&a.strategy, "strategy", "", "rewrite strategy: innermost or outermost")
	pf.IntVar(&a.maxSteps, "max-steps", 0, "step bound for rewrite and trace; 0 lifts the trace bound")
	pf.Float64Var(&a.pObserve, "p-observe", 0, "per-step observation probability")
	pf.Float64Var(&a.minP, "min-p", 0, "probability below which traces stop")
	pf.Uint64Var(&a.seed, "seed", 0, "generator seed")
	pf.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error")

	root.AddCommand(
		a.rewriteCmd(),
		a.stepCmd(),
		a.traceCmd(),
		a.scoreCmd(),
		a.sampleCmd(),
		versionCmd(),
	)
	return root
}

// setup merges flags over the loaded configuration and installs the logger
// as the slog default.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("strategy") {
		cfg.Rewrite.Strategy = a.strategy
	}
	if flags.Changed("max-steps") {
		cfg.Trace.MaxSteps = a.maxSteps
		if a.maxSteps != 0 {
			cfg.Rewrite.MaxSteps = a.maxSteps
		}
	}
	if flags.Changed("p-observe") {
		cfg.Trace.PObserve = a.pObserve
	}
	if flags.Changed("min-p") {
		cfg.Trace.MinP = a.minP
	}
	if flags.Changed("seed") {
		cfg.Generator.Seed = a.seed
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	a.cfg = cfg

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	l, err := logging.New(logging.Config{
		Level:  level,
		File:   cfg.Logging.File,
		JSON:   cfg.Logging.JSON,
		Writer: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	a.log = l
	slog.SetDefault(l.Logger)
	return nil
}

// loadSystem reads a rewrite system from path.
func loadSystem(path string) (*trs.TRS, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	system, err := syntax.ReadTRS(f, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	slog.Debug("loaded rewrite system",
		slog.String("file", path),
		slog.Int("rules", system.Len()),
		slog.Int("atoms", system.Signature().Len()),
	)
	return system, nil
}
