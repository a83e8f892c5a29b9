package main

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/gitrdm/gotrs/internal/parallel"
	"github.com/gitrdm/gotrs/pkg/syntax"
	"github.com/gitrdm/gotrs/pkg/trs"
)

func (a *app) traceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trace FILE START [TARGET]",
		Short: "Print the distribution over terms START evaluates to",
		Long: `Explore the rewrites of START best first. Each step halts with probability
p_observe; the rest of the mass is split evenly over the one-step rewrites.
Outcomes are printed most likely first as "probability<TAB>term". With TARGET
only the log-probability of reaching it is printed.`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			system, err := loadSystem(args[0])
			if err != nil {
				return err
			}
			start, err := syntax.ParseTerm(system.Signature(), args[1])
			if err != nil {
				return err
			}

			tr := trs.NewTrace(system, start, a.cfg.TraceOptions())
			halt := tr.Run(cmd.Context())
			slog.Info("trace finished",
				slog.String("trace_id", tr.ID()),
				slog.String("halt", halt.String()),
				slog.Int("steps", tr.Steps()),
				slog.Float64("unexplored", math.Exp(tr.Unexplored())),
			)

			out := cmd.OutOrStdout()
			if len(args) == 3 {
				target, err := syntax.ParseTerm(system.Signature(), args[2])
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%f\n", tr.LogPOf(target))
				return nil
			}

			dist := tr.Distribution()
			slices.SortStableFunc(dist, func(x, y trs.Outcome) int { return cmp.Compare(y.LogP, x.LogP) })
			for _, o := range dist {
				fmt.Fprintf(out, "%.6f\t%s\n", math.Exp(o.LogP), o.Term)
			}
			return nil
		},
	}
}

// score is the likelihood of one observed equation.
type score struct {
	eq trs.Equation
	trs.Likelihood
}

func (a *app) scoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "score FILE DATA",
		Short: "Score the input = output equations in DATA under the rules in FILE",
		Long: `Compute, for every equation "input = output;" in DATA, the log-probability
that input evaluates to output. Equations are scored concurrently. Each line
of output is "log_p<TAB>equation"; the last line is the total.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			system, err := loadSystem(args[0])
			if err != nil {
				return err
			}
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			eqs, err := syntax.ReadEquations(f, system.Signature())
			f.Close()
			if err != nil {
				return fmt.Errorf("%s: %w", args[1], err)
			}

			scores, err := a.scoreAll(cmd.Context(), system, eqs)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			total := 0.0
			bounded := 0
			for _, s := range scores {
				fmt.Fprintf(out, "%f\t%s = %s;\n", s.LogP, s.eq.Left, s.eq.Right)
				total += s.LogP
				if s.Bounded {
					bounded++
				}
			}
			fmt.Fprintf(out, "%f\ttotal\n", total)
			if bounded > 0 {
				slog.Warn("some likelihoods are lower bounds",
					slog.Int("bounded", bounded),
					slog.Int("equations", len(scores)),
				)
			}
			return nil
		},
	}
}

// scoreAll runs one trace per equation on a worker pool. The system is only
// read while the traces run.
func (a *app) scoreAll(ctx context.Context, system *trs.TRS, eqs []trs.Equation) ([]score, error) {
	pool := parallel.NewWorkerPool(a.cfg.Parallel.Workers)
	defer pool.Shutdown()

	opts := a.cfg.TraceOptions()
	return parallel.Map(ctx, pool, eqs, func(ctx context.Context, eq trs.Equation) score {
		return score{eq: eq, Likelihood: trs.RewritesTo(ctx, system, eq.Left, eq.Right, opts)}
	})
}
