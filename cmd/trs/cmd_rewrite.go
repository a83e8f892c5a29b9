package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/gitrdm/gotrs/pkg/syntax"
	"github.com/gitrdm/gotrs/pkg/trs"
)

func (a *app) rewriteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rewrite FILE TERM",
		Short: "Rewrite TERM to normal form under the rules in FILE",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			system, err := loadSystem(args[0])
			if err != nil {
				return err
			}
			t, err := syntax.ParseTerm(system.Signature(), args[1])
			if err != nil {
				return err
			}

			res := trs.Rewrite(t, system, a.cfg.Strategy(), a.cfg.Rewrite.MaxSteps)
			fmt.Fprintln(cmd.OutOrStdout(), res.Term)

			if !res.NormalForm {
				slog.Warn("step bound reached before a normal form",
					slog.Int("steps", res.Steps),
					slog.String("strategy", a.cfg.Strategy().String()),
				)
				return nil
			}
			slog.Info("normal form reached", slog.Int("steps", res.Steps))
			return nil
		},
	}
}

func (a *app) stepCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "step FILE TERM",
		Short: "Apply a single rewrite step to TERM",
		Long: `Apply a single rewrite step at the position chosen by the strategy.
With --all every alternative of a non-deterministic rule is printed, one per
line, the first being the one chosen without --all.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			system, err := loadSystem(args[0])
			if err != nil {
				return err
			}
			t, err := syntax.ParseTerm(system.Signature(), args[1])
			if err != nil {
				return err
			}

			var outs []trs.Term
			ok := false
			if all {
				outs, ok = trs.SingleRewriteAll(t, system, a.cfg.Strategy())
			} else {
				var next trs.Term
				if next, ok = trs.SingleRewrite(t, system, a.cfg.Strategy()); ok {
					outs = []trs.Term{next}
				}
			}
			if !ok {
				slog.Info("term is in normal form", slog.String("term", t.String()))
				fmt.Fprintln(cmd.OutOrStdout(), t)
				return nil
			}
			for _, o := range outs {
				fmt.Fprintln(cmd.OutOrStdout(), o)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "print every alternative")
	return cmd
}
