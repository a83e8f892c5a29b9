package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gitrdm/gotrs/pkg/syntax"
	"github.com/gitrdm/gotrs/pkg/trs"
)

// sampleFlags are shared by the sample subcommands.
type sampleFlags struct {
	signature string
	count     int
	invent    bool
	maxDepth  int
}

func (a *app) sampleCmd() *cobra.Command {
	var sf sampleFlags
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Draw terms, rules or systems from a signature",
		Long: `Draw from the generator over a signature such as "S/0 K/0 ./2 x_". Each
draw is printed after its log-probability under the generator.`,
	}
	pf := cmd.PersistentFlags()
	pf.StringVar(&sf.signature, "signature", "", "atoms to draw from, e.g. \"S/0 K/0 ./2\"")
	pf.IntVar(&sf.count, "count", 1, "number of draws")
	pf.BoolVar(&sf.invent, "invent", false, "allow fresh variables (default from config)")
	pf.IntVar(&sf.maxDepth, "max-depth", 0, "depth bound (default from config)")
	_ = cmd.MarkPersistentFlagRequired("signature")

	cmd.AddCommand(a.sampleTermCmd(&sf), a.sampleRuleCmd(&sf), a.sampleTRSCmd(&sf))
	return cmd
}

// sampler builds the generator and parses the signature.
func (a *app) sampler(cmd *cobra.Command, sf *sampleFlags) (*trs.Sampler, *trs.Signature, error) {
	src := strings.TrimSpace(sf.signature)
	if !strings.HasPrefix(src, "signature") {
		src = "signature " + src
	}
	if !strings.HasSuffix(src, ";") {
		src += ";"
	}
	sig, err := syntax.ParseSignature(nil, src)
	if err != nil {
		return nil, nil, fmt.Errorf("--signature: %w", err)
	}

	s := a.cfg.Sampler()
	if cmd.Flags().Changed("max-depth") {
		s.MaxDepth = sf.maxDepth
	}
	if !cmd.Flags().Changed("invent") {
		sf.invent = a.cfg.Generator.Invent
	}
	if sf.count < 1 {
		return nil, nil, fmt.Errorf("--count must be positive, got %d", sf.count)
	}
	slog.Debug("sampling",
		slog.String("signature", sig.String()),
		slog.Uint64("seed", a.cfg.Generator.Seed),
		slog.Int("max_depth", s.MaxDepth),
		slog.Bool("invent", sf.invent),
	)
	return s, sig, nil
}

func (a *app) sampleTermCmd(sf *sampleFlags) *cobra.Command {
	var (
		require []string
		perturb string
		pRedraw float64
	)
	cmd := &cobra.Command{
		Use:   "term",
		Short: "Draw terms",
		Long: `Draw terms. --require lists atoms that must occur in every draw; --perturb
draws variations of a given term instead, redrawing each subtree with
probability --p-redraw.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, sig, err := a.sampler(cmd, sf)
			if err != nil {
				return err
			}
			constraints, err := resolveAtoms(sig, require)
			if err != nil {
				return err
			}
			var orig trs.Term
			if perturb != "" {
				if orig, err = syntax.ParseTerm(sig, perturb); err != nil {
					return fmt.Errorf("--perturb: %w", err)
				}
			}

			out := cmd.OutOrStdout()
			for range sf.count {
				var (
					t  trs.Term
					lp float64
				)
				switch {
				case orig != nil:
					t, err = s.SampleTermT(sig, orig, pRedraw, sf.invent)
					if err == nil {
						lp = s.LogPTermT(sig, orig, pRedraw, sf.invent, t)
					}
				case len(constraints) > 0:
					t, err = s.SampleTermC(sig, constraints, sf.invent)
					if err == nil {
						lp = s.LogPTermC(t, sig, constraints, sf.invent)
					}
				default:
					t, err = s.SampleTerm(sig, sf.invent)
					if err == nil {
						lp = s.LogPTerm(t, sig, sf.invent)
					}
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%.4f\t%s\n", lp, t)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&require, "require", nil, "atoms every draw must contain, e.g. K,x_")
	cmd.Flags().StringVar(&perturb, "perturb", "", "term to perturb")
	cmd.Flags().Float64Var(&pRedraw, "p-redraw", 0.3, "per-node redraw probability for --perturb")
	return cmd
}

func (a *app) sampleRuleCmd(sf *sampleFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "rule",
		Short: "Draw rewrite rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, sig, err := a.sampler(cmd, sf)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for range sf.count {
				r, err := s.SampleRule(sig, sf.invent)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%.4f\t%s\n", s.LogPRule(r, sig, sf.invent), r)
			}
			return nil
		},
	}
}

func (a *app) sampleTRSCmd(sf *sampleFlags) *cobra.Command {
	var pRule float64
	cmd := &cobra.Command{
		Use:   "trs",
		Short: "Draw whole rewrite systems",
		Long: `Draw rewrite systems. The number of rules is geometric with continuation
probability --p-rule. Each system is printed in the textual syntax after a
comment holding its log-probability, so the output can be read back.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, sig, err := a.sampler(cmd, sf)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("p-rule") {
				pRule = a.cfg.Generator.PRule
			}
			out := cmd.OutOrStdout()
			for i := range sf.count {
				system, err := s.SampleTRS(sig, pRule)
				if err != nil {
					return err
				}
				if i > 0 {
					fmt.Fprintln(out)
				}
				fmt.Fprintf(out, "# log p = %.4f\n%s\n", s.LogPTRS(system, sig, pRule), system)
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&pRule, "p-rule", 0, "continuation probability of the rule count (default from config)")
	return cmd
}

// resolveAtoms looks up atoms by name; a trailing underscore names a
// variable.
func resolveAtoms(sig *trs.Signature, names []string) ([]trs.Atom, error) {
	var atoms []trs.Atom
	for _, name := range names {
		name = strings.TrimSpace(name)
		if v, ok := strings.CutSuffix(name, "_"); ok {
			variable, found := sig.Variable(v)
			if !found {
				return nil, fmt.Errorf("--require: no variable %s in the signature", name)
			}
			atoms = append(atoms, variable)
			continue
		}
		ops := sig.OperatorsNamed(name)
		switch len(ops) {
		case 0:
			return nil, fmt.Errorf("--require: no operator %s in the signature", name)
		case 1:
			atoms = append(atoms, ops[0])
		default:
			return nil, fmt.Errorf("--require: operator name %s is ambiguous", name)
		}
	}
	return atoms, nil
}
