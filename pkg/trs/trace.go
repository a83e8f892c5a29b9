package trs

import (
	"container/heap"
	"context"
	"log/slog"
	"math"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/gitrdm/gotrs/pkg/trs")

// NodeState is the status of a state in a Trace.
type NodeState int

const (
	// Unexpanded states are still queued; their mass is unexplored.
	Unexpanded NodeState = iota

	// NormalForm states have no rewrite and are observed with certainty.
	NormalForm

	// Observed states were expanded; evaluation halts at them with
	// probability PObserve.
	Observed
)

func (s NodeState) String() string {
	switch s {
	case Unexpanded:
		return "unexpanded"
	case NormalForm:
		return "normal-form"
	case Observed:
		return "observed"
	}
	return "unknown"
}

// HaltReason records why a Trace stopped expanding.
type HaltReason int

const (
	// NotRun means Run has not been called.
	NotRun HaltReason = iota

	// Exhausted means every state was expanded; the result is exact.
	Exhausted

	// BelowMinP means the most probable queued state fell below MinP.
	BelowMinP

	// StepLimit means MaxSteps expansions were performed.
	StepLimit

	// Canceled means the context was done.
	Canceled
)

func (h HaltReason) String() string {
	switch h {
	case NotRun:
		return "not_run"
	case Exhausted:
		return "exhausted"
	case BelowMinP:
		return "min_p"
	case StepLimit:
		return "max_steps"
	case Canceled:
		return "canceled"
	}
	return "unknown"
}

// TraceOptions parameterise the evaluation model and its bounds.
type TraceOptions struct {
	// PObserve is the per-step probability that evaluation halts and the
	// current term is observed.
	PObserve float64

	// MaxSteps bounds the number of expansions; zero or negative disables
	// the bound.
	MaxSteps int

	// MinP stops the search once the most probable queued state is less
	// likely than this; zero disables the bound.
	MinP float64

	// Strategy selects the redex for each step.
	Strategy Strategy
}

// DefaultTraceOptions returns p_observe 0.2, 100 steps, min_p 1e-6,
// innermost.
func DefaultTraceOptions() TraceOptions {
	return TraceOptions{
		PObserve: 0.2,
		MaxSteps: 100,
		MinP:     1e-6,
		Strategy: Innermost,
	}
}

// TraceNode is one state of the rewrite tree. Parent is -1 for the root.
type TraceNode struct {
	Term   Term
	LogP   float64
	Parent int
	Depth  int
	State  NodeState
}

// Outcome is a term at which evaluation may halt, with the log-probability
// of halting there.
type Outcome struct {
	Term Term
	LogP float64
	Node int
}

// Trace is a best-first exploration of the rewrites of a start term. States
// live in an arena and refer to their parents by index.
//
// The probability leaving any state sums to one before pruning: a normal
// form is observed with its full mass; any other state keeps PObserve of its
// mass as an observation and splits the rest evenly over its one-step
// rewrites.
type Trace struct {
	id     string
	system *TRS
	opts   TraceOptions
	nodes  []TraceNode
	queue  nodeQueue
	steps  int
	halt   HaltReason
}

// NewTrace prepares a trace of start under system. Nothing is expanded until
// Run.
func NewTrace(system *TRS, start Term, opts TraceOptions) *Trace {
	t := &Trace{
		id:     uuid.NewString(),
		system: system,
		opts:   opts,
		nodes:  []TraceNode{{Term: start, LogP: 0, Parent: -1}},
	}
	t.queue = nodeQueue{trace: t, items: []int{0}}
	return t
}

// ID identifies the trace in logs and spans.
func (t *Trace) ID() string { return t.id }

// Run expands states in order of decreasing probability until the queue is
// empty or a bound is hit. Calling Run again resumes a trace stopped by
// cancellation; other halts are final.
func (t *Trace) Run(ctx context.Context) HaltReason {
	if t.halt != NotRun && t.halt != Canceled {
		return t.halt
	}

	ctx, span := tracer.Start(ctx, "trs.Trace.Run",
		trace.WithAttributes(
			attribute.String("trace.id", t.id),
			attribute.String("trace.start", t.nodes[0].Term.String()),
			attribute.Float64("trace.p_observe", t.opts.PObserve),
			attribute.Int("trace.max_steps", t.opts.MaxSteps),
			attribute.Float64("trace.min_p", t.opts.MinP),
		),
	)
	defer span.End()

	logMinP := logProb(t.opts.MinP)
	for {
		if t.queue.Len() == 0 {
			t.halt = Exhausted
			break
		}
		if ctx.Err() != nil {
			t.halt = Canceled
			break
		}
		if t.opts.MaxSteps > 0 && t.steps >= t.opts.MaxSteps {
			t.halt = StepLimit
			break
		}
		idx := heap.Pop(&t.queue).(int)
		if t.nodes[idx].LogP < logMinP {
			heap.Push(&t.queue, idx)
			t.halt = BelowMinP
			break
		}
		t.expand(idx)
		t.steps++
	}

	traceHalts.WithLabelValues(t.halt.String()).Inc()
	traceNodes.Observe(float64(len(t.nodes)))
	span.SetAttributes(
		attribute.String("trace.halt", t.halt.String()),
		attribute.Int("trace.steps", t.steps),
		attribute.Int("trace.nodes", len(t.nodes)),
	)
	if t.halt == Canceled {
		span.RecordError(ctx.Err())
		span.SetStatus(codes.Error, "trace canceled")
	} else {
		span.SetStatus(codes.Ok, "trace finished")
	}

	if slog.Default().Enabled(ctx, slog.LevelDebug) {
		slog.DebugContext(ctx, "trace finished",
			slog.String("trace_id", t.id),
			slog.String("halt", t.halt.String()),
			slog.Int("steps", t.steps),
			slog.Int("nodes", len(t.nodes)),
			slog.Float64("unexplored", math.Exp(t.Unexplored())),
		)
	}
	return t.halt
}

func (t *Trace) expand(idx int) {
	traceExpansions.Inc()
	n := t.nodes[idx]
	outs, ok := SingleRewriteAll(n.Term, t.system, t.opts.Strategy)
	if !ok {
		t.nodes[idx].State = NormalForm
		return
	}
	t.nodes[idx].State = Observed

	childLogP := n.LogP + logProb(1-t.opts.PObserve) - math.Log(float64(len(outs)))
	if math.IsInf(childLogP, -1) {
		return
	}
	for _, o := range outs {
		t.nodes = append(t.nodes, TraceNode{
			Term:   o,
			LogP:   childLogP,
			Parent: idx,
			Depth:  n.Depth + 1,
		})
		heap.Push(&t.queue, len(t.nodes)-1)
	}
}

// Halt returns why the last Run stopped.
func (t *Trace) Halt() HaltReason { return t.halt }

// Bounded reports whether the result is an approximation: Run stopped at a
// bound with probability mass left unexplored.
func (t *Trace) Bounded() bool {
	return t.halt != Exhausted
}

// Steps returns the number of expansions performed.
func (t *Trace) Steps() int { return t.steps }

// Nodes returns a copy of the arena.
func (t *Trace) Nodes() []TraceNode {
	out := make([]TraceNode, len(t.nodes))
	copy(out, t.nodes)
	return out
}

// Node returns the state at index i.
func (t *Trace) Node(i int) (TraceNode, bool) {
	if i < 0 || i >= len(t.nodes) {
		return TraceNode{}, false
	}
	return t.nodes[i], true
}

// observedLogP is the log-probability that evaluation halts at node i.
func (t *Trace) observedLogP(i int) float64 {
	n := t.nodes[i]
	switch n.State {
	case NormalForm:
		return n.LogP
	case Observed:
		return n.LogP + logProb(t.opts.PObserve)
	}
	return LogZero
}

// Outcomes returns every state at which evaluation halts with non-zero
// probability, in arena order.
func (t *Trace) Outcomes() []Outcome {
	var out []Outcome
	for i := range t.nodes {
		lp := t.observedLogP(i)
		if math.IsInf(lp, -1) {
			continue
		}
		out = append(out, Outcome{Term: t.nodes[i].Term, LogP: lp, Node: i})
	}
	return out
}

// Distribution merges Outcomes whose terms are alpha-equivalent. Each entry
// keeps the first node at which its term was reached.
func (t *Trace) Distribution() []Outcome {
	var dist []Outcome
	for _, o := range t.Outcomes() {
		merged := false
		for i := range dist {
			if Alpha(dist[i].Term, o.Term) {
				dist[i].LogP = logAddExp(dist[i].LogP, o.LogP)
				merged = true
				break
			}
		}
		if !merged {
			dist = append(dist, o)
		}
	}
	return dist
}

// Mass is the log of the total probability observed so far.
func (t *Trace) Mass() float64 {
	lps := make([]float64, 0, len(t.nodes))
	for i := range t.nodes {
		lps = append(lps, t.observedLogP(i))
	}
	return LogSumExp(lps...)
}

// Unexplored is the log of the probability still held by queued states.
func (t *Trace) Unexplored() float64 {
	lps := make([]float64, 0, len(t.queue.items))
	for _, i := range t.queue.items {
		lps = append(lps, t.nodes[i].LogP)
	}
	return LogSumExp(lps...)
}

// Path returns the terms from the start term to node i.
func (t *Trace) Path(i int) []Term {
	if i < 0 || i >= len(t.nodes) {
		return nil
	}
	var path []Term
	for ; i >= 0; i = t.nodes[i].Parent {
		path = append(path, t.nodes[i].Term)
	}
	for l, r := 0, len(path)-1; l < r; l, r = l+1, r-1 {
		path[l], path[r] = path[r], path[l]
	}
	return path
}

// LogPOf sums the probability of halting at a term alpha-equivalent to
// target.
func (t *Trace) LogPOf(target Term) float64 {
	var lps []float64
	for _, o := range t.Outcomes() {
		if Alpha(o.Term, target) {
			lps = append(lps, o.LogP)
		}
	}
	return LogSumExp(lps...)
}

// Likelihood is the log-probability that a start term evaluates to a target.
// Bounded marks an approximation from a trace stopped at a bound.
type Likelihood struct {
	LogP    float64
	Bounded bool
}

// Prob returns exp(LogP).
func (l Likelihood) Prob() float64 { return math.Exp(l.LogP) }

// RewritesTo runs a trace from start and returns the log-probability that
// evaluation halts at a term alpha-equivalent to target. An unreachable
// target yields LogZero.
func RewritesTo(ctx context.Context, system *TRS, start, target Term, opts TraceOptions) Likelihood {
	t := NewTrace(system, start, opts)
	t.Run(ctx)
	return Likelihood{LogP: t.LogPOf(target), Bounded: t.Bounded()}
}

// nodeQueue is a max-heap of arena indices ordered by LogP. Ties go to the
// older state so that runs are deterministic.
type nodeQueue struct {
	trace *Trace
	items []int
}

func (q nodeQueue) Len() int { return len(q.items) }

func (q nodeQueue) Less(i, j int) bool {
	a, b := q.items[i], q.items[j]
	pa, pb := q.trace.nodes[a].LogP, q.trace.nodes[b].LogP
	if pa != pb {
		return pa > pb
	}
	return a < b
}

func (q nodeQueue) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }

func (q *nodeQueue) Push(x any) { q.items = append(q.items, x.(int)) }

func (q *nodeQueue) Pop() any {
	old := q.items
	n := len(old)
	x := old[n-1]
	q.items = old[:n-1]
	return x
}
