package trs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// rewriteSteps counts successful single rewrite steps by strategy.
	rewriteSteps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trs_rewrite_steps_total",
		Help: "Single rewrite steps taken, by strategy",
	}, []string{"strategy"})

	rewriteBounded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trs_rewrite_bounded_total",
		Help: "Rewrite calls that stopped at the step bound before a normal form",
	})

	traceExpansions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trs_trace_expansions_total",
		Help: "Trace states expanded",
	})

	// traceHalts counts finished trace runs.
	// Labels: "exhausted", "min_p", "max_steps", "canceled"
	traceHalts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trs_trace_halts_total",
		Help: "Trace runs by halting reason",
	}, []string{"reason"})

	traceNodes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "trs_trace_nodes",
		Help:    "Nodes allocated per trace run",
		Buckets: []float64{1, 2, 5, 10, 20, 50, 100, 500, 1000, 5000},
	})

	generationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trs_generation_errors_total",
		Help: "Sampling calls aborted by a generation error, by operation",
	}, []string{"op"})
)
