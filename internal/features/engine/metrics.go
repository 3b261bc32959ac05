package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	passesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outreach_passes_total",
		Help: "Execution passes by final outcome",
	}, []string{"outcome"})

	actionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outreach_actions_total",
		Help: "Attempted actions by action type and outcome",
	}, []string{"action_type", "outcome"})

	actionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "outreach_action_duration_seconds",
		Help:    "Time spent in the action backend",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"action_type"})

	runConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "outreach_run_conflicts_total",
		Help: "Passes refused because the rule was already running",
	})

	activePasses = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "outreach_active_passes",
		Help: "Passes currently holding a run marker in this process",
	})
)
