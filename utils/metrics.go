package utils

import "github.com/prometheus/client_golang/prometheus"

var (
	CheckinsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecopet_checkins_total",
			Help: "Streak check-ins by outcome",
		},
		[]string{"outcome"},
	)
	RewardsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecopet_rewards_total",
			Help: "Points awarded by source",
		},
		[]string{"source"},
	)
	TaskRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecopet_task_runs_total",
			Help: "Scheduled task runs by task and status",
		},
		[]string{"task", "status"},
	)
	SweptRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ecopet_swept_rows_total",
			Help: "Rows changed by maintenance sweeps",
		},
		[]string{"task"},
	)
)

func init() {
	prometheus.MustRegister(CheckinsTotal, RewardsTotal, TaskRunsTotal, SweptRowsTotal)
}
