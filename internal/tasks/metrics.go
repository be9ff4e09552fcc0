package tasks

import "github.com/prometheus/client_golang/prometheus"

var (
	storeOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasktree_store_operations_total",
			Help: "Total number of task store operations by result",
		},
		[]string{"op", "result"},
	)

	tasksGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tasktree_tasks",
			Help: "Number of tasks in the forest at every depth, by status",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(storeOpsTotal, tasksGauge)
}

func observeOp(op string, err error) {
	storeOpsTotal.WithLabelValues(op, resultLabel(err)).Inc()
}

func observeForest(forest []Task) {
	for st, n := range countByStatus(forest) {
		tasksGauge.WithLabelValues(string(st)).Set(float64(n))
	}
}
