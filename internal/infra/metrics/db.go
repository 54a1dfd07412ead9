package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(dbPoolStats, sendLogWritesTotal) }

var (
	dbPoolStats = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "db_pool_stats",
			Help: "Current state of the database connection pool.",
		},
		[]string{"state"}, // 'total', 'idle', 'in_use'
	)

	sendLogWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "send_log_writes_total",
			Help: "Audit log writes by result (ok, error).",
		},
		[]string{"result"},
	)
)

func SetDBPoolStats(total, idle, inUse int32) {
	dbPoolStats.WithLabelValues("total").Set(float64(total))
	dbPoolStats.WithLabelValues("idle").Set(float64(idle))
	dbPoolStats.WithLabelValues("in_use").Set(float64(inUse))
}

func IncSendLogWrite(ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	sendLogWritesTotal.WithLabelValues(result).Inc()
}
