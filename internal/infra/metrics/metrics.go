// File: internal/infra/metrics/metrics.go
package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		sendsTotal, sendDurationSeconds, candidatesTried,
		discoveryVisited, rejectionsTotal,
	)
}

var (
	sendsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sends_total",
			Help: "Send requests by provider and outcome (delivered, failed, no_candidates, rejected).",
		},
		[]string{"provider", "outcome"},
	)

	sendDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "send_duration_seconds",
			Help:    "Time spent discovering and invoking a sender.",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider", "success"},
	)

	candidatesTried = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "send_candidates_tried",
			Help:    "Candidates invoked per send, conversation makers included.",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13},
		},
		[]string{"provider"},
	)

	discoveryVisited = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "discovery_visited_nodes",
			Help:    "Objects visited by one discovery pass.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 7),
		},
		[]string{"provider"},
	)

	rejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "send_rejections_total",
			Help: "Sends stopped before reaching the client, by reason (rate_limited, duplicate).",
		},
		[]string{"reason"},
	)
)

func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// -------- Send helpers --------

func ObserveSend(provider, outcome string, d time.Duration, tried, visited int) {
	p := norm(provider)
	sendsTotal.WithLabelValues(p, norm(outcome)).Inc()
	sendDurationSeconds.WithLabelValues(p, strconv.FormatBool(outcome == "delivered")).Observe(d.Seconds())
	candidatesTried.WithLabelValues(p).Observe(float64(tried))
	discoveryVisited.WithLabelValues(p).Observe(float64(visited))
}

func IncRejection(reason string) {
	rejectionsTotal.WithLabelValues(norm(reason)).Inc()
}
