package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(clientCacheRequestsTotal) }

var clientCacheRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "client_cache_requests_total",
		Help: "Client handle lookups, by provider and result (hit, miss, error).",
	},
	[]string{"provider", "result"},
)

func IncClientCache(provider, result string) {
	clientCacheRequestsTotal.WithLabelValues(norm(provider), norm(result)).Inc()
}
