// Package metrics registers the Prometheus instrumentation for
// nimbus-director. Collection shape follows chproxy's own metrics.go and
// internal/topology/metrics.go: package-level vectors, registered once by
// Register(namespace), labeled by the same low-cardinality dimensions the
// teacher uses (cluster, cluster_node, decision code).
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	DirectoryQueries *prometheus.CounterVec
	DirectoryErrors  *prometheus.CounterVec

	LivenessDegraded *prometheus.CounterVec

	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec

	HostHealth *prometheus.GaugeVec

	Decisions *prometheus.CounterVec

	ManagementRotations prometheus.Counter
)

// Register builds every metric under namespace and registers them against
// the default Prometheus registry. Call once at process startup.
func Register(namespace string) {
	DirectoryQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "directory_queries_total",
			Help:      "Total number of directory queries issued, by operation.",
		},
		[]string{"operation"},
	)
	DirectoryErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "directory_errors_total",
			Help:      "Total number of directory errors, by operation and kind.",
		},
		[]string{"operation", "kind"},
	)
	LivenessDegraded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "liveness_degraded_total",
			Help:      "Total number of liveness lookups that fell back to fail-open, by reason.",
		},
		[]string{"reason"},
	)
	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits, by cache name.",
		},
		[]string{"cache"},
	)
	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses, by cache name.",
		},
		[]string{"cache"},
	)
	HostHealth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "host_health",
			Help:      "Liveness oracle's most recent verdict for a host (1 available, 0 not).",
		},
		[]string{"cluster", "cluster_node"},
	)
	Decisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "route_decisions_total",
			Help:      "Total number of routing decisions, by outcome.",
		},
		[]string{"outcome"},
	)
	ManagementRotations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "management_rotations_total",
			Help:      "Total number of management-traffic round-robin rotations.",
		},
	)

	prometheus.MustRegister(
		DirectoryQueries, DirectoryErrors, LivenessDegraded,
		CacheHits, CacheMisses, HostHealth, Decisions, ManagementRotations,
	)
}
