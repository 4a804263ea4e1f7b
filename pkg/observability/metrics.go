package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Global metrics instance for singleton pattern
	globalCollector *Collector
	collectorMutex  sync.Mutex
)

// Collector holds all Prometheus metrics for the engine
type Collector struct {
	// Registry for this collector instance
	registry *prometheus.Registry

	// Memory store metrics
	MemoriesLoaded  prometheus.Counter
	MemoriesCreated prometheus.Counter
	MemoriesDeleted prometheus.Counter
	LikesToggled    prometheus.Counter
	LikeRollbacks   prometheus.Counter
	DegradedLoads   prometheus.Counter

	// Marker reconciler metrics
	ReconcilePasses prometheus.Counter
	MarkersAdded    prometheus.Counter
	MarkersRemoved  prometheus.Counter

	// Friend graph metrics
	FriendOperations *prometheus.CounterVec

	// Geocode cache metrics
	GeocodeCacheHits   prometheus.Counter
	GeocodeCacheMisses prometheus.Counter
}

// NewCollector creates a new metrics collector with the given namespace
func NewCollector(namespace string) *Collector {
	// Use singleton pattern to avoid duplicate registration in tests
	collectorMutex.Lock()
	defer collectorMutex.Unlock()

	// Return existing collector if already created
	if globalCollector != nil {
		return globalCollector
	}

	// Create a new registry for this collector
	registry := prometheus.NewRegistry()

	// Create metrics (not auto-registered)
	memoriesLoaded := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memories_loaded_total",
			Help:      "Total number of memory list loads",
		},
	)

	memoriesCreated := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memories_created_total",
			Help:      "Total number of memories created",
		},
	)

	memoriesDeleted := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memories_deleted_total",
			Help:      "Total number of memories deleted",
		},
	)

	likesToggled := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "likes_toggled_total",
			Help:      "Total number of like toggles dispatched",
		},
	)

	likeRollbacks := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "like_rollbacks_total",
			Help:      "Total number of optimistic like mutations rolled back",
		},
	)

	degradedLoads := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degraded_loads_total",
			Help:      "Total number of loads completed with partial data",
		},
	)

	reconcilePasses := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_passes_total",
			Help:      "Total number of marker reconciliation passes",
		},
	)

	markersAdded := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "markers_added_total",
			Help:      "Total number of map markers created",
		},
	)

	markersRemoved := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "markers_removed_total",
			Help:      "Total number of map markers removed",
		},
	)

	friendOperations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "friend_operations_total",
			Help:      "Total number of friend graph operations",
		},
		[]string{"operation", "status"},
	)

	geocodeCacheHits := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_hits_total",
			Help:      "Total number of reverse geocode cache hits",
		},
	)

	geocodeCacheMisses := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_misses_total",
			Help:      "Total number of reverse geocode cache misses",
		},
	)

	// Register all metrics with the registry
	registry.MustRegister(
		memoriesLoaded,
		memoriesCreated,
		memoriesDeleted,
		likesToggled,
		likeRollbacks,
		degradedLoads,
		reconcilePasses,
		markersAdded,
		markersRemoved,
		friendOperations,
		geocodeCacheHits,
		geocodeCacheMisses,
	)

	// Create and store the collector
	globalCollector = &Collector{
		registry:           registry,
		MemoriesLoaded:     memoriesLoaded,
		MemoriesCreated:    memoriesCreated,
		MemoriesDeleted:    memoriesDeleted,
		LikesToggled:       likesToggled,
		LikeRollbacks:      likeRollbacks,
		DegradedLoads:      degradedLoads,
		ReconcilePasses:    reconcilePasses,
		MarkersAdded:       markersAdded,
		MarkersRemoved:     markersRemoved,
		FriendOperations:   friendOperations,
		GeocodeCacheHits:   geocodeCacheHits,
		GeocodeCacheMisses: geocodeCacheMisses,
	}

	return globalCollector
}

// Registry returns the Prometheus registry backing this collector so the
// caller can expose it (e.g. via promhttp) or scrape it in tests
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
