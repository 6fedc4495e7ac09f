package arena

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus instrumentation shared by any number of arenas.
// A nil *Metrics records nothing.
type Metrics struct {
	allocations      prometheus.Counter
	allocatedBytes   prometheus.Counter
	paddingBytes     prometheus.Counter
	outOfSpace       prometheus.Counter
	resets           prometheus.Counter
	creationFailures prometheus.Counter
	ownedCapacity    prometheus.Gauge
}

// NewMetrics registers the arena metrics with reg. reg may be nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		allocations: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "arena_allocations_total",
			Help: "Total number of successful arena allocations.",
		}),
		allocatedBytes: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "arena_allocated_bytes_total",
			Help: "Total number of bytes handed out by arena allocations, excluding padding.",
		}),
		paddingBytes: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "arena_padding_bytes_total",
			Help: "Total number of bytes consumed by alignment padding.",
		}),
		outOfSpace: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "arena_out_of_space_total",
			Help: "Total number of allocations rejected because the arena was full.",
		}),
		resets: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "arena_resets_total",
			Help: "Total number of arena resets.",
		}),
		creationFailures: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "arena_creation_failures_total",
			Help: "Total number of owning arenas that failed to acquire their buffer.",
		}),
		ownedCapacity: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "arena_owned_capacity_bytes",
			Help: "Bytes currently held by live owning arenas.",
		}),
	}
}

func (m *Metrics) observeAlloc(size, pad int) {
	if m == nil {
		return
	}
	m.allocations.Inc()
	m.allocatedBytes.Add(float64(size))
	if pad > 0 {
		m.paddingBytes.Add(float64(pad))
	}
}

func (m *Metrics) observeOutOfSpace() {
	if m == nil {
		return
	}
	m.outOfSpace.Inc()
}

func (m *Metrics) observeReset() {
	if m == nil {
		return
	}
	m.resets.Inc()
}

func (m *Metrics) observeCreationFailure() {
	if m == nil {
		return
	}
	m.creationFailures.Inc()
}

func (m *Metrics) observeOwned(delta int) {
	if m == nil {
		return
	}
	m.ownedCapacity.Add(float64(delta))
}
