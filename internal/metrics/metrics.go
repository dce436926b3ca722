// Package metrics holds the prometheus collectors exported by the cache.
// Collectors are registered on a caller-supplied registerer so tests can use
// an isolated registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cached_inventory"

// Result labels.
const (
	ResultOK                = "ok"
	ResultInvalidAmount     = "invalid_amount"
	ResultInsufficientStock = "insufficient_stock"
	ResultUnavailable       = "unavailable"
	ResultClosed            = "closed"
	ResultError             = "error"
)

type Metrics struct {
	operations     *prometheus.CounterVec
	warehouseCalls *prometheus.CounterVec
	warehouseTime  *prometheus.HistogramVec
	flushes        prometheus.Counter
	flushFailures  prometheus.Counter
	coalesced      prometheus.Counter
	pendingFlushes prometheus.Gauge
	cachedItems    prometheus.Gauge
}

// New creates the collectors and registers them on reg. A nil reg leaves
// them unregistered, which is handy when nothing scrapes the process.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Stock operations served by the cache, by operation and result",
		}, []string{"op", "result"}),
		warehouseCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "warehouse_calls_total",
			Help:      "Calls made to the backing warehouse, by operation and result",
		}, []string{"op", "result"}),
		warehouseTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "warehouse_call_seconds",
			Help:      "Latency of backing warehouse calls",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"op"}),
		flushes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flushes_total",
			Help:      "Coalesced writes successfully persisted to the warehouse",
		}),
		flushFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flush_failures_total",
			Help:      "Failed flush attempts; each one is rescheduled",
		}),
		coalesced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coalesced_mutations_total",
			Help:      "Mutations absorbed into an already pending flush",
		}),
		pendingFlushes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_flushes",
			Help:      "Items with a scheduled but not yet persisted flush",
		}),
		cachedItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cached_items",
			Help:      "Items held in the stock table",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.operations, m.warehouseCalls, m.warehouseTime,
			m.flushes, m.flushFailures, m.coalesced, m.pendingFlushes, m.cachedItems)
	}
	return m
}

func (m *Metrics) ObserveOperation(op, result string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, result).Inc()
}

func (m *Metrics) ObserveWarehouseCall(op string, took time.Duration, err error) {
	if m == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.warehouseCalls.WithLabelValues(op, result).Inc()
	m.warehouseTime.WithLabelValues(op).Observe(took.Seconds())
}

func (m *Metrics) ObserveFlush(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.flushFailures.Inc()
		return
	}
	m.flushes.Inc()
}

func (m *Metrics) ObserveCoalesced() {
	if m == nil {
		return
	}
	m.coalesced.Inc()
}

func (m *Metrics) SetPendingFlushes(n int) {
	if m == nil {
		return
	}
	m.pendingFlushes.Set(float64(n))
}

func (m *Metrics) SetCachedItems(n int) {
	if m == nil {
		return
	}
	m.cachedItems.Set(float64(n))
}
