// Package metrics holds the Prometheus collectors of the service. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "homematch"

// Upstream call outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeError    = "error"
	OutcomeFallback = "fallback"
)

type Metrics struct {
	combineOps        *prometheus.CounterVec
	infeasibleRanges  *prometheus.CounterVec
	listingsCreated   prometheus.Counter
	listingConflicts  prometheus.Counter
	statusTransitions *prometheus.CounterVec
	eventsAppended    *prometheus.CounterVec
	upstreamCalls     *prometheus.CounterVec
	storeOpDuration   *prometheus.HistogramVec
	socketSubscribers prometheus.Gauge
}

// New registers every collector with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		combineOps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "preferences",
			Name:      "combine_total",
			Help:      "Preference combinations by mode",
		}, []string{"mode"}),

		// Labels: field (price, rooms, livingSpace)
		infeasibleRanges: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "preferences",
			Name:      "infeasible_ranges_total",
			Help:      "Combined ranges whose lower bound exceeds the upper bound",
		}, []string{"field"}),

		listingsCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "listings",
			Name:      "created_total",
			Help:      "Listings saved into a room",
		}),
		listingConflicts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "listings",
			Name:      "duplicate_total",
			Help:      "Listing creations rejected as duplicates",
		}),
		statusTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "listings",
			Name:      "status_transitions_total",
			Help:      "Listing status changes",
		}, []string{"from", "to"}),

		eventsAppended: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "events_total",
			Help:      "Events appended to room ledgers by type",
		}, []string{"type"}),

		// Labels: collaborator (ai, search), operation, outcome (success, error, fallback)
		upstreamCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "calls_total",
			Help:      "Calls to external collaborators",
		}, []string{"collaborator", "operation", "outcome"}),

		storeOpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Keyed store operation latency",
			Buckets:   []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation", "status"}),

		socketSubscribers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "socket",
			Name:      "connections",
			Help:      "Open socket.io connections",
		}),
	}
}

func (m *Metrics) CombineOp(mode string) {
	if m == nil {
		return
	}
	m.combineOps.WithLabelValues(mode).Inc()
}

func (m *Metrics) InfeasibleRange(field string) {
	if m == nil {
		return
	}
	m.infeasibleRanges.WithLabelValues(field).Inc()
}

func (m *Metrics) ListingCreated() {
	if m == nil {
		return
	}
	m.listingsCreated.Inc()
}

func (m *Metrics) ListingConflict() {
	if m == nil {
		return
	}
	m.listingConflicts.Inc()
}

func (m *Metrics) StatusTransition(from, to string) {
	if m == nil {
		return
	}
	m.statusTransitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) EventAppended(eventType string) {
	if m == nil {
		return
	}
	m.eventsAppended.WithLabelValues(eventType).Inc()
}

func (m *Metrics) UpstreamCall(collaborator, operation, outcome string) {
	if m == nil {
		return
	}
	m.upstreamCalls.WithLabelValues(collaborator, operation, outcome).Inc()
}

// ObserveStoreOp implements store.Observer.
func (m *Metrics) ObserveStoreOp(operation string, took time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.storeOpDuration.WithLabelValues(operation, status).Observe(took.Seconds())
}

func (m *Metrics) SocketConnected() {
	if m == nil {
		return
	}
	m.socketSubscribers.Inc()
}

func (m *Metrics) SocketDisconnected() {
	if m == nil {
		return
	}
	m.socketSubscribers.Dec()
}
