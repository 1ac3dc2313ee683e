// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "receiptsplit"

// ─── Split Metrics ──────────────────────────────────────────────────────────

// SplitComputations counts split recomputations after edits.
var SplitComputations = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "split_computations_total",
	Help:      "Total split recomputations.",
})

// BillsFinalized counts bills persisted by FinalizeBill.
var BillsFinalized = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "bills_finalized_total",
	Help:      "Total bills finalized and saved.",
})

// ─── Extraction Metrics ─────────────────────────────────────────────────────

// ExtractionRequests counts receipt extraction calls by result
// (ok, error, rejected, unconfigured).
var ExtractionRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "extraction_requests_total",
	Help:      "Total receipt extraction requests by result.",
}, []string{"result"})

// ExtractionDuration tracks extraction round trip latency.
var ExtractionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: namespace,
	Name:      "extraction_duration_seconds",
	Help:      "Receipt extraction latency in seconds.",
	Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
})

// ExtractionBreakerState is 0 when closed, 1 when open, 2 when half-open.
var ExtractionBreakerState = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "extraction",
	Name:      "breaker_state",
	Help:      "Extraction circuit breaker state (0=closed, 1=open, 2=half-open).",
})

// ─── RPC Metrics ────────────────────────────────────────────────────────────

// RPCRequests counts Connect calls by procedure and status code.
var RPCRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "rpc_requests_total",
	Help:      "Total RPC requests by procedure and code.",
}, []string{"procedure", "code"})
