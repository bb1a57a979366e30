package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PayloadsTotal counts built payloads by kind (order, fill, cancel) and outcome.
	PayloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sxgate_payloads_total",
		Help: "The total number of payloads built",
	}, []string{"kind", "status"})

	SignaturesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sxgate_signatures_total",
		Help: "Signatures produced per schema",
	}, []string{"schema"})

	LatencyBucket = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sxgate_latency_bucket",
		Help:    "Request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sxgate_http_requests_total",
		Help: "HTTP requests by route template and status code",
	}, []string{"endpoint", "code"})

	RiskRejects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sxgate_risk_rejects_total",
		Help: "Total risk engine rejections",
	}, []string{"reason"})

	UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sxgate_upstream_requests_total",
		Help: "Requests sent to the exchange API",
	}, []string{"endpoint", "status"})
)

const (
	SchemaOrder  = "order"
	SchemaFill   = "fill"
	SchemaCancel = "cancel"

	StatusOK       = "ok"
	StatusRejected = "rejected"
	StatusError    = "error"
)
