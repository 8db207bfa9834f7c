// Package metrics holds the Prometheus collectors for request assembly and
// composite routing.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline Prometheus metrics.
var (
	RequestsAssembledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "helix",
			Name:      "requests_assembled_total",
			Help:      "Total number of requests produced by the assembler",
		},
		[]string{"mode"},
	)

	DocumentsBuiltTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "helix",
			Name:      "documents_built_total",
			Help:      "Total documents resolved by the builder",
		},
		[]string{"resolved_type"},
	)

	RouterInvocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "helix",
			Name:      "router_invocations_total",
			Help:      "Total operations dispatched through the composite router",
		},
		[]string{"op", "status"},
	)

	RouteTableEntries = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "helix",
			Name:      "route_table_entries",
			Help:      "Route table composition by entry kind",
		},
		[]string{"kind"},
	)

	EncoderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "helix",
			Name:      "encoder_requests_total",
			Help:      "Total embedding requests issued by the encoder component",
		},
		[]string{"model", "status"},
	)

	EncoderRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "helix",
			Name:      "encoder_request_duration_seconds",
			Help:      "Embedding request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"model"},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers the pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(RequestsAssembledTotal)
	prometheus.MustRegister(DocumentsBuiltTotal)
	prometheus.MustRegister(RouterInvocationsTotal)
	prometheus.MustRegister(RouteTableEntries)
	prometheus.MustRegister(EncoderRequestsTotal)
	prometheus.MustRegister(EncoderRequestDuration)
	pipelineMetricsRegistered = true
}
