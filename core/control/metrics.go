package control

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	ignoredInputs   *prometheus.CounterVec
	solverNodes     prometheus.Histogram
)

func newCollectors() (*prometheus.CounterVec, *prometheus.HistogramVec, *prometheus.CounterVec, prometheus.Histogram) {
	req := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "control_requests_total",
			Help: "Number of control requests by strategy and status",
		},
		[]string{"strategy", "status"},
	)
	dur := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "control_request_duration_seconds",
			Help:    "Time spent dispatching a control request",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"strategy"},
	)
	ign := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "control_ignored_inputs_total",
			Help: "Request features ignored by the selected strategy",
		},
		[]string{"strategy", "input"},
	)
	nodes := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "optimizer_nodes",
			Help:    "Branch-and-bound nodes explored per optimization",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)
	return req, dur, ign, nodes
}

func init() {
	requestsTotal, requestDuration, ignoredInputs, solverNodes = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers control metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(requestsTotal, requestDuration, ignoredInputs, solverNodes)
}

// ResetMetrics reinitializes the collectors for tests and registers them on
// reg if it is not nil.
func ResetMetrics(reg prometheus.Registerer) {
	requestsTotal, requestDuration, ignoredInputs, solverNodes = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
