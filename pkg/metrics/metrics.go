package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "peakmode"

// NewRegistry returns a registry preloaded with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

type ServerMetrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec
}

func NewServerMetrics(reg prometheus.Registerer, service string) *ServerMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: service,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"handler", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: service,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"handler"})

	reg.MustRegister(requests, latency)
	return &ServerMetrics{Requests: requests, LatencyMS: latency}
}

// CheckoutMetrics tracks dialog outcomes and the latency of outbound payment calls.
type CheckoutMetrics struct {
	Outcomes    *prometheus.CounterVec
	CallLatency *prometheus.HistogramVec
	OpenDialogs prometheus.Gauge
}

func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "checkout",
		Name:      "outcomes_total",
		Help:      "Checkout dialogs reaching a terminal or failed state.",
	}, []string{"outcome"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "checkout",
		Name:      "call_duration_seconds",
		Help:      "Latency of gateway and card capture calls.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "result"})
	open := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "checkout",
		Name:      "open_dialogs",
		Help:      "Checkout dialogs currently held in memory.",
	})

	reg.MustRegister(outcomes, latency, open)
	return &CheckoutMetrics{Outcomes: outcomes, CallLatency: latency, OpenDialogs: open}
}
