package observability

import (
	"TraceSpectra/internal/model"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the analysis services.
type Metrics struct {
	registry          *prometheus.Registry
	runsTotal         *prometheus.CounterVec
	runDuration       prometheus.Histogram
	flowsTotal        *prometheus.CounterVec
	prioritySamples   *prometheus.CounterVec
	fallbacksTotal    prometheus.Counter
	queueDepth        prometheus.Gauge
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// NewMetrics creates and registers every collector on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracespectra_runs_total",
			Help: "Run directories analyzed, by outcome.",
		}, []string{"status"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tracespectra_run_duration_seconds",
			Help:    "Time spent analyzing one run directory.",
			Buckets: prometheus.DefBuckets,
		}),
		flowsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracespectra_windowed_flows_total",
			Help: "Flows inside the measurement window, by band and completion status.",
		}, []string{"band", "status"}),
		prioritySamples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tracespectra_priority_samples_total",
			Help: "Steady-state transfer samples retained, by priority class.",
		}, []string{"priority"}),
		fallbacksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracespectra_timeline_fallbacks_total",
			Help: "Done/Receive events reconstructed with a zero start time.",
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracespectra_queue_depth",
			Help: "Run directories waiting for a worker.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		m.runsTotal,
		m.runDuration,
		m.flowsTotal,
		m.prioritySamples,
		m.fallbacksTotal,
		m.queueDepth,
		m.httpRequestsTotal,
		m.httpDuration,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registered metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRun records a successfully analyzed run.
func (m *Metrics) ObserveRun(report *model.RunReport, elapsed time.Duration) {
	m.runsTotal.WithLabelValues("ok").Inc()
	m.runDuration.Observe(elapsed.Seconds())

	for band, c := range report.Completion {
		m.flowsTotal.WithLabelValues(string(band), "completed").Add(float64(c.Completed))
		m.flowsTotal.WithLabelValues(string(band), "dnf").Add(float64(c.DNF))
		m.flowsTotal.WithLabelValues(string(band), "err").Add(float64(c.Err))
	}
	for class, samples := range report.Samples {
		m.prioritySamples.WithLabelValues(class).Add(float64(len(samples)))
	}
	for _, w := range report.Workers {
		m.fallbacksTotal.Add(float64(w.Fallbacks))
	}
}

// ObserveRunError records a run whose analysis failed.
func (m *Metrics) ObserveRunError() {
	m.runsTotal.WithLabelValues("error").Inc()
}

// SetQueueDepth reports the number of queued run directories.
func (m *Metrics) SetQueueDepth(n int) {
	m.queueDepth.Set(float64(n))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// Middleware counts requests per route template.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.URL.Path
		if cr := mux.CurrentRoute(r); cr != nil {
			if tmpl, err := cr.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
	})
}
