// Package metrics exposes the dashboard's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fraudboard"

// Recorder owns a registry so tests and multiple servers do not share
// global collector state.
type Recorder struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inferences      *prometheus.CounterVec
	rescoreDuration *prometheus.HistogramVec
	records         prometheus.Gauge
	fraudRatio      prometheus.Gauge
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by route, method and status code",
		}, []string{"route", "method", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Latency of HTTP handlers",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		inferences: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inferences_total",
			Help:      "Single-record inferences by model and outcome (verdict label or failure reason)",
		}, []string{"model", "outcome"}),
		rescoreDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rescore_duration_seconds",
			Help:      "Latency of batch re-scoring of the evaluation set",
			Buckets:   prometheus.DefBuckets,
		}, []string{"model"}),
		records: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "evaluation_records",
			Help:      "Number of records in the loaded evaluation set",
		}),
		fraudRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "evaluation_fraud_ratio",
			Help:      "Share of fraud labels in the loaded evaluation set",
		}),
	}

	r.registry.MustRegister(
		r.requests,
		r.requestDuration,
		r.inferences,
		r.rescoreDuration,
		r.records,
		r.fraudRatio,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) ObserveRequest(route, method string, code int, d time.Duration) {
	r.requests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	r.requestDuration.WithLabelValues(route).Observe(d.Seconds())
}

func (r *Recorder) ObserveInference(model, outcome string) {
	r.inferences.WithLabelValues(model, outcome).Inc()
}

func (r *Recorder) ObserveRescore(model string, d time.Duration) {
	r.rescoreDuration.WithLabelValues(model).Observe(d.Seconds())
}

func (r *Recorder) SetEvaluation(records int, fraudRatio float64) {
	r.records.Set(float64(records))
	r.fraudRatio.Set(fraudRatio)
}

// Middleware records the status and latency of every request under the
// matched mux pattern.
func (r *Recorder) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, req)

		route := req.Pattern
		if route == "" {
			route = "unmatched"
		}
		r.ObserveRequest(route, req.Method, sw.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
