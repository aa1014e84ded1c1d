// Package metrics exposes prometheus collectors for rendering, printing and HTTP
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/thereceipt/label-designer/internal/printer"
)

const namespace = "labeldesigner"

// Metrics owns a registry so several instances can coexist in tests
type Metrics struct {
	registry *prometheus.Registry

	renders         *prometheus.CounterVec
	renderDuration  prometheus.Histogram
	printJobs       *prometheus.CounterVec
	printLabels     prometheus.Counter
	printBytes      prometheus.Counter
	printersOnline  prometheus.Gauge
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	websocketClient prometheus.Gauge
}

// New creates and registers all collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renders_total",
			Help:      "Labels rendered, by output format and result",
		}, []string{"format", "result"}),
		renderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Time spent rendering one label",
			Buckets:   prometheus.DefBuckets,
		}),
		printJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "print_jobs_total",
			Help:      "Finished print jobs, by status",
		}, []string{"status"}),
		printLabels: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "printed_labels_total",
			Help:      "Labels sent to printers",
		}),
		printBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "print_bytes_total",
			Help:      "Encoded bytes sent to printers",
		}),
		printersOnline: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "printers_detected",
			Help:      "Printers found by the last scan",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"path", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path", "method"}),
		websocketClient: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_clients",
			Help:      "Connected event stream clients",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.renders, m.renderDuration,
		m.printJobs, m.printLabels, m.printBytes, m.printersOnline,
		m.httpRequests, m.httpDuration, m.websocketClient,
	)
	return m
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRender records one preview or print render
func (m *Metrics) ObserveRender(format string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.renders.WithLabelValues(format, result).Inc()
	m.renderDuration.Observe(d.Seconds())
}

// ObserveJob is a journal OnFinished hook
func (m *Metrics) ObserveJob(job printer.Job) {
	m.printJobs.WithLabelValues(job.Status).Inc()
	if job.Status == printer.JobCompleted {
		m.printLabels.Add(float64(job.Labels))
		m.printBytes.Add(float64(job.Bytes))
	}
}

// SetPrinters records the size of the last scan
func (m *Metrics) SetPrinters(n int) { m.printersOnline.Set(float64(n)) }

// WebsocketConnected tracks event stream clients; call the returned func on disconnect
func (m *Metrics) WebsocketConnected() func() {
	m.websocketClient.Inc()
	return m.websocketClient.Dec
}

// GinMiddleware records request counts and durations by route template
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.httpRequests.WithLabelValues(path, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(path, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}
