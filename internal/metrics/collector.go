// Package metrics exposes Prometheus counters and histograms for the HTTP
// surface, capability calls and intent routing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "aura"

type Collector struct {
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	capabilityCalls    *prometheus.CounterVec
	capabilityDuration *prometheus.HistogramVec

	intentsTotal     *prometheus.CounterVec
	voiceAttachments *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewCollector registers all metrics on reg. Pass prometheus.NewRegistry()
// in tests to keep registrations isolated.
func NewCollector(reg *prometheus.Registry) *Collector {
	f := promauto.With(reg)
	c := &Collector{gatherer: reg}

	c.httpRequestsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	c.httpRequestDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
	c.capabilityCalls = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capability_calls_total",
			Help:      "Outbound capability calls by outcome (success, failure, disabled, open)",
		},
		[]string{"capability", "outcome"},
	)
	c.capabilityDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "capability_call_duration_seconds",
			Help:      "Outbound capability call duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"capability"},
	)
	c.intentsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intents_total",
			Help:      "Composed chat responses by response type",
		},
		[]string{"type"},
	)
	c.voiceAttachments = f.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "voice_attachments_total",
			Help:      "Voice synthesis attempts on chat responses by outcome",
		},
		[]string{"outcome"},
	)
	return c
}

func (c *Collector) RecordHTTPRequest(method, path string, status int, d time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

func (c *Collector) RecordCapabilityCall(capability, outcome string, d time.Duration) {
	c.capabilityCalls.WithLabelValues(capability, outcome).Inc()
	if outcome == "success" || outcome == "failure" {
		c.capabilityDuration.WithLabelValues(capability).Observe(d.Seconds())
	}
}

func (c *Collector) RecordIntent(responseType string) {
	c.intentsTotal.WithLabelValues(responseType).Inc()
}

func (c *Collector) RecordVoice(attached bool) {
	outcome := "attached"
	if !attached {
		outcome = "skipped"
	}
	c.voiceAttachments.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
