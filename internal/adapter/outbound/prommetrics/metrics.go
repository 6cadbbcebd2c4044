// Package prommetrics records gateway activity as Prometheus metrics.
package prommetrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/i2y/legacybridge/internal/domain"
	"github.com/i2y/legacybridge/internal/usecase"
)

const namespace = "legacybridge"

// Metrics implements usecase.Metrics.
type Metrics struct {
	forwardTotal    *prometheus.CounterVec
	forwardDuration *prometheus.HistogramVec
	analyzeTotal    *prometheus.CounterVec
	analyzeDuration *prometheus.HistogramVec
}

var _ usecase.Metrics = (*Metrics)(nil)

// New registers the collectors with reg. A nil reg uses the default
// registerer, which is what promhttp.Handler serves.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		forwardTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forward_requests_total",
			Help:      "The total number of proxied requests by resource, operation, API type and status",
		}, []string{"resource", "operation", "api_type", "status"}),
		forwardDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "forward_duration_seconds",
			Help:      "Time spent forwarding a request to the legacy backend",
			Buckets:   prometheus.DefBuckets,
		}, []string{"resource", "operation", "api_type"}),
		analyzeTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyze_requests_total",
			Help:      "The total number of schema analyses by mode and outcome",
		}, []string{"mode", "outcome"}),
		analyzeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analyze_duration_seconds",
			Help:      "Time spent analyzing a legacy API description",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode"}),
	}
}

func (m *Metrics) ObserveForward(resource, operation string, apiType domain.APIType, status int, elapsed time.Duration) {
	m.forwardTotal.WithLabelValues(resource, operation, string(apiType), strconv.Itoa(status)).Inc()
	m.forwardDuration.WithLabelValues(resource, operation, string(apiType)).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveAnalyze(mode usecase.AnalyzeMode, err error, elapsed time.Duration) {
	m.analyzeTotal.WithLabelValues(string(mode), Outcome(err)).Inc()
	m.analyzeDuration.WithLabelValues(string(mode)).Observe(elapsed.Seconds())
}

// Outcome labels an analysis result: ok, invalid_input, too_large or error.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, usecase.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, usecase.ErrPayloadTooLarge):
		return "too_large"
	}
	return "error"
}
