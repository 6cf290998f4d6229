package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type prometheusMetrics struct {
	invocationsTotal  prometheus.Counter
	attemptsTotal     *prometheus.CounterVec
	retriesTotal      prometheus.Counter
	deniedTotal       prometheus.Counter
	authFailuresTotal prometheus.Counter
	attemptDuration   *prometheus.HistogramVec
}

func NewPrometheus() Metrics {
	return &prometheusMetrics{
		invocationsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "callout_invocations_total",
			Help: "Total number of outbound invocations.",
		}),
		attemptsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "callout_attempts_total",
			Help: "Total number of attempts by classification event.",
		}, []string{"event"}),
		retriesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "callout_retries_total",
			Help: "Total number of retry attempts.",
		}),
		deniedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "callout_denied_total",
			Help: "Total number of invocations denied by the domain allow-list.",
		}),
		authFailuresTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "callout_auth_failures_total",
			Help: "Total number of auth decoration failures.",
		}),
		attemptDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "callout_attempt_duration_seconds",
			Help:    "Duration of single attempts by target host.",
			Buckets: prometheus.DefBuckets,
		}, []string{"host"}),
	}
}

func (m *prometheusMetrics) IncInvocationsTotal() {
	m.invocationsTotal.Inc()
}

func (m *prometheusMetrics) IncAttemptsTotal(event Event) {
	m.attemptsTotal.WithLabelValues(string(event)).Inc()
}

func (m *prometheusMetrics) IncRetriesTotal() {
	m.retriesTotal.Inc()
}

func (m *prometheusMetrics) IncDeniedTotal() {
	m.deniedTotal.Inc()
}

func (m *prometheusMetrics) IncAuthFailuresTotal() {
	m.authFailuresTotal.Inc()
}

func (m *prometheusMetrics) UpdateAttemptDuration(host string, start time.Time) {
	m.attemptDuration.WithLabelValues(host).Observe(time.Since(start).Seconds())
}
