package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records counters and timings for checkout runs.
type CheckoutMetrics struct {
	duration *prometheus.HistogramVec
	attempts *prometheus.CounterVec
	polls    *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Duration of checkout runs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"payment_method"})
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_attempts_total",
		Help: "Checkout attempts by payment method and result.",
	}, []string{"payment_method", "result"})
	polls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_status_polls_total",
		Help: "Payment status poll attempts by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(duration, attempts, polls)
	return &CheckoutMetrics{
		duration: duration,
		attempts: attempts,
		polls:    polls,
	}
}

// ObserveDuration records the duration of a checkout run for the method.
func (c *CheckoutMetrics) ObserveDuration(method string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(method)).Observe(duration.Seconds())
}

// IncAttempt increments the attempt counter for the method and result.
func (c *CheckoutMetrics) IncAttempt(method, result string) {
	if c == nil || c.attempts == nil {
		return
	}
	c.attempts.WithLabelValues(normalizeLabel(method), normalizeLabel(result)).Inc()
}

// IncPoll increments the poll counter for the given outcome.
func (c *CheckoutMetrics) IncPoll(outcome string) {
	if c == nil || c.polls == nil {
		return
	}
	c.polls.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
