package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeStale    = "stale"
	OutcomeRejected = "rejected"
	OutcomeInvalid  = "invalid"
)

// CartMetrics records quote reconciliation and order submission activity.
type CartMetrics struct {
	quoteDuration *prometheus.HistogramVec
	quotes        *prometheus.CounterVec
	orders        *prometheus.CounterVec
	invalidations prometheus.Counter
}

// NewCartMetrics registers the cart metrics on the provided registerer.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	quoteDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pos_cart_quote_duration_seconds",
		Help:    "Duration of pricing quote requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	quotes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_cart_quotes_total",
		Help: "Pricing quote responses by how they were handled.",
	}, []string{"outcome"})
	orders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_cart_order_submissions_total",
		Help: "Order submissions by outcome.",
	}, []string{"outcome"})
	invalidations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pos_cart_context_invalidations_total",
		Help: "Carts cleared because the customer or vehicle changed.",
	})
	reg.MustRegister(quoteDuration, quotes, orders, invalidations)
	return &CartMetrics{
		quoteDuration: quoteDuration,
		quotes:        quotes,
		orders:        orders,
		invalidations: invalidations,
	}
}

// ObserveQuote records a handled quote response and its latency.
func (m *CartMetrics) ObserveQuote(outcome string, duration time.Duration) {
	if m == nil || m.quotes == nil {
		return
	}
	label := normalizeLabel(outcome)
	m.quotes.WithLabelValues(label).Inc()
	m.quoteDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// IncOrder increments the order submission counter for outcome.
func (m *CartMetrics) IncOrder(outcome string) {
	if m == nil || m.orders == nil {
		return
	}
	m.orders.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncInvalidation counts a context-driven cart clear.
func (m *CartMetrics) IncInvalidation() {
	if m == nil || m.invalidations == nil {
		return
	}
	m.invalidations.Inc()
}

func normalizeLabel(outcome string) string {
	if outcome == "" {
		return "unknown"
	}
	return outcome
}
