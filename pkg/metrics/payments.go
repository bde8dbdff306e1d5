package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics records checkout and webhook activity.
type PaymentMetrics struct {
	webhookEvents    *prometheus.CounterVec
	webhookDuration  *prometheus.HistogramVec
	checkoutSessions *prometheus.CounterVec
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Stripe webhook events by type and outcome.",
	}, []string{"event_type", "outcome"})
	webhookDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "webhook_processing_seconds",
		Help:    "Duration of webhook event processing in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"event_type"})
	checkoutSessions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_sessions_total",
		Help: "Checkout session creations by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(webhookEvents, webhookDuration, checkoutSessions)
	return &PaymentMetrics{
		webhookEvents:    webhookEvents,
		webhookDuration:  webhookDuration,
		checkoutSessions: checkoutSessions,
	}
}

// Webhook outcomes.
const (
	OutcomeProcessed = "processed"
	OutcomeDuplicate = "duplicate"
	OutcomeIgnored   = "ignored"
	OutcomeFailed    = "failed"
	OutcomeCreated   = "created"
	OutcomeReused    = "reused"
)

// IncWebhookEvent increments the webhook counter for the event type and outcome.
func (p *PaymentMetrics) IncWebhookEvent(eventType, outcome string) {
	if p == nil || p.webhookEvents == nil {
		return
	}
	p.webhookEvents.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

// ObserveWebhookDuration records how long an event took to process.
func (p *PaymentMetrics) ObserveWebhookDuration(eventType string, duration time.Duration) {
	if p == nil || p.webhookDuration == nil {
		return
	}
	p.webhookDuration.WithLabelValues(normalizeLabel(eventType)).Observe(duration.Seconds())
}

// IncCheckoutSession increments the checkout counter for the outcome.
func (p *PaymentMetrics) IncCheckoutSession(outcome string) {
	if p == nil || p.checkoutSessions == nil {
		return
	}
	p.checkoutSessions.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
