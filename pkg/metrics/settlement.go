package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SettlementMetrics records counters for payment and payout processing.
type SettlementMetrics struct {
	payments *prometheus.CounterVec
	webhooks *prometheus.CounterVec
	refunds  *prometheus.CounterVec
	payouts  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewSettlementMetrics registers the settlement metrics on the provided registerer.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	payments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_total",
		Help: "Payment records processed, labelled by resulting status.",
	}, []string{"status"})
	webhooks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_webhooks_total",
		Help: "Gateway webhook deliveries, labelled by outcome.",
	}, []string{"outcome"})
	refunds := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "refunds_total",
		Help: "Refund applications, labelled by kind (partial or full).",
	}, []string{"kind"})
	payouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vendor_payouts_total",
		Help: "Vendor payout records, labelled by resulting status.",
	}, []string{"status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "settlement_duration_seconds",
		Help:    "Duration of settlement operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	reg.MustRegister(payments, webhooks, refunds, payouts, duration)
	return &SettlementMetrics{
		payments: payments,
		webhooks: webhooks,
		refunds:  refunds,
		payouts:  payouts,
		duration: duration,
	}
}

// IncPayment increments the payment counter for the given status label.
func (m *SettlementMetrics) IncPayment(status string) {
	if m == nil || m.payments == nil {
		return
	}
	m.payments.WithLabelValues(normalizeLabel(status)).Inc()
}

// IncWebhook increments the webhook counter for the given outcome.
func (m *SettlementMetrics) IncWebhook(outcome string) {
	if m == nil || m.webhooks == nil {
		return
	}
	m.webhooks.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncRefund increments the refund counter for the given kind.
func (m *SettlementMetrics) IncRefund(kind string) {
	if m == nil || m.refunds == nil {
		return
	}
	m.refunds.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncPayout increments the payout counter for the given status.
func (m *SettlementMetrics) IncPayout(status string) {
	if m == nil || m.payouts == nil {
		return
	}
	m.payouts.WithLabelValues(normalizeLabel(status)).Inc()
}

// ObserveDuration records the duration for the named operation.
func (m *SettlementMetrics) ObserveDuration(operation string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
