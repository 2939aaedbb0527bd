package newsletter

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts per-recipient dispatch outcomes. The HTTP response stays
// 200 even when recipients fail; these counters are where partial failure
// becomes observable.
type Metrics struct {
	Delivered        prometheus.Counter
	DeliveryFailures prometheus.Counter
	SkippedInvalid   prometheus.Counter
	Dispatches       prometheus.Counter
}

// NewMetrics registers the dispatch counters on the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		Delivered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "newsletter_issues_delivered_total",
			Help: "Newsletter issue emails successfully handed to the transport",
		}),
		DeliveryFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "newsletter_delivery_failures_total",
			Help: "Per-recipient delivery failures that did not abort the batch",
		}),
		SkippedInvalid: promauto.NewCounter(prometheus.CounterOpts{
			Name: "newsletter_skipped_invalid_emails_total",
			Help: "Confirmed subscribers skipped because their stored email is invalid",
		}),
		Dispatches: promauto.NewCounter(prometheus.CounterOpts{
			Name: "newsletter_dispatches_total",
			Help: "Completed newsletter dispatch runs",
		}),
	}
}

func (m *Metrics) delivered() {
	if m != nil {
		m.Delivered.Inc()
	}
}

func (m *Metrics) deliveryFailed() {
	if m != nil {
		m.DeliveryFailures.Inc()
	}
}

func (m *Metrics) skippedInvalid() {
	if m != nil {
		m.SkippedInvalid.Inc()
	}
}

func (m *Metrics) dispatched() {
	if m != nil {
		m.Dispatches.Inc()
	}
}
