package subscription

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var subscribeConflicts = promauto.NewCounter(prometheus.CounterOpts{
	Name: "newsletter_subscribe_conflicts_total",
	Help: "Subscription attempts rejected by a storage constraint, usually a duplicate email.",
})
