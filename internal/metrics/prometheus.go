package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry so tests can build as many as they
// like without clashing on the global one.
type Collector struct {
	registry       *prometheus.Registry
	transactions   *prometheus.CounterVec
	notifications  *prometheus.CounterVec
	appendDuration prometheus.Histogram
}

func New() *Collector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Collector{
		registry: registry,
		transactions: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Namespace: "supplycredit",
			Name:      "transactions_total",
			Help:      "Debit attempts by outcome (ok, block, locked, not_found, malformed, error).",
		}, []string{"outcome"}),
		notifications: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Namespace: "supplycredit",
			Name:      "notifications_total",
			Help:      "Raised notification events by event type and dispatch outcome.",
		}, []string{"event", "outcome"}),
		appendDuration: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Namespace: "supplycredit",
			Name:      "ledger_append_seconds",
			Help:      "Time spent in the locked check-and-append unit.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func (c *Collector) RecordTransaction(outcome string) {
	c.transactions.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordNotification(event, outcome string) {
	c.notifications.WithLabelValues(event, outcome).Inc()
}

func (c *Collector) ObserveAppend(d time.Duration) {
	c.appendDuration.Observe(d.Seconds())
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
