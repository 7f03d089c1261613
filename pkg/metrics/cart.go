package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CartMetrics records counters for the cart lifecycle: autosave writes,
// debounce collapses, abandonment fires, migrations, and checkouts.
type CartMetrics struct {
	saveDuration      *prometheus.HistogramVec
	saves             *prometheus.CounterVec
	mutationsDeferred prometheus.Counter
	abandonmentFires  prometheus.Counter
	migrations        *prometheus.CounterVec
	checkouts         *prometheus.CounterVec
}

// NewCartMetrics registers the cart metrics on the provided registerer. A nil
// registerer yields a no-op recorder, mirroring how embedders without a
// metrics endpoint run.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	saveDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cart_save_duration_seconds",
		Help:    "Duration of persistence gateway save calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	saves := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_saves_total",
		Help: "Persistence gateway save attempts by outcome.",
	}, []string{"outcome"})
	mutationsDeferred := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_mutations_deferred_total",
		Help: "Mutations absorbed by the autosave quiet period before a save fired.",
	})
	abandonmentFires := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_abandonment_fires_total",
		Help: "Abandoned-cart notifications delivered to the tracking collaborator.",
	})
	migrations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_migrations_total",
		Help: "Session-to-user cart migrations by outcome.",
	}, []string{"outcome"})
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_checkouts_total",
		Help: "Checkout handoffs by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(saveDuration, saves, mutationsDeferred, abandonmentFires, migrations, checkouts)
	return &CartMetrics{
		saveDuration:      saveDuration,
		saves:             saves,
		mutationsDeferred: mutationsDeferred,
		abandonmentFires:  abandonmentFires,
		migrations:        migrations,
		checkouts:         checkouts,
	}
}

// ObserveSave records one save attempt and its duration.
func (c *CartMetrics) ObserveSave(outcome string, duration time.Duration) {
	if c == nil || c.saves == nil {
		return
	}
	label := normalizeLabel(outcome)
	c.saves.WithLabelValues(label).Inc()
	c.saveDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// IncDeferredMutation counts a mutation that reset the quiet period instead of
// producing its own save.
func (c *CartMetrics) IncDeferredMutation() {
	if c == nil || c.mutationsDeferred == nil {
		return
	}
	c.mutationsDeferred.Inc()
}

// IncAbandonmentFire counts one delivered abandonment notification.
func (c *CartMetrics) IncAbandonmentFire() {
	if c == nil || c.abandonmentFires == nil {
		return
	}
	c.abandonmentFires.Inc()
}

// IncMigration counts one migration attempt by outcome.
func (c *CartMetrics) IncMigration(outcome string) {
	if c == nil || c.migrations == nil {
		return
	}
	c.migrations.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncCheckout counts one checkout handoff by outcome.
func (c *CartMetrics) IncCheckout(outcome string) {
	if c == nil || c.checkouts == nil {
		return
	}
	c.checkouts.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
