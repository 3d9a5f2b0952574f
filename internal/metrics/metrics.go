package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the engine's collectors on a private prometheus registry.
// A nil *Registry is valid and records nothing.
type Registry struct {
	reg                *prometheus.Registry
	DealsCreated       *prometheus.CounterVec
	Transitions        *prometheus.CounterVec
	TransitionsIgnored prometheus.Counter
	ActivityEvicted    prometheus.Counter
	PendingDeals       prometheus.Gauge
	CO2SavedKg         prometheus.Gauge
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	created := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rescue_deals_created_total",
		Help: "Rescue deals created, by category.",
	}, []string{"category"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rescue_deal_transitions_total",
		Help: "Applied deal status transitions, by target status.",
	}, []string{"status"})
	ignored := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rescue_deal_transitions_ignored_total",
		Help: "Transition commands dropped because the deal was missing or not pending.",
	})
	evicted := prometheus.NewCounter(prometheus.CounterOpts{Name: "rescue_activity_evicted_total"})
	pending := prometheus.NewGauge(prometheus.GaugeOpts{Name: "rescue_deals_pending"})
	co2 := prometheus.NewGauge(prometheus.GaugeOpts{Name: "rescue_co2_saved_kg"})

	r.MustRegister(created, transitions, ignored, evicted, pending, co2)
	return &Registry{
		reg:                r,
		DealsCreated:       created,
		Transitions:        transitions,
		TransitionsIgnored: ignored,
		ActivityEvicted:    evicted,
		PendingDeals:       pending,
		CO2SavedKg:         co2,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }

func (r *Registry) ObserveCreated(category string) {
	if r == nil {
		return
	}
	r.DealsCreated.WithLabelValues(category).Inc()
}

func (r *Registry) ObserveTransition(status string) {
	if r == nil {
		return
	}
	r.Transitions.WithLabelValues(status).Inc()
}

func (r *Registry) ObserveIgnored() {
	if r == nil {
		return
	}
	r.TransitionsIgnored.Inc()
}

func (r *Registry) ObserveEvicted() {
	if r == nil {
		return
	}
	r.ActivityEvicted.Inc()
}

// SetTotals publishes the latest dashboard figures.
func (r *Registry) SetTotals(pending int, co2Kg float64) {
	if r == nil {
		return
	}
	r.PendingDeals.Set(float64(pending))
	r.CO2SavedKg.Set(co2Kg)
}
