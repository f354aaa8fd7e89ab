package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	SightingsCreated prometheus.Counter
	PromotionsTotal  prometheus.Counter
	ConfirmsTotal    prometheus.Counter
	RecomputesTotal  prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		SightingsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "watchpost_sightings_created_total",
			Help: "Total number of sightings created",
		}),
		PromotionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "watchpost_sightings_promoted_total",
			Help: "Total number of automatic promotions to verified",
		}),
		ConfirmsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "watchpost_sightings_confirmed_total",
			Help: "Total number of manual confirm overrides applied",
		}),
		RecomputesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "watchpost_sighting_recomputes_total",
			Help: "Total number of status recomputations executed",
		}),
	}
}

func (m *Metrics) IncrementSightingsCreated() {
	if m != nil {
		m.SightingsCreated.Inc()
	}
}

func (m *Metrics) IncrementPromotions() {
	if m != nil {
		m.PromotionsTotal.Inc()
	}
}

func (m *Metrics) IncrementConfirms() {
	if m != nil {
		m.ConfirmsTotal.Inc()
	}
}

func (m *Metrics) IncrementRecomputes() {
	if m != nil {
		m.RecomputesTotal.Inc()
	}
}
