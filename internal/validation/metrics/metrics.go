package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ValidationsRecorded prometheus.Counter
	ValidationsRejected *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		ValidationsRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "watchpost_validations_recorded_total",
			Help: "Total number of validations admitted and recorded",
		}),
		ValidationsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "watchpost_validations_rejected_total",
			Help: "Total number of validation attempts rejected, by reason",
		}, []string{"reason"}),
	}
}

func (m *Metrics) IncrementRecorded() {
	if m != nil {
		m.ValidationsRecorded.Inc()
	}
}

func (m *Metrics) IncrementRejected(reason string) {
	if m != nil {
		m.ValidationsRejected.WithLabelValues(reason).Inc()
	}
}
