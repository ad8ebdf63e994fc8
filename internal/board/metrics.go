package board

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Traffic: accepted events per dashboard.
	EventsTotal *prometheus.CounterVec

	// Errors: events that never reached a dashboard.
	RejectedTotal *prometheus.CounterVec

	// Latency of the record critical section.
	RecordDuration prometheus.Histogram

	// Latency of one full ticker pass over all dashboards.
	TickDuration prometheus.Histogram

	// Saturation: operators currently listed per dashboard.
	ActiveOperators *prometheus.GaugeVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern: without a registerer, metrics go to a local
	// registry that is wired nowhere.
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		EventsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "sortboard_events_total",
			Help: "Total number of recorded job events.",
		}, []string{"dashboard"}),

		RejectedTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "sortboard_events_rejected_total",
			Help: "Events dropped before reaching a dashboard, by reason.",
		}, []string{"reason"}), // reasons: unknown_dashboard, decode

		RecordDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "sortboard_record_duration_seconds",
			Help:    "Histogram of RecordEvent critical section durations.",
			Buckets: []float64{.00005, .0001, .00025, .0005, .001, .0025, .005, .01},
		}),

		TickDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "sortboard_tick_duration_seconds",
			Help:    "Histogram of decay ticker pass durations.",
			Buckets: []float64{.00005, .0001, .00025, .0005, .001, .0025, .005, .01},
		}),

		ActiveOperators: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "sortboard_active_operators",
			Help: "Operators currently shown on each dashboard.",
		}, []string{"dashboard"}),
	}
}
