package metrics

import (
	"github.com/UnknownOlympus/mapwatch/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ChecksTotal        *prometheus.CounterVec
	InteractionSeconds prometheus.Histogram
	CheckSeconds       prometheus.Histogram
	LatitudeDrift      prometheus.Gauge
	LastCheckSuccess   prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		ChecksTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "mapwatch_checks_total",
			Help: "Total number of map health checks by outcome and failure reason.",
		}, []string{"outcome", "reason"}),
		InteractionSeconds: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "mapwatch_interaction_latency_seconds",
			Help:    "Round trip from clicking the map to the coordinate popup being readable.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 1.5, 2, 3, 5, 10},
		}),
		CheckSeconds: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "mapwatch_check_duration_seconds",
			Help:    "Duration of a whole check including browser launch and teardown.",
			Buckets: prometheus.DefBuckets,
		}),
		LatitudeDrift: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "mapwatch_latitude_drift",
			Help: "Absolute difference between the observed and the expected latitude in the last check.",
		}),
		LastCheckSuccess: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "mapwatch_last_check_success",
			Help: "1 if the last check passed, 0 otherwise.",
		}),
	}
}

// Observe records a finished check run.
func (m *Metrics) Observe(result *models.CheckResult, checkSeconds float64) {
	reason := string(result.Reason)
	if reason == "" {
		reason = "none"
	}
	m.ChecksTotal.WithLabelValues(string(result.Outcome), reason).Inc()
	m.CheckSeconds.Observe(checkSeconds)

	if result.Latency > 0 {
		m.InteractionSeconds.Observe(result.Latency.Seconds())
	}
	if result.LatitudeParsed {
		m.LatitudeDrift.Set(result.Drift)
	}

	if result.Passed() {
		m.LastCheckSuccess.Set(1)
	} else {
		m.LastCheckSuccess.Set(0)
	}
}
