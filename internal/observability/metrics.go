package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "storm_cba"

// Metrics holds the Prometheus counters, histograms, and gauges for the
// benefit-cost engine and its result sinks.
type Metrics struct {
	RunsTotal   prometheus.Counter
	RunDuration prometheus.Histogram

	// Per-scenario metrics.
	ScenariosEvaluated   *prometheus.CounterVec // labels: status={ok,failed}
	ScenarioDuration     prometheus.Histogram
	CentroidsEvaluated   prometheus.Counter
	MeasureIncreasesRisk prometheus.Counter

	// Result sink metrics.
	SinkWrites        *prometheus.CounterVec   // labels: sink={kafka,sqlite}, outcome={success,error}
	SinkWriteDuration *prometheus.HistogramVec // labels: sink
	LastDelivery      prometheus.Gauge

	ServiceReady prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.ScenariosEvaluated,
		m.ScenarioDuration,
		m.CentroidsEvaluated,
		m.MeasureIncreasesRisk,
		m.SinkWrites,
		m.SinkWriteDuration,
		m.LastDelivery,
		m.ServiceReady,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid "already
// registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RunsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total benefit-cost analysis runs.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete analysis run across all scenarios.",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		ScenariosEvaluated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scenarios_evaluated_total",
			Help:      "Scenario evaluations by outcome.",
		}, []string{"status"}),
		ScenarioDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scenario_duration_seconds",
			Help:      "Duration of scaling, measure application and impact for one scenario.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		CentroidsEvaluated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "centroids_evaluated_total",
			Help:      "Centroid damage evaluations performed.",
		}),
		MeasureIncreasesRisk: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "measure_increases_risk_total",
			Help:      "Scenarios where the measure set left more damage than no measure.",
		}),
		SinkWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_writes_total",
			Help:      "Result set writes by sink and outcome.",
		}, []string{"sink", "outcome"}),
		SinkWriteDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sink_write_duration_seconds",
			Help:      "Result sink write duration in seconds.",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"sink"}),
		LastDelivery: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_delivery_timestamp_seconds",
			Help:      "Unix time of the last result set delivered to every sink.",
		}),
		ServiceReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "service_ready",
			Help:      "1 while the service passes its readiness check.",
		}),
	}
}
