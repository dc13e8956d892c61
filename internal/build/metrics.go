package build

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics holds the Prometheus instruments for the build pipeline.
type metrics struct {
	pagesTotal    prometheus.Counter
	outcomesTotal *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	exportedPaths prometheus.Counter
	buildsTotal   *prometheus.CounterVec
}

// globalMetrics is the singleton metrics instance, created on first use.
var (
	globalMetrics     *metrics
	globalMetricsOnce sync.Once
)

// getMetrics returns the pipeline metrics, registering them on the given
// registerer the first time. A nil registerer means the default one.
func getMetrics(reg prometheus.Registerer) *metrics {
	globalMetricsOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		globalMetrics = initMetrics(reg)
	})
	return globalMetrics
}

func initMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)

	return &metrics{
		pagesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "kiln",
			Subsystem: "build",
			Name:      "pages_total",
			Help:      "Total number of pages discovered across builds",
		}),

		outcomesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kiln",
			Subsystem: "build",
			Name:      "page_outcomes_total",
			Help:      "Page classification outcomes",
		}, []string{"outcome"}),

		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "kiln",
			Subsystem: "build",
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),

		exportedPaths: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "kiln",
			Subsystem: "build",
			Name:      "exported_paths_total",
			Help:      "Total number of paths written by the export pass",
		}),

		buildsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kiln",
			Subsystem: "build",
			Name:      "builds_total",
			Help:      "Completed builds by result",
		}, []string{"result"}),
	}
}

func (m *metrics) observeStage(stage string, d time.Duration) {
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *metrics) recordOutcomes(state *BuildState) {
	m.pagesTotal.Add(float64(len(state.Pages)))
	m.outcomesTotal.WithLabelValues("static").Add(float64(len(state.StaticPages)))
	m.outcomesTotal.WithLabelValues("ssg").Add(float64(len(state.SSGPages)))
	m.outcomesTotal.WithLabelValues("server_props").Add(float64(len(state.ServerPropsPages)))
	m.outcomesTotal.WithLabelValues("invalid").Add(float64(len(state.InvalidPages)))
}
