package rpm

import "github.com/prometheus/client_golang/prometheus"

type metrics struct {
	configReads     *prometheus.CounterVec
	macroDefines    *prometheus.CounterVec
	cursorsOpened   prometheus.Counter
	cursorsReleased prometheus.Counter
	cursorsOpen     prometheus.Gauge
	releaseFailures prometheus.Counter
}

func newMetrics() *metrics {
	return &metrics{
		configReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rpm_config_reads_total",
			Help: "Calls to ReadFile by result.",
		}, []string{"result"}),
		macroDefines: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rpm_macro_defines_total",
			Help: "Macro definitions by result (ok, shadowed, malformed).",
		}, []string{"result"}),
		cursorsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rpm_cursors_opened_total",
			Help: "Database cursors opened.",
		}),
		cursorsReleased: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rpm_cursors_released_total",
			Help: "Database cursors released.",
		}),
		cursorsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rpm_cursors_open",
			Help: "Database cursors currently open.",
		}),
		releaseFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rpm_cursor_release_failures_total",
			Help: "Cursor releases that reported an error. The cursor is considered released regardless.",
		}),
	}
}

func (m *metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.configReads,
		m.macroDefines,
		m.cursorsOpened,
		m.cursorsReleased,
		m.cursorsOpen,
		m.releaseFailures,
	}
}

// Collectors returns the package's Prometheus collectors for registration:
//
//	prometheus.MustRegister(rpm.Collectors()...)
func Collectors() []prometheus.Collector {
	return global().metrics.collectors()
}
