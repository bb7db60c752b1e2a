// Package metrics provides Prometheus metrics for the exporter.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// Collection cycle metrics.
	CyclesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "openvpn_exporter",
		Name:      "cycles_total",
		Help:      "Total number of collection cycles run.",
	})
	CycleFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "openvpn_exporter",
		Name:      "cycle_failures_total",
		Help:      "Total number of collection cycles in which no status file produced data.",
	})
	CycleDuration = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "openvpn_exporter",
		Name:      "cycle_duration_seconds",
		Help:      "Duration of the last collection cycle.",
	})
	LastSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "openvpn_exporter",
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix time of the last cycle that produced data.",
	})

	// Status file metrics.
	SourcesConfigured = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "openvpn_exporter",
		Name:      "sources",
		Help:      "Number of accepted status files.",
	})
	SourceUp = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "openvpn_exporter",
		Name:      "source_up",
		Help:      "Whether the status file produced data in the last cycle (1) or not (0).",
	}, []string{"source", "format"})
	SourceErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "openvpn_exporter",
		Name:      "source_errors_total",
		Help:      "Total number of failed opens or reads per status file.",
	}, []string{"source"})
)

func init() {
	prometheus.MustRegister(
		CyclesTotal,
		CycleFailuresTotal,
		CycleDuration,
		LastSuccess,

		SourcesConfigured,
		SourceUp,
		SourceErrorsTotal,
	)
}
