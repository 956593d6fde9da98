package broker

import "github.com/prometheus/client_golang/prometheus"

var (
	overlaysActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "overcast",
		Subsystem: "broker",
		Name:      "overlays_active",
		Help:      "Number of currently active overlay instances",
	})

	triggersTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "overcast",
		Subsystem: "broker",
		Name:      "triggers_total",
		Help:      "Total overlay triggers processed, by kind",
	}, []string{"kind"})

	snapshotsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "overcast",
		Subsystem: "broker",
		Name:      "snapshots_total",
		Help:      "Total snapshots projected after state mutations",
	})
)

func init() {
	prometheus.MustRegister(overlaysActive, triggersTotal, snapshotsTotal)
}
