package engine

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the optional Prometheus collectors an Engine reports
// to. It is nil until EnableMetrics is called, so an Engine never
// touches a global registry on its own (consistent with there being no
// process-wide engine registry at all, spec §9).
type Metrics struct {
	framesTotal   *prometheus.CounterVec
	droppedTotal  *prometheus.CounterVec
	queueDepth    *prometheus.GaugeVec
}

// EnableMetrics registers this engine's collectors with reg and starts
// populating them on every Rx/Tx/dispatch. Calling it more than once on
// the same Engine is a programmer error. The collectors are registered
// with reg.MustRegister under fixed names, so enabling metrics on a
// second Engine with the same registry panics; each Engine needs its
// own registry.
func (e *Engine) EnableMetrics(reg *prometheus.Registry) {
	m := &Metrics{
		framesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tst",
			Subsystem: "engine",
			Name:      "frames_total",
			Help:      "Frames dispatched, by device, interface and mode.",
		}, []string{"device", "interface", "mode"}),
		droppedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tst",
			Subsystem: "engine",
			Name:      "dropped_total",
			Help:      "Frames or fragments discarded, by device, interface and reason.",
		}, []string{"device", "interface", "reason"}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "tst",
			Subsystem: "engine",
			Name:      "queue_depth",
			Help:      "Current Rx/Tx queue depth, by device, interface and queue.",
		}, []string{"device", "interface", "queue"}),
	}
	reg.MustRegister(m.framesTotal, m.droppedTotal, m.queueDepth)
	e.metrics = m
}

func (e *Engine) countFrame(ifc *interfaceRecord, mode Mode) {
	if e.metrics == nil {
		return
	}
	e.metrics.framesTotal.WithLabelValues(ifc.deviceName, ifc.name, mode.String()).Inc()
}

func (e *Engine) countDropped(ifc *interfaceRecord, reason string) {
	if e.metrics == nil {
		return
	}
	e.metrics.droppedTotal.WithLabelValues(ifc.deviceName, ifc.name, reason).Inc()
}

func (e *Engine) observeQueueDepth(ifc *interfaceRecord) {
	if e.metrics == nil {
		return
	}
	e.metrics.queueDepth.WithLabelValues(ifc.deviceName, ifc.name, "rx").Set(float64(ifc.rx.Len()))
	e.metrics.queueDepth.WithLabelValues(ifc.deviceName, ifc.name, "tx").Set(float64(ifc.tx.Len()))
}
