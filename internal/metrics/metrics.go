// Package metrics exposes the riding and hazard counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Sink receives observability events from the riding and hazard services.
type Sink interface {
	SessionCreated()
	SessionCompleted()
	LocationRecorded()
	NetworkDisconnected()
	NetworkQualityChanged()
	HazardReported(kind string)
}

type Nop struct{}

func (Nop) SessionCreated()        {}
func (Nop) SessionCompleted()      {}
func (Nop) LocationRecorded()      {}
func (Nop) NetworkDisconnected()   {}
func (Nop) NetworkQualityChanged() {}
func (Nop) HazardReported(string)  {}

type Prometheus struct {
	registry *prometheus.Registry

	sessionsCreated   prometheus.Counter
	sessionsCompleted prometheus.Counter
	locationUpdates   prometheus.Counter
	disconnections    prometheus.Counter
	qualityChanges    prometheus.Counter
	hazardReports     *prometheus.CounterVec
}

func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		sessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rideon",
			Subsystem: "riding",
			Name:      "sessions_created_total",
			Help:      "Riding sessions started.",
		}),
		sessionsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rideon",
			Subsystem: "riding",
			Name:      "sessions_completed_total",
			Help:      "Riding sessions ended normally.",
		}),
		locationUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rideon",
			Subsystem: "riding",
			Name:      "location_updates_total",
			Help:      "Location samples accepted.",
		}),
		disconnections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rideon",
			Subsystem: "network",
			Name:      "disconnections_total",
			Help:      "Network samples reporting a lost connection.",
		}),
		qualityChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rideon",
			Subsystem: "network",
			Name:      "quality_changes_total",
			Help:      "Network samples that produced a known quality tier.",
		}),
		hazardReports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rideon",
			Subsystem: "hazard",
			Name:      "reports_total",
			Help:      "Hazard reports created, labeled by type.",
		}, []string{"type"}),
	}
	p.registry.MustRegister(
		p.sessionsCreated,
		p.sessionsCompleted,
		p.locationUpdates,
		p.disconnections,
		p.qualityChanges,
		p.hazardReports,
		collectors.NewGoCollector(),
	)
	return p
}

func (p *Prometheus) SessionCreated()        { p.sessionsCreated.Inc() }
func (p *Prometheus) SessionCompleted()      { p.sessionsCompleted.Inc() }
func (p *Prometheus) LocationRecorded()      { p.locationUpdates.Inc() }
func (p *Prometheus) NetworkDisconnected()   { p.disconnections.Inc() }
func (p *Prometheus) NetworkQualityChanged() { p.qualityChanges.Inc() }
func (p *Prometheus) HazardReported(kind string) {
	p.hazardReports.WithLabelValues(kind).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
