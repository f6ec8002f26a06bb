package app

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dshills/querystorm/internal/console"
	"github.com/dshills/querystorm/internal/event"
)

const metricsNamespace = "querystorm"

// Metrics counts console activity from the event bus.
type Metrics struct {
	registry *prometheus.Registry

	open          prometheus.Gauge
	versions      *prometheus.CounterVec
	navigation    *prometheus.CounterVec
	previews      *prometheus.CounterVec
	persists      *prometheus.CounterVec
	dirtyChanges  *prometheus.CounterVec
	configReloads prometheus.Counter
}

// NewMetrics creates the collectors on a private registry that also carries
// the Go runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		open: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "consoles_open",
			Help:      "Number of open consoles.",
		}),
		versions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "versions_saved_total",
			Help:      "Versions recorded, by origin.",
		}, []string{"origin"}),
		navigation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "history_navigation_total",
			Help:      "Undo, redo and restore operations.",
		}, []string{"op"}),
		previews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "previews_total",
			Help:      "Diff previews, by outcome.",
		}, []string{"outcome"}),
		persists: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "persists_total",
			Help:      "Persist calls, by result.",
		}, []string{"result"}),
		dirtyChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "dirty_changes_total",
			Help:      "Unsaved-changes flag transitions.",
		}, []string{"dirty"}),
		configReloads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "config_reloads_total",
			Help:      "Configuration reloads applied.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.open,
		m.versions,
		m.navigation,
		m.previews,
		m.persists,
		m.dirtyChanges,
		m.configReloads,
	)
	return m
}

// Registry returns the Prometheus registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Subscribe attaches the metrics to bus. Handlers run after every other
// subscriber.
func (m *Metrics) Subscribe(bus *event.Bus) error {
	if _, err := bus.Subscribe(event.TopicAllConsole, m.observe, event.WithPriority(event.PriorityLow)); err != nil {
		return err
	}
	_, err := bus.Subscribe(event.TopicConfigReloaded, func(context.Context, event.Event) error {
		m.configReloads.Inc()
		return nil
	}, event.WithPriority(event.PriorityLow))
	return err
}

func (m *Metrics) observe(_ context.Context, ev event.Event) error {
	p, _ := ev.Payload.(console.EventPayload)

	switch ev.Topic {
	case event.TopicConsoleOpened:
		m.open.Inc()
	case event.TopicConsoleClosed:
		m.open.Dec()
	case event.TopicVersionSaved:
		m.versions.WithLabelValues(p.Origin.String()).Inc()
	case event.TopicHistoryUndo:
		m.navigation.WithLabelValues("undo").Inc()
	case event.TopicHistoryRedo:
		m.navigation.WithLabelValues("redo").Inc()
	case event.TopicVersionRestored:
		m.navigation.WithLabelValues("restore").Inc()
	case event.TopicPreviewShown:
		m.previews.WithLabelValues("shown").Inc()
	case event.TopicPreviewReplaced:
		m.previews.WithLabelValues("replaced").Inc()
	case event.TopicPreviewAccepted:
		m.previews.WithLabelValues("accepted").Inc()
	case event.TopicPreviewRejected:
		m.previews.WithLabelValues("rejected").Inc()
	case event.TopicPersisted:
		m.persists.WithLabelValues("ok").Inc()
	case event.TopicPersistFailed:
		m.persists.WithLabelValues("failed").Inc()
	case event.TopicDirtyChanged:
		if p.Dirty {
			m.dirtyChanges.WithLabelValues("true").Inc()
		} else {
			m.dirtyChanges.WithLabelValues("false").Inc()
		}
	}
	return nil
}
