package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors of the blend engine. Every method is safe to call on a nil *Metrics,
// so layers and animators can record unconditionally.
type Metrics struct {
	transitions       *prometheus.CounterVec
	transientCreated  *prometheus.CounterVec
	transientCollects *prometheus.CounterVec
	queueFired        *prometheus.CounterVec
	layerUpdate       *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg. A nil registerer leaves them unregistered, which
// is handy in tests.
//
// Parameters:
//   - reg: the registerer, e.g. prometheus.DefaultRegisterer
//
// Returns:
//   - *Metrics: the collectors
//   - error: an error if registration fails
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oxyblend_transitions_total",
				Help: "Total number of transitions started, by layer and transition type",
			},
			[]string{"layer", "type"},
		),
		transientCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oxyblend_transient_nodes_created_total",
				Help: "Total number of transient overflow nodes created",
			},
			[]string{"layer"},
		),
		transientCollects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oxyblend_transient_nodes_collected_total",
				Help: "Total number of transient overflow nodes destroyed",
			},
			[]string{"layer"},
		),
		queueFired: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oxyblend_queue_instructions_fired_total",
				Help: "Total number of queued play instructions that fired",
			},
			[]string{"layer"},
		),
		layerUpdate: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "oxyblend_layer_update_seconds",
				Help:    "Duration of a layer Update call",
				Buckets: prometheus.ExponentialBuckets(0.000005, 2, 12),
			},
			[]string{"layer"},
		),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.transitions, m.transientCreated, m.transientCollects, m.queueFired, m.layerUpdate} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// TransitionStarted counts a transition of the given type on a layer.
func (m *Metrics) TransitionStarted(layer, transitionType string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(layer, transitionType).Inc()
}

// TransientCreated counts a new transient overflow node.
func (m *Metrics) TransientCreated(layer string) {
	if m == nil {
		return
	}
	m.transientCreated.WithLabelValues(layer).Inc()
}

// TransientCollected counts a destroyed transient overflow node.
func (m *Metrics) TransientCollected(layer string) {
	if m == nil {
		return
	}
	m.transientCollects.WithLabelValues(layer).Inc()
}

// QueueFired counts a queued instruction that played its state.
func (m *Metrics) QueueFired(layer string) {
	if m == nil {
		return
	}
	m.queueFired.WithLabelValues(layer).Inc()
}

// ObserveLayerUpdate records how long a layer Update took.
func (m *Metrics) ObserveLayerUpdate(layer string, d time.Duration) {
	if m == nil {
		return
	}
	m.layerUpdate.WithLabelValues(layer).Observe(d.Seconds())
}
