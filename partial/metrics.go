package partial

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts builder activity. One Metrics may be shared by any number
// of builders; a nil *Metrics records nothing.
type Metrics struct {
	frames           prometheus.Counter
	destroys         prometheus.Counter
	materializations prometheus.Counter
	errors           *prometheus.CounterVec
	deferred         prometheus.Gauge
}

// NewMetrics creates the builder collectors and registers them with
// registerer. A nil registerer leaves them unregistered.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		frames: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "goshape",
			Subsystem: "partial",
			Name:      "frames_pushed_total",
			Help:      "Number of frames pushed by navigation.",
		}),
		destroys: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "goshape",
			Subsystem: "partial",
			Name:      "values_destroyed_total",
			Help:      "Number of values destroyed on overwrite, reselection or drop.",
		}),
		materializations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "goshape",
			Subsystem: "partial",
			Name:      "materializations_total",
			Help:      "Number of values materialized.",
		}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "goshape",
			Subsystem: "partial",
			Name:      "errors_total",
			Help:      "Number of failed operations by issue code.",
		}, []string{"code"}),
		deferred: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "goshape",
			Subsystem: "partial",
			Name:      "deferred_frames",
			Help:      "Number of frames currently held in deferred stores.",
		}),
	}
}

func (m *Metrics) framePushed() {
	if m != nil {
		m.frames.Inc()
	}
}

func (m *Metrics) destroyed() {
	if m != nil {
		m.destroys.Inc()
	}
}

func (m *Metrics) materialized() {
	if m != nil {
		m.materializations.Inc()
	}
}

func (m *Metrics) failed(code string) {
	if m == nil {
		return
	}
	if code == "" {
		code = "unknown"
	}
	m.errors.WithLabelValues(code).Inc()
}

func (m *Metrics) deferredDelta(n int) {
	if m != nil && n != 0 {
		m.deferred.Add(float64(n))
	}
}
