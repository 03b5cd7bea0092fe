package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "greg"

// Relay exposes Prometheus collectors that report relay activity. A nil
// *Relay is valid and records nothing.
type Relay struct {
	registry      *prometheus.Registry
	passes        *prometheus.CounterVec
	passDuration  prometheus.Histogram
	messages      *prometheus.CounterVec
	posts         *prometheus.CounterVec
	genFailures   *prometheus.CounterVec
	persistErrors prometheus.Counter
	handledSize   prometheus.Gauge
}

// New registers the relay collectors on a fresh registry, so several
// instances can coexist in tests.
func New() *Relay {
	reg := prometheus.NewRegistry()
	m := &Relay{
		registry: reg,
		passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "passes_total",
			Help:      "Coordinator passes by source and status.",
		}, []string{"source", "status"}),
		passDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "pass_duration_seconds",
			Help:      "Wall time of a polling pass.",
			Buckets:   prometheus.DefBuckets,
		}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "messages_total",
			Help:      "Messages examined, by outcome.",
		}, []string{"outcome"}),
		posts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "posts_total",
			Help:      "Platform posts by kind and result.",
		}, []string{"kind", "result"}),
		genFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reply",
			Name:      "failures_total",
			Help:      "Generation calls that ended in an apology, by kind.",
		}, []string{"kind"}),
		persistErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "handled",
			Name:      "persist_errors_total",
			Help:      "Failed writes of the handled set.",
		}),
		handledSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "handled",
			Name:      "ids",
			Help:      "Ids currently in the handled set.",
		}),
	}
	reg.MustRegister(m.passes, m.passDuration, m.messages, m.posts, m.genFailures, m.persistErrors, m.handledSize)
	return m
}

// Handler serves the relay registry in the Prometheus text format.
func (m *Relay) Handler() http.Handler {
	if m == nil {
		return nil
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Relay) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Relay) ObservePass(source, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.passes.WithLabelValues(source, status).Inc()
	if source == "poll" {
		m.passDuration.Observe(d.Seconds())
	}
}

func (m *Relay) IncMessage(outcome string) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(outcome).Inc()
}

func (m *Relay) IncPost(kind string, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.posts.WithLabelValues(kind, result).Inc()
}

func (m *Relay) IncGenerationFailure(kind string) {
	if m == nil {
		return
	}
	m.genFailures.WithLabelValues(kind).Inc()
}

func (m *Relay) IncPersistError() {
	if m == nil {
		return
	}
	m.persistErrors.Inc()
}

func (m *Relay) SetHandled(n int) {
	if m == nil {
		return
	}
	m.handledSize.Set(float64(n))
}
