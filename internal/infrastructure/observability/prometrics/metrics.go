package prometrics

import (
	"sync"

	"github.com/Zhima-Mochi/medishop/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
)

// Registry creates label-keyed instruments. Asking twice for a name returns the same series.
type Registry interface {
	Counter(name string, help string, labelKeys ...string) observability.Counter
	Histogram(name string, help string, buckets []float64, labelKeys ...string) observability.Histogram
}

type registry struct {
	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
	reg        prometheus.Registerer
	namespace  string
	subsystem  string
}

// New returns a Registry that registers instruments on reg. A nil reg falls back to the default registerer.
func New(reg prometheus.Registerer, namespace, subsystem string) Registry {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &registry{
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
		reg:        reg,
		namespace:  namespace,
		subsystem:  subsystem,
	}
}

type counter struct{ vec *prometheus.CounterVec }

func (c counter) Add(delta float64, labels ...observability.Label) {
	c.vec.With(promLabels(labels)).Add(delta)
}

// Bind resolves the child series once; prometheus.Counter already satisfies BoundCounter.
func (c counter) Bind(labels ...observability.Label) observability.BoundCounter {
	return c.vec.With(promLabels(labels))
}

type histogram struct{ vec *prometheus.HistogramVec }

func (h histogram) Observe(value float64, labels ...observability.Label) {
	h.vec.With(promLabels(labels)).Observe(value)
}

func (h histogram) Bind(labels ...observability.Label) observability.BoundHistogram {
	return h.vec.With(promLabels(labels))
}

func promLabels(labels []observability.Label) prometheus.Labels {
	out := make(prometheus.Labels, len(labels))
	for _, l := range labels {
		out[l.Key] = l.Value
	}
	return out
}

func (r *registry) Counter(name string, help string, labelKeys ...string) observability.Counter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cv, ok := r.counters[name]; ok {
		return counter{vec: cv}
	}
	cv := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace, Subsystem: r.subsystem, Name: name, Help: help,
	}, labelKeys)
	r.reg.MustRegister(cv)
	r.counters[name] = cv
	return counter{vec: cv}
}

func (r *registry) Histogram(name string, help string, buckets []float64, labelKeys ...string) observability.Histogram {
	r.mu.Lock()
	defer r.mu.Unlock()

	if hv, ok := r.histograms[name]; ok {
		return histogram{vec: hv}
	}
	if buckets == nil {
		buckets = prometheus.DefBuckets
	}
	hv := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: r.namespace, Subsystem: r.subsystem, Name: name, Help: help, Buckets: buckets,
	}, labelKeys)
	r.reg.MustRegister(hv)
	r.histograms[name] = hv
	return histogram{vec: hv}
}

// Standard registers the RED instruments every use case and the HTTP layer expect, keyed for
// the observability provider.
func Standard(r Registry) (map[observability.MetricKey]observability.Counter, map[observability.MetricKey]observability.Histogram) {
	counters := map[observability.MetricKey]observability.Counter{
		observability.MUsecaseRequests:      r.Counter(string(observability.MUsecaseRequests), "Total number of use case invocations.", "use_case", "outcome"),
		observability.MHTTPRequests:         r.Counter(string(observability.MHTTPRequests), "Total number of HTTP requests.", "method", "route", "status"),
		observability.MExternalRequests:     r.Counter(string(observability.MExternalRequests), "Calls to collaborators outside the core.", "peer", "endpoint", "outcome"),
		observability.MOrderEvents:          r.Counter(string(observability.MOrderEvents), "Order workflow events announced to customers.", "event"),
		observability.MPaymentTransactions:  r.Counter(string(observability.MPaymentTransactions), "Payment transactions by method and resolved status.", "method", "status"),
		observability.MNotificationsDrained: r.Counter(string(observability.MNotificationsDrained), "Notifications handed to a sender.", "kind", "outcome"),
	}
	histograms := map[observability.MetricKey]observability.Histogram{
		observability.MUsecaseDuration:         r.Histogram(string(observability.MUsecaseDuration), "Duration of use case execution in seconds.", nil, "use_case"),
		observability.MHTTPRequestDuration:     r.Histogram(string(observability.MHTTPRequestDuration), "Duration of HTTP requests in seconds.", nil, "method", "route", "status"),
		observability.MExternalRequestDuration: r.Histogram(string(observability.MExternalRequestDuration), "Duration of collaborator calls in seconds.", nil, "peer", "endpoint"),
	}
	return counters, histograms
}
