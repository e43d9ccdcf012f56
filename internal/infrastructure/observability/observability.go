// Package observability composes the concrete adapters into the port consumed by services.
package observability

import (
	"github.com/Zhima-Mochi/medishop/internal/observability"
)

// Backends lists the adapters a provider is built from. Missing parts fall back to no-ops.
type Backends struct {
	Tracer     observability.Tracer
	Logger     observability.Logger
	Counters   map[observability.MetricKey]observability.Counter
	Histograms map[observability.MetricKey]observability.Histogram
}

type provider struct {
	tracer  observability.Tracer
	logger  observability.Logger
	metrics instruments
}

// instruments is a read-only lookup; it is never mutated after New returns.
type instruments struct {
	counters   map[observability.MetricKey]observability.Counter
	histograms map[observability.MetricKey]observability.Histogram
}

func (in instruments) Counter(name observability.MetricKey) observability.Counter {
	if c := in.counters[name]; c != nil {
		return c
	}
	return observability.NopCounter()
}

func (in instruments) Histogram(name observability.MetricKey) observability.Histogram {
	if h := in.histograms[name]; h != nil {
		return h
	}
	return observability.NopHistogram()
}

func New(b Backends) observability.Observability {
	p := &provider{
		tracer: b.Tracer,
		logger: b.Logger,
		metrics: instruments{
			counters:   make(map[observability.MetricKey]observability.Counter, len(b.Counters)),
			histograms: make(map[observability.MetricKey]observability.Histogram, len(b.Histograms)),
		},
	}
	if p.tracer == nil {
		p.tracer = observability.NopTracer()
	}
	if p.logger == nil {
		p.logger = observability.NopLogger()
	}
	for k, c := range b.Counters {
		if c != nil {
			p.metrics.counters[k] = c
		}
	}
	for k, h := range b.Histograms {
		if h != nil {
			p.metrics.histograms[k] = h
		}
	}
	return p
}

func (p *provider) Tracer() observability.Tracer   { return p.tracer }
func (p *provider) Logger() observability.Logger   { return p.logger }
func (p *provider) Metrics() observability.Metrics { return p.metrics }
