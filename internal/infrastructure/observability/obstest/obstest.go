// Package obstest wires real telemetry backends to in-memory recorders for tests.
package obstest

import (
	"testing"

	"github.com/Zhima-Mochi/medishop/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/medishop/internal/infrastructure/observability/oteltrace"
	"github.com/Zhima-Mochi/medishop/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/medishop/internal/infrastructure/observability/zaplogger"
	obs "github.com/Zhima-Mochi/medishop/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type Kit struct {
	Obs      obs.Observability
	Spans    *tracetest.SpanRecorder
	Logs     *observer.ObservedLogs
	Registry *prometheus.Registry
}

func New(t testing.TB) *Kit {
	t.Helper()

	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	t.Cleanup(func() { _ = tp.Shutdown(t.Context()) })

	core, logs := observer.New(zap.DebugLevel)
	reg := prometheus.NewRegistry()
	counters, histograms := prometrics.Standard(prometrics.New(reg, "", ""))

	return &Kit{
		Obs: observability.New(observability.Backends{
			Tracer:     oteltrace.New(tp, "medishop-test"),
			Logger:     zaplogger.New(zap.New(core)),
			Counters:   counters,
			Histograms: histograms,
		}),
		Spans:    spans,
		Logs:     logs,
		Registry: reg,
	}
}

// SpanNames lists ended span names in end order.
func (k *Kit) SpanNames() []string {
	ended := k.Spans.Ended()
	names := make([]string, 0, len(ended))
	for _, s := range ended {
		names = append(names, s.Name())
	}
	return names
}

// CounterValue sums the counter samples whose labels include every pair in want.
func (k *Kit) CounterValue(t testing.TB, name string, want map[string]string) float64 {
	t.Helper()
	families, err := k.Registry.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			got := make(map[string]string, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				got[lp.GetName()] = lp.GetValue()
			}
			if matches(got, want) {
				total += m.GetCounter().GetValue()
			}
		}
	}
	return total
}

func matches(got, want map[string]string) bool {
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}

// Messages returns the logged messages in order.
func (k *Kit) Messages() []string {
	all := k.Logs.All()
	out := make([]string, 0, len(all))
	for _, e := range all {
		out = append(out, e.Message)
	}
	return out
}
