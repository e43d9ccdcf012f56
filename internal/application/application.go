package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/medishop/internal/observability"
	"github.com/Zhima-Mochi/medishop/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const SpanPrefix = "UC."

// ErrValidation marks caller mistakes. Presentation layers map it to a client error.
var ErrValidation = errors.New("validation")

func Validation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// Instruments carries the tracer, logger and RED metrics a service reports through.
type Instruments struct {
	tracer      observability.Tracer
	log         observability.Logger
	requests    observability.Counter   // usecase_requests_total{use_case,outcome}
	duration    observability.Histogram // usecase_duration_seconds{use_case}
	extRequests observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extDuration observability.Histogram // external_request_duration_seconds{peer,endpoint}
	metrics     observability.Metrics
}

// NewInstruments binds tel for the named service. A nil tel yields no-op instruments.
func NewInstruments(tel observability.Observability, service string) Instruments {
	if tel == nil {
		tel = observability.Nop()
	}
	m := tel.Metrics()
	return Instruments{
		tracer:      tel.Tracer(),
		log:         tel.Logger().With(observability.F("service", service)),
		requests:    m.Counter(observability.MUsecaseRequests),
		duration:    m.Histogram(observability.MUsecaseDuration),
		extRequests: m.Counter(observability.MExternalRequests),
		extDuration: m.Histogram(observability.MExternalRequestDuration),
		metrics:     m,
	}
}

func (in Instruments) Logger() observability.Logger   { return in.log }
func (in Instruments) Metrics() observability.Metrics { return in.metrics }

// Run tracks a single use case execution from Begin to End.
type Run struct {
	in      Instruments
	useCase string
	span    trace.Span
	log     observability.Logger
	start   time.Time
	outcome string
	status  string
	settled bool
	fields  []observability.Field
}

// Begin opens the span, binds a request-scoped logger onto ctx and starts the clock.
func (in Instruments) Begin(ctx context.Context, useCase, spanName string, attrs ...attribute.KeyValue) (context.Context, *Run) {
	attrs = append([]attribute.KeyValue{attribute.String("use_case", useCase)}, attrs...)
	ctx, span := in.tracer.Start(ctx, SpanPrefix+spanName, attrs...)

	logger := logctx.FromOr(ctx, in.log).With(observability.F("use_case", useCase))
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		logger = logger.With(
			observability.F("trace_id", sc.TraceID().String()),
			observability.F("span_id", sc.SpanID().String()),
		)
	}
	ctx = logctx.With(ctx, logger)

	return ctx, &Run{
		in:      in,
		useCase: useCase,
		span:    span,
		log:     logger,
		start:   time.Now(),
		outcome: "success",
		status:  "OK",
	}
}

func (r *Run) Logger() observability.Logger { return r.log }
func (r *Run) Span() trace.Span             { return r.span }

// Fail marks the run as failed with a machine-readable status.
func (r *Run) Fail(status string) {
	r.outcome, r.status, r.settled = "error", status, true
}

// Status overrides the status text without changing the outcome. An error returned after
// Status was set is treated as an expected business result.
func (r *Run) Status(status string) {
	r.status, r.settled = status, true
}

func (r *Run) Annotate(fields ...observability.Field) {
	r.fields = append(r.fields, fields...)
}

func (r *Run) Event(name string, attrs ...attribute.KeyValue) {
	if r.span != nil {
		r.span.AddEvent(name, trace.WithAttributes(attrs...))
	}
}

// End closes the span, records RED metrics and emits the single use_case_done log line.
func (r *Run) End(err error) {
	lat := time.Since(r.start).Seconds()
	if err != nil && !r.settled {
		r.Fail("ERROR")
	}

	if r.span != nil {
		if err != nil {
			r.span.RecordError(err)
			r.span.SetStatus(codes.Error, r.status)
		} else {
			r.span.SetStatus(codes.Ok, r.status)
		}
		r.span.End()
	}

	r.in.requests.Add(1,
		observability.L("use_case", r.useCase),
		observability.L("outcome", r.outcome),
	)
	r.in.duration.Observe(lat, observability.L("use_case", r.useCase))

	fields := append([]observability.Field{
		observability.F("outcome", r.outcome),
		observability.F("status", r.status),
		observability.F("latency_seconds", lat),
	}, r.fields...)
	if err != nil {
		fields = append(fields, observability.Err(err))
	}
	r.log.Info("use_case_done", fields...)
}

// External records one call to a collaborator outside the process.
func (in Instruments) External(peer, endpoint, outcome string, started time.Time) {
	in.extRequests.Add(1,
		observability.L("peer", peer),
		observability.L("endpoint", endpoint),
		observability.L("outcome", outcome),
	)
	in.extDuration.Observe(time.Since(started).Seconds(),
		observability.L("peer", peer),
		observability.L("endpoint", endpoint),
	)
}
