package workerpresentation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/medishop/internal/domain/notification"
	domoutbox "github.com/Zhima-Mochi/medishop/internal/domain/outbox"
	"github.com/Zhima-Mochi/medishop/internal/observability"
	"github.com/Zhima-Mochi/medishop/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const notificationWorker = "notification-worker"

// NamedSender labels a sender for metrics and logs.
type NamedSender struct {
	Name   string
	Sender notification.Sender
}

// NotificationWorker hands every drained notification message to each configured sender.
type NotificationWorker struct {
	subscriber domoutbox.Subscriber
	senders    []NamedSender
	tracer     observability.Tracer
	log        observability.Logger
	delivered  observability.Counter   // notifications_delivered_total{kind,outcome}
	extReq     observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extDur     observability.Histogram // external_request_duration_seconds{peer,endpoint}
}

func NewNotificationWorker(subscriber domoutbox.Subscriber, tel observability.Observability, senders ...NamedSender) *NotificationWorker {
	if tel == nil {
		tel = observability.Nop()
	}
	m := tel.Metrics()
	return &NotificationWorker{
		subscriber: subscriber,
		senders:    senders,
		tracer:     tel.Tracer(),
		log:        tel.Logger().With(observability.F("service", notificationWorker)),
		delivered:  m.Counter(observability.MNotificationsDrained),
		extReq:     m.Counter(observability.MExternalRequests),
		extDur:     m.Histogram(observability.MExternalRequestDuration),
	}
}

func (w *NotificationWorker) Start() {
	if w.subscriber == nil || len(w.senders) == 0 {
		return
	}
	w.subscriber.Subscribe(notification.MessageEventName, w.handleMessage)
}

func (w *NotificationWorker) handleMessage(ctx context.Context, e domoutbox.Event) (err error) {
	msg, ok := e.(notification.Message)
	if !ok {
		w.delivered.Add(1, observability.L("kind", "unknown"), observability.L("outcome", "ignored"))
		return nil
	}

	ctx, span := w.tracer.Start(ctx, "Worker.DeliverNotification",
		attribute.String("event", e.EventName()),
		attribute.String("notification.kind", string(msg.Kind)),
	)
	ctx = WithEventContext(ctx, w.log, map[string]string{
		"event_id": msg.ID,
		"event":    e.EventName(),
		"kind":     string(msg.Kind),
	})
	logger := logctx.FromOr(ctx, w.log)

	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, "DELIVERY_FAILED")
		} else {
			span.SetStatus(codes.Ok, "OK")
		}
		span.End()
		w.delivered.Add(1, observability.L("kind", string(msg.Kind)), observability.L("outcome", outcome))
		logger.Info("notification_delivered",
			observability.F("user_id", msg.UserID),
			observability.F("outcome", outcome),
		)
	}()

	var errs []error
	for _, s := range w.senders {
		started := time.Now()
		sendErr := s.Sender.Send(ctx, msg)
		outcome := "success"
		if sendErr != nil {
			outcome = "error"
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, sendErr))
			logger.Warn("notification_send_failed",
				observability.F("sender", s.Name),
				observability.Err(sendErr),
			)
		}
		w.extReq.Add(1,
			observability.L("peer", s.Name),
			observability.L("endpoint", "send"),
			observability.L("outcome", outcome),
		)
		w.extDur.Observe(time.Since(started).Seconds(),
			observability.L("peer", s.Name),
			observability.L("endpoint", "send"),
		)
	}
	return errors.Join(errs...)
}
