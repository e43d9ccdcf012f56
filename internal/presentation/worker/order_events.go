package workerpresentation

import (
	"context"

	"github.com/Zhima-Mochi/medishop/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/medishop/internal/domain/outbox"
	"github.com/Zhima-Mochi/medishop/internal/observability"
	"github.com/Zhima-Mochi/medishop/internal/observability/logctx"
)

const orderEventWorker = "order-event-worker"

// OrderEventLogger writes one structured line per order status change so the order timeline
// can be rebuilt from logs.
type OrderEventLogger struct {
	subscriber domoutbox.Subscriber
	log        observability.Logger
}

func NewOrderEventLogger(subscriber domoutbox.Subscriber, logger observability.Logger) *OrderEventLogger {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &OrderEventLogger{
		subscriber: subscriber,
		log:        logger.With(observability.F("service", orderEventWorker)),
	}
}

func (w *OrderEventLogger) Start() {
	if w.subscriber == nil {
		return
	}
	w.subscriber.Subscribe(order.StatusChangedEventName, w.handleStatusChanged)
}

func (w *OrderEventLogger) handleStatusChanged(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(order.StatusChangedEvent)
	if !ok {
		return nil
	}
	ctx = WithEventContext(ctx, w.log, map[string]string{"event": e.EventName()})

	fields := []observability.Field{
		observability.F("order_id", evt.OrderID),
		observability.F("customer_id", evt.CustomerID),
		observability.F("from", string(evt.From)),
		observability.F("to", string(evt.To)),
		observability.F("payment_status", string(evt.PaymentStatus)),
		observability.F("occurred_at", evt.OccurredAt),
	}
	if evt.Reason != "" {
		fields = append(fields, observability.F("reason", evt.Reason))
	}
	logctx.FromOr(ctx, w.log).Info("order_status_changed", fields...)
	return nil
}
