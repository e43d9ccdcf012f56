package order

import (
	"time"

	"github.com/Zhima-Mochi/medishop/internal/domain/notification"
)

const StatusChangedEventName = "order.status_changed"

// StatusChangedEvent is published whenever an order or its payment moves to a new status.
type StatusChangedEvent struct {
	OrderID       string
	CustomerID    string
	From          Status
	To            Status
	PaymentStatus PaymentStatus
	Reason        string
	OccurredAt    time.Time
}

func (StatusChangedEvent) EventName() string { return StatusChangedEventName }

func NewStatusChangedEvent(o *Order, from Status) StatusChangedEvent {
	return StatusChangedEvent{
		OrderID:       o.ID,
		CustomerID:    o.CustomerID,
		From:          from,
		To:            o.status,
		PaymentStatus: o.paymentStatus,
		Reason:        o.failureReason,
		OccurredAt:    time.Now().UTC(),
	}
}

// NoticeKind maps the order's current status to the notification a customer receives for it.
func NoticeKind(o *Order) (notification.Kind, bool) {
	if o.paymentStatus == PaymentRefunded {
		return notification.KindOrderRefunded, true
	}
	switch o.status {
	case StatusProcessing:
		return notification.KindOrderPlaced, true
	case StatusPaymentFailed:
		return notification.KindOrderPaymentFailed, true
	case StatusError:
		return notification.KindOrderError, true
	case StatusCancelled:
		return notification.KindOrderCancelled, true
	case StatusShipped:
		return notification.KindOrderShipped, true
	case StatusDelivered:
		return notification.KindOrderDelivered, true
	default:
		return "", false
	}
}

// NoticeParams are the template parameters shared by every order notification.
func NoticeParams(o *Order) map[string]string {
	return map[string]string{
		"orderId":       o.ID,
		"total":         o.total.StringFixed(2),
		"transactionId": o.transactionID,
		"reason":        o.failureReason,
	}
}
