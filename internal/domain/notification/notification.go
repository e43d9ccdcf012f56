package notification

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"text/template"
	"time"
)

var ErrUnknownKind = errors.New("notification: unknown kind")

type Kind string

const (
	KindOrderPlaced          Kind = "ORDER_PLACED"
	KindOrderPaymentFailed   Kind = "ORDER_PAYMENT_FAILED"
	KindOrderError           Kind = "ORDER_ERROR"
	KindOrderCancelled       Kind = "ORDER_CANCELLED"
	KindOrderShipped         Kind = "ORDER_SHIPPED"
	KindOrderDelivered       Kind = "ORDER_DELIVERED"
	KindOrderRefunded        Kind = "ORDER_REFUNDED"
	KindPrescriptionIssued   Kind = "NEW_PRESCRIPTION_ISSUED"
	KindPrescriptionVerified Kind = "PRESCRIPTION_VERIFIED"
	KindPrescriptionRequest  Kind = "PRESCRIPTION_REQUEST"
)

var templates = map[Kind]*template.Template{
	KindOrderPlaced:          mustParse(KindOrderPlaced, "Your order #{{.orderId}} has been confirmed. Total: {{.total}}"),
	KindOrderPaymentFailed:   mustParse(KindOrderPaymentFailed, "Payment for order #{{.orderId}} failed (transaction {{.transactionId}})"),
	KindOrderError:           mustParse(KindOrderError, "We could not process order #{{.orderId}}: {{.reason}}"),
	KindOrderCancelled:       mustParse(KindOrderCancelled, "Your order #{{.orderId}} has been cancelled"),
	KindOrderShipped:         mustParse(KindOrderShipped, "Your order #{{.orderId}} has been shipped"),
	KindOrderDelivered:       mustParse(KindOrderDelivered, "Your order #{{.orderId}} has been delivered"),
	KindOrderRefunded:        mustParse(KindOrderRefunded, "Payment of {{.total}} for order #{{.orderId}} has been refunded"),
	KindPrescriptionIssued:   mustParse(KindPrescriptionIssued, "Dr. {{.practitionerName}} issued prescription #{{.prescriptionId}}"),
	KindPrescriptionVerified: mustParse(KindPrescriptionVerified, "Your prescription #{{.prescriptionId}} has been verified"),
	KindPrescriptionRequest:  mustParse(KindPrescriptionRequest, "{{.patientName}} ({{.patientContact}}) requested a prescription"),
}

func mustParse(k Kind, text string) *template.Template {
	return template.Must(template.New(string(k)).Option("missingkey=zero").Parse(text))
}

// Render formats the message body for kind with params.
func Render(kind Kind, params map[string]string) (string, error) {
	tpl, ok := templates[kind]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	var b strings.Builder
	if err := tpl.Execute(&b, params); err != nil {
		return "", fmt.Errorf("notification: render %s: %w", kind, err)
	}
	return strings.ReplaceAll(b.String(), "<no value>", ""), nil
}

func Kinds() []Kind {
	out := make([]Kind, 0, len(templates))
	for k := range templates {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Message is a rendered notification waiting for delivery.
type Message struct {
	ID        string
	UserID    string
	Kind      Kind
	Body      string
	Params    map[string]string
	CreatedAt time.Time
}

const MessageEventName = "notification.message"

func (Message) EventName() string { return MessageEventName }

// Notifier accepts events for a user. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, userID string, kind Kind, params map[string]string) error
}

// Sender delivers a rendered message to one channel.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
