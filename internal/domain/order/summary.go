package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Summary is a read-only snapshot of an order for display.
type Summary struct {
	OrderID             string
	CustomerID          string
	ShippingAddress     string
	Items               []Item
	Total               decimal.Decimal
	Status              Status
	PaymentStatus       PaymentStatus
	TransactionID       string
	FailureReason       string
	CreatedAt           time.Time
	EstimatedCompletion time.Time
}

func (o *Order) Summary() Summary {
	return Summary{
		OrderID:             o.ID,
		CustomerID:          o.CustomerID,
		ShippingAddress:     o.ShippingAddress,
		Items:               o.Items(),
		Total:               o.total,
		Status:              o.status,
		PaymentStatus:       o.paymentStatus,
		TransactionID:       o.transactionID,
		FailureReason:       o.failureReason,
		CreatedAt:           o.CreatedAt,
		EstimatedCompletion: o.EstimatedCompletion,
	}
}

func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Order #%s\n", s.OrderID)
	fmt.Fprintf(&b, "Customer: %s\n", s.CustomerID)
	if s.ShippingAddress != "" {
		fmt.Fprintf(&b, "Ship to: %s\n", s.ShippingAddress)
	}
	fmt.Fprintf(&b, "Placed: %s\n", s.CreatedAt.Format(time.RFC3339))
	b.WriteString("Items:\n")
	if len(s.Items) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, it := range s.Items {
		fmt.Fprintf(&b, "  %-24s x%-4d @ %8s = %10s\n",
			it.MedicineName, it.Quantity, it.UnitPrice.StringFixed(2), it.Subtotal().StringFixed(2))
	}
	fmt.Fprintf(&b, "Total: %s\n", s.Total.StringFixed(2))
	fmt.Fprintf(&b, "Status: %s\n", s.Status.Description())
	fmt.Fprintf(&b, "Payment: %s\n", s.PaymentStatus.Description())
	if s.TransactionID != "" {
		fmt.Fprintf(&b, "Transaction: %s\n", s.TransactionID)
	}
	if s.FailureReason != "" {
		fmt.Fprintf(&b, "Reason: %s\n", s.FailureReason)
	}
	fmt.Fprintf(&b, "Estimated completion: %s\n", s.EstimatedCompletion.Format("2006-01-02"))
	return b.String()
}

func (o *Order) String() string { return o.Summary().String() }
