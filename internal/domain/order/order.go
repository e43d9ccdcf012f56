package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/medishop/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound               = errors.New("order: not found")
	ErrConflict               = errors.New("order: already exists")
	ErrCustomerRequired       = errors.New("order: customer id is required")
	ErrInvalidQuantity        = errors.New("order: quantity must be greater than zero")
	ErrInvalidMedicine        = errors.New("order: medicine id is required")
	ErrItemsLocked            = errors.New("order: items can no longer be changed")
	ErrPrescriptionRequired   = errors.New("order: prescription required")
	ErrEmptyOrder             = errors.New("order: order has no items")
	ErrInvalidStateTransition = errors.New("order: invalid state transition")
	ErrInvalidOutcome         = errors.New("order: unknown payment outcome")
)

// PrescriptionChecker answers whether a patient may receive a prescription-only medicine.
type PrescriptionChecker interface {
	IsAuthorized(ctx context.Context, patientID, medicineID string) (bool, error)
}

// StockDecrementer reduces stock atomically or fails leaving it unchanged.
type StockDecrementer interface {
	Decrement(ctx context.Context, medicineID string, quantity int) error
}

// Item is an order line. UnitPrice is captured when the line is added and never follows
// later catalogue price changes.
type Item struct {
	MedicineID   string
	MedicineName string
	Quantity     int
	UnitPrice    decimal.Decimal
}

func (i Item) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Order struct {
	ID                  string
	CustomerID          string
	ShippingAddress     string
	CreatedAt           time.Time
	UpdatedAt           time.Time
	EstimatedCompletion time.Time

	items          []Item
	total          decimal.Decimal
	status         Status
	paymentStatus  PaymentStatus
	transactionID  string
	failureReason  string
	paymentStarted bool
}

func New(id, customerID, shippingAddress string, now time.Time, leadTime time.Duration) (*Order, error) {
	if customerID == "" {
		return nil, ErrCustomerRequired
	}
	now = now.UTC()
	return &Order{
		ID:                  id,
		CustomerID:          customerID,
		ShippingAddress:     shippingAddress,
		CreatedAt:           now,
		UpdatedAt:           now,
		EstimatedCompletion: now.Add(leadTime),
		total:               decimal.Zero,
		status:              StatusPending,
		paymentStatus:       PaymentPending,
	}, nil
}

func (o *Order) Status() Status               { return o.status }
func (o *Order) PaymentStatus() PaymentStatus { return o.paymentStatus }
func (o *Order) Total() decimal.Decimal       { return o.total }
func (o *Order) TransactionID() string        { return o.transactionID }
func (o *Order) FailureReason() string        { return o.failureReason }

// Items returns a copy of the order lines in insertion order.
func (o *Order) Items() []Item {
	out := make([]Item, len(o.items))
	copy(out, o.items)
	return out
}

// AddItem enforces the prescription gate, decrements stock and appends the line.
// On any failure the order is left exactly as it was.
func (o *Order) AddItem(ctx context.Context, med inventory.Medicine, quantity int, rx PrescriptionChecker, stock StockDecrementer) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	if med.ID == "" {
		return ErrInvalidMedicine
	}
	if o.status != StatusPending || o.paymentStarted {
		return ErrItemsLocked
	}
	if stock == nil {
		return errors.New("order: stock ledger is required")
	}

	if med.RequiresPrescription {
		if rx == nil {
			return fmt.Errorf("%w: %s", ErrPrescriptionRequired, med.ID)
		}
		ok, err := rx.IsAuthorized(ctx, o.CustomerID, med.ID)
		if err != nil {
			return fmt.Errorf("order: prescription check: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: %s", ErrPrescriptionRequired, med.ID)
		}
	}

	if err := stock.Decrement(ctx, med.ID, quantity); err != nil {
		return fmt.Errorf("order: add %s: %w", med.ID, err)
	}

	o.items = append(o.items, Item{
		MedicineID:   med.ID,
		MedicineName: med.Name,
		Quantity:     quantity,
		UnitPrice:    med.Price,
	})
	o.recalculateTotal()
	o.touch()
	return nil
}

func (o *Order) recalculateTotal() {
	total := decimal.Zero
	for _, it := range o.items {
		total = total.Add(it.Subtotal())
	}
	o.total = total
}

// BeginPayment freezes the item list. The order must be pending and non-empty.
func (o *Order) BeginPayment() error {
	if o.status != StatusPending || o.paymentStatus != PaymentPending {
		return fmt.Errorf("%w: cannot start payment from %s/%s", ErrInvalidStateTransition, o.status, o.paymentStatus)
	}
	if len(o.items) == 0 {
		return ErrEmptyOrder
	}
	o.paymentStarted = true
	o.touch()
	return nil
}

func (o *Order) PaymentStarted() bool { return o.paymentStarted }

type OutcomeKind int

const (
	OutcomeSucceeded OutcomeKind = iota + 1
	OutcomeDeclined
	OutcomeGatewayError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeDeclined:
		return "declined"
	case OutcomeGatewayError:
		return "gateway_error"
	default:
		return "unknown"
	}
}

type PaymentOutcome struct {
	Kind          OutcomeKind
	TransactionID string
	Reason        string
}

// RecordPaymentOutcome applies the gateway's answer. A gateway error moves the order to Error
// without claiming anything about the payment itself.
func (o *Order) RecordPaymentOutcome(out PaymentOutcome) error {
	if o.status != StatusPending || o.paymentStatus != PaymentPending {
		return fmt.Errorf("%w: payment outcome on %s/%s", ErrInvalidStateTransition, o.status, o.paymentStatus)
	}

	switch out.Kind {
	case OutcomeSucceeded:
		o.paymentStatus = PaymentPaid
		o.status = StatusProcessing
		o.failureReason = ""
	case OutcomeDeclined:
		o.paymentStatus = PaymentFailed
		o.status = StatusPaymentFailed
		o.failureReason = out.Reason
	case OutcomeGatewayError:
		o.status = StatusError
		o.failureReason = out.Reason
	default:
		return fmt.Errorf("%w: %d", ErrInvalidOutcome, out.Kind)
	}

	o.paymentStarted = true
	if out.TransactionID != "" {
		o.transactionID = out.TransactionID
	}
	o.touch()
	return nil
}

// Cancel is only legal while the order is pending. Stock is not returned here.
func (o *Order) Cancel() error {
	if o.status != StatusPending {
		return fmt.Errorf("%w: cannot cancel %s order", ErrInvalidStateTransition, o.status)
	}
	return o.transition(StatusCancelled)
}

func (o *Order) MarkShipped() error {
	if o.status != StatusProcessing {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, o.status, StatusShipped)
	}
	return o.transition(StatusShipped)
}

func (o *Order) MarkDelivered() error {
	if o.status != StatusShipped {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, o.status, StatusDelivered)
	}
	return o.transition(StatusDelivered)
}

// Refund is the only move out of a settled payment: Paid -> Refunded.
func (o *Order) Refund() error {
	if !o.paymentStatus.CanTransitionTo(PaymentRefunded) {
		return fmt.Errorf("%w: payment %s -> %s", ErrInvalidStateTransition, o.paymentStatus, PaymentRefunded)
	}
	o.paymentStatus = PaymentRefunded
	o.touch()
	return nil
}

func (o *Order) transition(next Status) error {
	if !o.status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, o.status, next)
	}
	o.status = next
	o.touch()
	return nil
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.items = o.Items()
	return &clone
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now().UTC()
}
