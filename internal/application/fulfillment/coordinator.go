// Package fulfillment drives an order from creation through payment to delivery. It is the only
// place that talks to the ledger, the prescription gate, the payment gateway and the notifier
// in one flow.
package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Zhima-Mochi/medishop/internal/application"
	"github.com/Zhima-Mochi/medishop/internal/domain/audit"
	"github.com/Zhima-Mochi/medishop/internal/domain/identity"
	"github.com/Zhima-Mochi/medishop/internal/domain/inventory"
	"github.com/Zhima-Mochi/medishop/internal/domain/notification"
	"github.com/Zhima-Mochi/medishop/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/medishop/internal/domain/outbox"
	"github.com/Zhima-Mochi/medishop/internal/domain/payment"
	"github.com/Zhima-Mochi/medishop/internal/observability"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"go.opentelemetry.io/otel/attribute"
)

const (
	coordinatorService = "fulfillment-coordinator"

	useCaseCreate   = "order.create"
	useCaseAddItem  = "order.add_item"
	useCaseCheckout = "order.checkout"
	useCasePlace    = "order.place"
	useCaseCancel   = "order.cancel"
	useCaseShip     = "order.ship"
	useCaseDeliver  = "order.deliver"
	useCaseRefund   = "order.refund"

	DefaultLeadTime = 72 * time.Hour
)

// PaymentGateway charges an order. See payment.Gateway for the error contract.
type PaymentGateway interface {
	ProcessPayment(ctx context.Context, orderID string, amount decimal.Decimal, method payment.Method) (string, error)
}

type Coordinator struct {
	ledger   inventory.Ledger
	gate     order.PrescriptionChecker
	gateway  PaymentGateway
	orders   order.Repository
	notifier notification.Notifier
	auditor  audit.Recorder
	events   domoutbox.Publisher

	in          application.Instruments
	orderEvents observability.Counter // order_events_total{event}

	leadTime time.Duration
	now      func() time.Time
	newID    func() string

	locksMu sync.Mutex
	locks   map[string]*orderLock
}

type Option func(*Coordinator)

// WithEvents publishes an order.StatusChangedEvent for every status change.
func WithEvents(p domoutbox.Publisher) Option {
	return func(c *Coordinator) { c.events = p }
}

func WithLeadTime(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.leadTime = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(c *Coordinator) { c.newID = newID }
}

func New(
	ledger inventory.Ledger,
	gate order.PrescriptionChecker,
	gateway PaymentGateway,
	orders order.Repository,
	notifier notification.Notifier,
	auditor audit.Recorder,
	tel observability.Observability,
	opts ...Option,
) *Coordinator {
	in := application.NewInstruments(tel, coordinatorService)
	c := &Coordinator{
		ledger:      ledger,
		gate:        gate,
		gateway:     gateway,
		orders:      orders,
		notifier:    notifier,
		auditor:     auditor,
		in:          in,
		orderEvents: in.Metrics().Counter(observability.MOrderEvents),
		leadTime:    DefaultLeadTime,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       func() string { return "ORD-" + uuid.NewString() },
		locks:       make(map[string]*orderLock),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// orderLock is shared by every caller currently working on one order.
type orderLock struct {
	mu   sync.Mutex
	refs int
}

// lock serializes every mutation of one order. Different orders never block each other.
// An entry lives only while some caller holds or waits for it.
func (c *Coordinator) lock(orderID string) func() {
	c.locksMu.Lock()
	l, ok := c.locks[orderID]
	if !ok {
		l = &orderLock{}
		c.locks[orderID] = l
	}
	l.refs++
	c.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		c.locksMu.Lock()
		if l.refs--; l.refs == 0 {
			delete(c.locks, orderID)
		}
		c.locksMu.Unlock()
	}
}

func (c *Coordinator) CreateOrder(ctx context.Context, customer identity.Customer, shippingAddress string) (_ *order.Order, err error) {
	ctx, run := c.in.Begin(ctx, useCaseCreate, "CreateOrder",
		attribute.String("order.customer_id", customer.ID),
	)
	defer func() { run.End(err) }()

	if err = customer.Validate(); err != nil {
		run.Fail("CUSTOMER_ID_REQUIRED")
		return nil, fmt.Errorf("%w: %w", application.ErrValidation, err)
	}
	if shippingAddress == "" {
		shippingAddress = customer.ShippingAddress
	}

	o, err := order.New(c.newID(), customer.ID, shippingAddress, c.now(), c.leadTime)
	if err != nil {
		run.Fail("DOMAIN_CONSTRUCTION_FAILED")
		return nil, fmt.Errorf("%w: %w", application.ErrValidation, err)
	}
	if err = c.orders.Insert(ctx, o); err != nil {
		run.Fail("REPO_INSERT_FAILED")
		return nil, err
	}

	run.Annotate(observability.F("order_id", o.ID))
	run.Event("order.created", attribute.String("order.id", o.ID))
	return o, nil
}

// AddItem puts quantity units of a medicine on a pending order. Stock is taken immediately.
func (c *Coordinator) AddItem(ctx context.Context, orderID, medicineID string, quantity int) (_ *order.Order, err error) {
	ctx, run := c.in.Begin(ctx, useCaseAddItem, "AddItem",
		attribute.String("order.id", orderID),
		attribute.String("medicine.id", medicineID),
		attribute.Int("order.item_quantity", quantity),
	)
	defer func() { run.End(err) }()

	if quantity < 1 {
		run.Fail("QUANTITY_INVALID")
		return nil, fmt.Errorf("%w: %w", application.ErrValidation, order.ErrInvalidQuantity)
	}

	unlock := c.lock(orderID)
	defer unlock()

	o, err := c.orders.Get(ctx, orderID)
	if err != nil {
		run.Fail("ORDER_LOAD_FAILED")
		return nil, err
	}
	med, err := c.ledger.Get(ctx, medicineID)
	if err != nil {
		run.Fail("MEDICINE_LOOKUP_FAILED")
		return nil, err
	}

	if err = o.AddItem(ctx, med, quantity, c.gate, c.ledger); err != nil {
		run.Fail(addItemStatus(err))
		return nil, err
	}

	if err = c.orders.Update(ctx, o); err != nil {
		run.Fail("ORDER_UPDATE_FAILED")
		if restockErr := c.ledger.Increment(context.WithoutCancel(ctx), medicineID, quantity); restockErr != nil {
			run.Logger().Error("stock_compensation_failed",
				observability.F("medicine_id", medicineID),
				observability.F("quantity", quantity),
				observability.Err(restockErr),
			)
		}
		return nil, err
	}

	run.Annotate(
		observability.F("order_id", o.ID),
		observability.F("total", o.Total().StringFixed(2)),
	)
	return o, nil
}

func addItemStatus(err error) string {
	switch {
	case errors.Is(err, inventory.ErrOutOfStock):
		return "OUT_OF_STOCK"
	case errors.Is(err, order.ErrPrescriptionRequired):
		return "PRESCRIPTION_REQUIRED"
	case errors.Is(err, order.ErrItemsLocked):
		return "ITEMS_LOCKED"
	default:
		return "ADD_ITEM_FAILED"
	}
}

// Checkout charges the order once and records the outcome. Exactly one of OrderPlaced,
// OrderPaymentFailed or OrderError is announced. A declined payment or gateway failure is
// returned as an error next to the updated order.
func (c *Coordinator) Checkout(ctx context.Context, orderID string, method payment.Method) (_ *order.Order, err error) {
	ctx, run := c.in.Begin(ctx, useCaseCheckout, "Checkout",
		attribute.String("order.id", orderID),
		attribute.String("payment.method", string(method)),
	)
	defer func() { run.End(err) }()

	unlock := c.lock(orderID)
	defer unlock()

	o, err := c.orders.Get(ctx, orderID)
	if err != nil {
		run.Fail("ORDER_LOAD_FAILED")
		return nil, err
	}
	from := o.Status()

	if err = o.BeginPayment(); err != nil {
		if errors.Is(err, order.ErrEmptyOrder) {
			run.Fail("ORDER_EMPTY")
		} else {
			run.Fail("INVALID_STATE")
		}
		return nil, err
	}

	txID, payErr := c.gateway.ProcessPayment(ctx, o.ID, o.Total(), method)
	if errors.Is(payErr, application.ErrValidation) {
		run.Fail("PAYMENT_REJECTED")
		return nil, payErr
	}

	outcome := order.PaymentOutcome{Kind: order.OutcomeSucceeded, TransactionID: txID}
	switch {
	case payErr == nil:
	case errors.Is(payErr, payment.ErrPaymentFailed):
		outcome.Kind = order.OutcomeDeclined
		outcome.Reason = "payment declined"
		run.Status("PAYMENT_DECLINED")
	default:
		outcome.Kind = order.OutcomeGatewayError
		outcome.Reason = payErr.Error()
		run.Fail("PAYMENT_GATEWAY_ERROR")
	}

	if err = o.RecordPaymentOutcome(outcome); err != nil {
		run.Fail("STATE_TRANSITION_FAILED")
		return nil, err
	}
	if err = c.orders.Update(ctx, o); err != nil {
		run.Fail("ORDER_UPDATE_FAILED")
		return nil, err
	}

	run.Annotate(
		observability.F("order_id", o.ID),
		observability.F("transaction_id", txID),
		observability.F("order_status", string(o.Status())),
	)
	run.Span().SetAttributes(
		attribute.String("order.status", string(o.Status())),
		attribute.String("payment.transaction_id", txID),
	)

	c.announce(ctx, run, o, from)
	c.record(ctx, run, o.CustomerID, checkoutActivity(o))
	return o, payErr
}

func checkoutActivity(o *order.Order) string {
	switch o.Status() {
	case order.StatusProcessing:
		return fmt.Sprintf("Placed order %s for %s", o.ID, o.Total().StringFixed(2))
	case order.StatusPaymentFailed:
		return fmt.Sprintf("Payment failed for order %s", o.ID)
	default:
		return fmt.Sprintf("Order %s could not be processed", o.ID)
	}
}

type ItemRequest struct {
	MedicineID string
	Quantity   int
}

type PlaceOrderInput struct {
	Customer        identity.Customer
	ShippingAddress string
	Items           []ItemRequest
	PaymentMethod   payment.Method
	// AbortOnItemFailure cancels the whole order when any item cannot be added.
	AbortOnItemFailure bool
}

type ItemResult struct {
	ItemRequest
	Err error
}

func (r ItemResult) Added() bool { return r.Err == nil }

type PlaceOrderResult struct {
	Order *order.Order
	Items []ItemResult
}

// PlaceOrder creates an order, adds every requested item and checks out. Items that cannot be
// added are reported individually. When nothing could be added, or when AbortOnItemFailure is set
// and something failed, the order is cancelled and the stock already taken goes back. A payment
// method the gateway rejects cancels the order the same way and returns the validation error.
func (c *Coordinator) PlaceOrder(ctx context.Context, in PlaceOrderInput) (_ *PlaceOrderResult, err error) {
	ctx, run := c.in.Begin(ctx, useCasePlace, "PlaceOrder",
		attribute.String("order.customer_id", in.Customer.ID),
		attribute.Int("order.requested_items", len(in.Items)),
	)
	defer func() { run.End(err) }()

	if len(in.Items) == 0 {
		run.Fail("NO_ITEMS")
		return nil, application.Validation("at least one item is required")
	}

	o, err := c.CreateOrder(ctx, in.Customer, in.ShippingAddress)
	if err != nil {
		run.Fail("CREATE_FAILED")
		return nil, err
	}
	res := &PlaceOrderResult{Order: o, Items: make([]ItemResult, 0, len(in.Items))}
	run.Annotate(observability.F("order_id", o.ID))

	added, failed := 0, 0
	for _, item := range in.Items {
		updated, addErr := c.AddItem(ctx, o.ID, item.MedicineID, item.Quantity)
		res.Items = append(res.Items, ItemResult{ItemRequest: item, Err: addErr})
		if addErr != nil {
			failed++
			if in.AbortOnItemFailure {
				break
			}
			continue
		}
		added++
		res.Order = updated
	}

	if added == 0 || (failed > 0 && in.AbortOnItemFailure) {
		run.Status("ABORTED")
		res.Order, err = c.CancelOrder(ctx, o.ID, true)
		if err != nil {
			run.Fail("CANCEL_FAILED")
			return res, err
		}
		return res, nil
	}

	res.Order, err = c.Checkout(ctx, o.ID, in.PaymentMethod)
	if errors.Is(err, application.ErrValidation) {
		// No payment was attempted; give the stock back and settle the order.
		run.Status("CHECKOUT_REJECTED")
		cancelled, cancelErr := c.CancelOrder(ctx, o.ID, true)
		if cancelErr != nil {
			run.Fail("CANCEL_FAILED")
			res.Order, _ = c.orders.Get(ctx, o.ID)
			return res, errors.Join(err, cancelErr)
		}
		res.Order = cancelled
		return res, err
	}
	if res.Order == nil {
		res.Order, _ = c.orders.Get(ctx, o.ID)
	}
	if err != nil && !errors.Is(err, payment.ErrPaymentFailed) {
		run.Fail("CHECKOUT_FAILED")
	} else if err != nil {
		run.Status("PAYMENT_DECLINED")
	}
	return res, err
}

// CancelOrder cancels a pending order. With restock the order's items go back to the ledger.
func (c *Coordinator) CancelOrder(ctx context.Context, orderID string, restock bool) (_ *order.Order, err error) {
	ctx, run := c.in.Begin(ctx, useCaseCancel, "CancelOrder",
		attribute.String("order.id", orderID),
		attribute.Bool("order.restock", restock),
	)
	defer func() { run.End(err) }()

	unlock := c.lock(orderID)
	defer unlock()

	o, err := c.orders.Get(ctx, orderID)
	if err != nil {
		run.Fail("ORDER_LOAD_FAILED")
		return nil, err
	}
	from := o.Status()
	if err = o.Cancel(); err != nil {
		run.Fail("INVALID_STATE")
		return nil, err
	}
	if err = c.orders.Update(ctx, o); err != nil {
		run.Fail("ORDER_UPDATE_FAILED")
		return nil, err
	}
	if restock {
		c.restock(ctx, run, o)
	}

	c.announce(ctx, run, o, from)
	c.record(ctx, run, o.CustomerID, fmt.Sprintf("Cancelled order %s", o.ID))
	return o, nil
}

func (c *Coordinator) ShipOrder(ctx context.Context, orderID string) (*order.Order, error) {
	return c.advance(ctx, useCaseShip, "ShipOrder", orderID, (*order.Order).MarkShipped, "Order %s shipped")
}

func (c *Coordinator) DeliverOrder(ctx context.Context, orderID string) (*order.Order, error) {
	return c.advance(ctx, useCaseDeliver, "DeliverOrder", orderID, (*order.Order).MarkDelivered, "Order %s delivered")
}

func (c *Coordinator) advance(ctx context.Context, useCase, span, orderID string, move func(*order.Order) error, activity string) (_ *order.Order, err error) {
	ctx, run := c.in.Begin(ctx, useCase, span, attribute.String("order.id", orderID))
	defer func() { run.End(err) }()

	unlock := c.lock(orderID)
	defer unlock()

	o, err := c.orders.Get(ctx, orderID)
	if err != nil {
		run.Fail("ORDER_LOAD_FAILED")
		return nil, err
	}
	from := o.Status()
	if err = move(o); err != nil {
		run.Fail("INVALID_STATE")
		return nil, err
	}
	if err = c.orders.Update(ctx, o); err != nil {
		run.Fail("ORDER_UPDATE_FAILED")
		return nil, err
	}

	c.announce(ctx, run, o, from)
	c.record(ctx, run, o.CustomerID, fmt.Sprintf(activity, o.ID))
	return o, nil
}

// RefundOrder moves a paid order's payment to Refunded. The order status itself does not change.
func (c *Coordinator) RefundOrder(ctx context.Context, orderID string, restock bool) (_ *order.Order, err error) {
	ctx, run := c.in.Begin(ctx, useCaseRefund, "RefundOrder",
		attribute.String("order.id", orderID),
		attribute.Bool("order.restock", restock),
	)
	defer func() { run.End(err) }()

	unlock := c.lock(orderID)
	defer unlock()

	o, err := c.orders.Get(ctx, orderID)
	if err != nil {
		run.Fail("ORDER_LOAD_FAILED")
		return nil, err
	}
	from := o.Status()
	if err = o.Refund(); err != nil {
		run.Fail("INVALID_STATE")
		return nil, err
	}
	if err = c.orders.Update(ctx, o); err != nil {
		run.Fail("ORDER_UPDATE_FAILED")
		return nil, err
	}
	if restock {
		c.restock(ctx, run, o)
	}

	c.announce(ctx, run, o, from)
	c.record(ctx, run, o.CustomerID, fmt.Sprintf("Refunded %s for order %s", o.Total().StringFixed(2), o.ID))
	return o, nil
}

func (c *Coordinator) Get(ctx context.Context, orderID string) (*order.Order, error) {
	return c.orders.Get(ctx, orderID)
}

func (c *Coordinator) Summary(ctx context.Context, orderID string) (order.Summary, error) {
	o, err := c.orders.Get(ctx, orderID)
	if err != nil {
		return order.Summary{}, err
	}
	return o.Summary(), nil
}

func (c *Coordinator) ListByCustomer(ctx context.Context, customerID string) ([]*order.Order, error) {
	return c.orders.ListByCustomer(ctx, customerID)
}

func (c *Coordinator) restock(ctx context.Context, run *application.Run, o *order.Order) {
	ctx = context.WithoutCancel(ctx)
	for _, it := range o.Items() {
		if err := c.ledger.Increment(ctx, it.MedicineID, it.Quantity); err != nil {
			run.Status("RESTOCK_PARTIAL")
			run.Logger().Error("restock_failed",
				observability.F("order_id", o.ID),
				observability.F("medicine_id", it.MedicineID),
				observability.F("quantity", it.Quantity),
				observability.Err(err),
			)
		}
	}
}

// announce emits the customer notification and status event for the order's new state.
// Delivery is best effort; failures are logged and never undo the transition.
func (c *Coordinator) announce(ctx context.Context, run *application.Run, o *order.Order, from order.Status) {
	kind, ok := order.NoticeKind(o)
	if !ok {
		return
	}
	c.orderEvents.Add(1, observability.L("event", string(kind)))
	run.Event("order."+string(o.Status()), attribute.String("notification.kind", string(kind)))

	if c.notifier != nil {
		if err := c.notifier.Notify(ctx, o.CustomerID, kind, order.NoticeParams(o)); err != nil {
			run.Logger().Warn("notification_failed",
				observability.F("kind", string(kind)),
				observability.Err(err),
			)
		}
	}
	if c.events != nil {
		if err := c.events.Publish(ctx, order.NewStatusChangedEvent(o, from)); err != nil {
			run.Logger().Warn("event_publish_failed",
				observability.F("event", order.StatusChangedEventName),
				observability.Err(err),
			)
		}
	}
}

func (c *Coordinator) record(ctx context.Context, run *application.Run, userID, activity string) {
	if c.auditor == nil {
		return
	}
	if err := c.auditor.Record(ctx, userID, activity); err != nil {
		run.Logger().Warn("audit_record_failed", observability.Err(err))
	}
}
