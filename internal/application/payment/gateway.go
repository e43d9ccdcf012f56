package payment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Zhima-Mochi/medishop/internal/application"
	domain "github.com/Zhima-Mochi/medishop/internal/domain/payment"
	"github.com/Zhima-Mochi/medishop/internal/observability"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"go.opentelemetry.io/otel/attribute"
)

const (
	gatewayService        = "payment-gateway"
	useCasePaymentProcess = "payment.process"
	backendPeer           = "payment-backend"
	backendEndpoint       = "authorize"

	DefaultGatewayID = "GW-001"
	DefaultTimeout   = 2 * time.Second
)

// Gateway validates payment requests, asks the backend once and keeps the transaction log.
type Gateway struct {
	backend   domain.Backend
	log       domain.TransactionLog
	in        application.Instruments
	txCounter observability.Counter // payment_transactions_total{method,status}

	gatewayID string
	methods   []domain.Method
	timeout   time.Duration
	now       func() time.Time
	newID     func() string
}

type Option func(*Gateway)

func WithGatewayID(id string) Option {
	return func(g *Gateway) {
		if id != "" {
			g.gatewayID = id
		}
	}
}

func WithMethods(methods ...domain.Method) Option {
	return func(g *Gateway) {
		if len(methods) > 0 {
			g.methods = append([]domain.Method(nil), methods...)
		}
	}
}

// WithTimeout bounds each backend call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) { g.timeout = d }
}

func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(g *Gateway) { g.newID = newID }
}

func NewGateway(backend domain.Backend, txLog domain.TransactionLog, tel observability.Observability, opts ...Option) *Gateway {
	in := application.NewInstruments(tel, gatewayService)
	g := &Gateway{
		backend:   backend,
		log:       txLog,
		in:        in,
		txCounter: in.Metrics().Counter(observability.MPaymentTransactions),
		gatewayID: DefaultGatewayID,
		methods:   domain.DefaultMethods(),
		timeout:   DefaultTimeout,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     func() string { return "TXN-" + uuid.NewString() },
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gateway) SupportedMethods() []domain.Method {
	return append([]domain.Method(nil), g.methods...)
}

func (g *Gateway) supports(m domain.Method) bool {
	for _, s := range g.methods {
		if s == m {
			return true
		}
	}
	return false
}

// ProcessPayment charges amount for orderID. A decline returns the transaction id together with a
// *domain.FailedError; a backend failure or timeout returns a *domain.GatewayError.
func (g *Gateway) ProcessPayment(ctx context.Context, orderID string, amount decimal.Decimal, method domain.Method) (txID string, err error) {
	ctx, run := g.in.Begin(ctx, useCasePaymentProcess, "ProcessPayment",
		attribute.String("order.id", orderID),
		attribute.String("payment.amount", amount.StringFixed(2)),
		attribute.String("payment.method", string(method)),
	)
	defer func() {
		if txID != "" {
			run.Annotate(observability.F("transaction_id", txID))
			run.Span().SetAttributes(attribute.String("payment.transaction_id", txID))
		}
		run.Annotate(observability.F("order_id", orderID))
		run.End(err)
	}()

	switch {
	case orderID == "":
		run.Fail("ORDER_ID_REQUIRED")
		return "", fmt.Errorf("%w: %w", application.ErrValidation, domain.ErrOrderIDRequired)
	case !amount.IsPositive():
		run.Fail("AMOUNT_INVALID")
		return "", fmt.Errorf("%w: %w", application.ErrValidation, domain.ErrInvalidAmount)
	case !g.supports(method):
		run.Fail("METHOD_UNSUPPORTED")
		return "", fmt.Errorf("%w: %w: %s", application.ErrValidation, domain.ErrUnsupportedMethod, method)
	}

	tx := domain.Transaction{
		ID:        g.newID(),
		OrderID:   orderID,
		Amount:    amount,
		Method:    method,
		Status:    domain.StatusPending,
		GatewayID: g.gatewayID,
		Timestamp: g.now(),
	}
	if err = g.log.Put(ctx, tx); err != nil {
		run.Fail("TX_LOG_FAILED")
		return "", &domain.GatewayError{Err: err}
	}

	approved, authErr := g.authorize(ctx, tx)

	switch {
	case authErr != nil:
		tx.Status = domain.StatusFailed
		run.Fail("BACKEND_FAILED")
		err = &domain.GatewayError{TransactionID: tx.ID, Err: authErr}
	case approved:
		tx.Status = domain.StatusSuccess
	default:
		tx.Status = domain.StatusFailed
		run.Status("DECLINED")
		err = &domain.FailedError{TransactionID: tx.ID}
	}

	// The pending entry is always resolved, even when the caller's context is gone.
	if putErr := g.log.Put(context.WithoutCancel(ctx), tx); putErr != nil && err == nil {
		run.Fail("TX_LOG_FAILED")
		err = &domain.GatewayError{TransactionID: tx.ID, Err: putErr}
	}
	g.txCounter.Add(1,
		observability.L("method", string(method)),
		observability.L("status", string(tx.Status)),
	)
	return tx.ID, err
}

func (g *Gateway) authorize(ctx context.Context, tx domain.Transaction) (bool, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	started := time.Now()
	approved, err := g.backend.Authorize(ctx, tx.OrderID, tx.Amount, tx.Method)
	outcome := "success"
	switch {
	case err != nil:
		outcome = "error"
	case !approved:
		outcome = "declined"
	}
	g.in.External(backendPeer, backendEndpoint, outcome, started)
	return approved, err
}

func (g *Gateway) Transaction(ctx context.Context, id string) (domain.Transaction, error) {
	return g.log.Get(ctx, id)
}

func (g *Gateway) VerifyTransaction(ctx context.Context, id string) (bool, error) {
	tx, err := g.log.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return tx.Succeeded(), nil
}

// GenerateReceipt renders a receipt for a successful transaction and a failure notice otherwise.
func (g *Gateway) GenerateReceipt(ctx context.Context, id string) (string, error) {
	tx, err := g.log.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if !tx.Succeeded() {
		return fmt.Sprintf("Payment failed for transaction %s. No receipt generated.", tx.ID), nil
	}

	var b strings.Builder
	b.WriteString("Payment Receipt\n")
	fmt.Fprintf(&b, "Transaction ID: %s\n", tx.ID)
	fmt.Fprintf(&b, "Order ID: %s\n", tx.OrderID)
	fmt.Fprintf(&b, "Amount: %s\n", tx.Amount.StringFixed(2))
	fmt.Fprintf(&b, "Payment Method: %s\n", tx.Method)
	fmt.Fprintf(&b, "Date: %s\n", tx.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(&b, "Gateway ID: %s\n", tx.GatewayID)
	fmt.Fprintf(&b, "Status: %s\n", tx.Status.Description())
	return b.String(), nil
}
