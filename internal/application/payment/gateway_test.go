package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Zhima-Mochi/medishop/internal/application"
	domain "github.com/Zhima-Mochi/medishop/internal/domain/payment"
	"github.com/Zhima-Mochi/medishop/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/medishop/internal/infrastructure/observability/obstest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ten = decimal.RequireFromString("10.00")

type countingBackend struct {
	calls int
	inner domain.Backend
}

func (b *countingBackend) Authorize(ctx context.Context, orderID string, amount decimal.Decimal, m domain.Method) (bool, error) {
	b.calls++
	return b.inner.Authorize(ctx, orderID, amount, m)
}

func newGateway(t *testing.T, backend domain.Backend, opts ...Option) (*Gateway, *obstest.Kit) {
	t.Helper()
	kit := obstest.New(t)
	return NewGateway(backend, memory.NewTransactionLog(), kit.Obs, opts...), kit
}

func TestProcessPaymentSuccess(t *testing.T) {
	ctx := context.Background()
	backend := &countingBackend{inner: StaticBackend{Approve: true}}
	gw, kit := newGateway(t, backend, WithGatewayID("GW-TEST"))

	txID, err := gw.ProcessPayment(ctx, "ORD-1", ten, domain.MethodCreditCard)
	require.NoError(t, err)
	assert.Equal(t, 1, backend.calls)

	ok, err := gw.VerifyTransaction(ctx, txID)
	require.NoError(t, err)
	assert.True(t, ok)

	tx, err := gw.Transaction(ctx, txID)
	require.NoError(t, err)
	assert.Equal(t, "GW-TEST", tx.GatewayID)
	assert.True(t, ten.Equal(tx.Amount))

	receipt, err := gw.GenerateReceipt(ctx, txID)
	require.NoError(t, err)
	assert.Contains(t, receipt, "Transaction ID: "+txID)
	assert.Contains(t, receipt, "Amount: 10.00")
	assert.Contains(t, receipt, "Payment Method: CreditCard")

	assert.Equal(t, float64(1), kit.CounterValue(t, "payment_transactions_total",
		map[string]string{"method": "CreditCard", "status": "success"}))
	assert.Equal(t, float64(1), kit.CounterValue(t, "external_requests_total",
		map[string]string{"peer": "payment-backend", "outcome": "success"}))
}

func TestProcessPaymentDeclined(t *testing.T) {
	ctx := context.Background()
	gw, _ := newGateway(t, StaticBackend{Approve: false})

	txID, err := gw.ProcessPayment(ctx, "ORD-1", ten, domain.MethodDebitCard)
	require.NotEmpty(t, txID)
	assert.ErrorIs(t, err, domain.ErrPaymentFailed)
	var failed *domain.FailedError
	require.True(t, errors.As(err, &failed))
	assert.Equal(t, txID, failed.TransactionID)

	ok, err := gw.VerifyTransaction(ctx, txID)
	require.NoError(t, err)
	assert.False(t, ok)

	receipt, err := gw.GenerateReceipt(ctx, txID)
	require.NoError(t, err)
	assert.Equal(t, "Payment failed for transaction "+txID+". No receipt generated.", receipt)
}

func TestProcessPaymentValidationWritesNothing(t *testing.T) {
	ctx := context.Background()
	backend := &countingBackend{inner: StaticBackend{Approve: true}}
	txLog := memory.NewTransactionLog()
	gw := NewGateway(backend, txLog, nil, WithMethods(domain.MethodCreditCard))

	_, err := gw.ProcessPayment(ctx, "ORD-1", decimal.Zero, domain.MethodCreditCard)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	assert.ErrorIs(t, err, application.ErrValidation)

	_, err = gw.ProcessPayment(ctx, "ORD-1", ten, domain.MethodNetBanking)
	assert.ErrorIs(t, err, domain.ErrUnsupportedMethod)

	_, err = gw.ProcessPayment(ctx, "", ten, domain.MethodCreditCard)
	assert.ErrorIs(t, err, domain.ErrOrderIDRequired)

	assert.Zero(t, backend.calls)
	txs, _ := txLog.ListByOrder(ctx, "ORD-1")
	assert.Empty(t, txs)
	assert.Equal(t, []domain.Method{domain.MethodCreditCard}, gw.SupportedMethods())
}

func TestProcessPaymentBackendErrorIsGatewayError(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("connection reset")
	gw, _ := newGateway(t, StaticBackend{Err: boom})

	txID, err := gw.ProcessPayment(ctx, "ORD-1", ten, domain.MethodCreditCard)
	assert.ErrorIs(t, err, domain.ErrGateway)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, domain.ErrPaymentFailed)

	tx, err := gw.Transaction(ctx, txID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, tx.Status)
}

func TestProcessPaymentTimeout(t *testing.T) {
	ctx := context.Background()
	slow, err := NewSimulatedBackend(1, time.Second)
	require.NoError(t, err)
	gw, _ := newGateway(t, slow, WithTimeout(10*time.Millisecond))

	txID, err := gw.ProcessPayment(ctx, "ORD-1", ten, domain.MethodCreditCard)
	assert.ErrorIs(t, err, domain.ErrGateway)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	tx, err := gw.Transaction(ctx, txID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, tx.Status)
}

func TestUnknownTransaction(t *testing.T) {
	gw, _ := newGateway(t, StaticBackend{Approve: true})
	_, err := gw.VerifyTransaction(context.Background(), "TXN-404")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = gw.GenerateReceipt(context.Background(), "TXN-404")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSimulatedBackendRates(t *testing.T) {
	ctx := context.Background()
	_, err := NewSimulatedBackend(-0.1, 0)
	assert.Error(t, err)

	b, err := NewSimulatedBackend(0, 0)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		ok, err := b.Authorize(ctx, "ORD-1", ten, domain.MethodCreditCard)
		require.NoError(t, err)
		assert.False(t, ok)
	}

	require.NoError(t, b.SetSuccessRate(1))
	ok, _ := b.Authorize(ctx, "ORD-1", ten, domain.MethodCreditCard)
	assert.True(t, ok)

	assert.Error(t, b.SetSuccessRate(1.5))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = b.Authorize(cancelled, "ORD-1", ten, domain.MethodCreditCard)
	assert.ErrorIs(t, err, context.Canceled)
}
