package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Zhima-Mochi/medishop/internal/domain/inventory"
	"github.com/Zhima-Mochi/medishop/internal/domain/notification"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStock struct {
	levels map[string]int
}

func (s *stubStock) Decrement(_ context.Context, id string, qty int) error {
	have, ok := s.levels[id]
	if !ok {
		return inventory.ErrNotFound
	}
	if have < qty {
		return &inventory.OutOfStockError{MedicineID: id, Requested: qty, Available: have}
	}
	s.levels[id] = have - qty
	return nil
}

type stubRx struct {
	allowed map[string]bool
	err     error
}

func (s stubRx) IsAuthorized(_ context.Context, patientID, medicineID string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.allowed[patientID+"/"+medicineID], nil
}

func medicine(t *testing.T, id, price string, stock int, rx bool) inventory.Medicine {
	t.Helper()
	m, err := inventory.NewMedicine(id, "Medicine "+id, decimal.RequireFromString(price), stock, rx)
	require.NoError(t, err)
	return *m
}

func newOrder(t *testing.T) *Order {
	t.Helper()
	o, err := New("ORD-1", "CUST-1", "1 Main St", time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC), 72*time.Hour)
	require.NoError(t, err)
	return o
}

func TestNewOrder(t *testing.T) {
	o := newOrder(t)
	assert.Equal(t, StatusPending, o.Status())
	assert.Equal(t, PaymentPending, o.PaymentStatus())
	assert.True(t, o.Total().IsZero())
	assert.Equal(t, time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC), o.EstimatedCompletion)

	_, err := New("ORD-2", "", "", time.Now(), time.Hour)
	assert.ErrorIs(t, err, ErrCustomerRequired)
}

func TestAddItemCapturesPriceAndDecrementsStock(t *testing.T) {
	o := newOrder(t)
	stock := &stubStock{levels: map[string]int{"MED01": 100}}
	med := medicine(t, "MED01", "5.00", 100, false)

	require.NoError(t, o.AddItem(context.Background(), med, 2, nil, stock))

	assert.Equal(t, 98, stock.levels["MED01"])
	assert.True(t, decimal.RequireFromString("10.00").Equal(o.Total()))
	require.Len(t, o.Items(), 1)

	med.Price = decimal.RequireFromString("9.99")
	assert.True(t, decimal.RequireFromString("5.00").Equal(o.Items()[0].UnitPrice))
}

func TestAddItemRequiresPrescription(t *testing.T) {
	o := newOrder(t)
	stock := &stubStock{levels: map[string]int{"MED02": 10}}
	med := medicine(t, "MED02", "12.50", 10, true)

	err := o.AddItem(context.Background(), med, 1, stubRx{}, stock)
	assert.ErrorIs(t, err, ErrPrescriptionRequired)
	assert.Empty(t, o.Items())
	assert.True(t, o.Total().IsZero())
	assert.Equal(t, 10, stock.levels["MED02"])

	err = o.AddItem(context.Background(), med, 1, nil, stock)
	assert.ErrorIs(t, err, ErrPrescriptionRequired)

	rx := stubRx{allowed: map[string]bool{"CUST-1/MED02": true}}
	require.NoError(t, o.AddItem(context.Background(), med, 1, rx, stock))
	assert.Equal(t, 9, stock.levels["MED02"])
}

func TestAddItemCheckerErrorLeavesOrderUnchanged(t *testing.T) {
	o := newOrder(t)
	stock := &stubStock{levels: map[string]int{"MED02": 10}}
	boom := errors.New("boom")

	err := o.AddItem(context.Background(), medicine(t, "MED02", "1", 10, true), 1, stubRx{err: boom}, stock)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, o.Items())
	assert.Equal(t, 10, stock.levels["MED02"])
}

func TestAddItemOutOfStockIsAllOrNothing(t *testing.T) {
	o := newOrder(t)
	stock := &stubStock{levels: map[string]int{"MED01": 3}}

	err := o.AddItem(context.Background(), medicine(t, "MED01", "5.00", 3, false), 4, nil, stock)
	var oos *inventory.OutOfStockError
	require.True(t, errors.As(err, &oos))
	assert.Equal(t, 3, oos.Available)
	assert.Equal(t, 3, stock.levels["MED01"])
	assert.Empty(t, o.Items())
}

func TestAddItemRejectsInvalidInput(t *testing.T) {
	o := newOrder(t)
	stock := &stubStock{levels: map[string]int{"MED01": 3}}
	med := medicine(t, "MED01", "5.00", 3, false)

	assert.ErrorIs(t, o.AddItem(context.Background(), med, 0, nil, stock), ErrInvalidQuantity)
	assert.ErrorIs(t, o.AddItem(context.Background(), inventory.Medicine{}, 1, nil, stock), ErrInvalidMedicine)
}

func TestItemsLockedOncePaymentBegins(t *testing.T) {
	o := newOrder(t)
	stock := &stubStock{levels: map[string]int{"MED01": 10}}
	med := medicine(t, "MED01", "5.00", 10, false)

	assert.ErrorIs(t, o.BeginPayment(), ErrEmptyOrder)
	require.NoError(t, o.AddItem(context.Background(), med, 1, nil, stock))
	require.NoError(t, o.BeginPayment())

	assert.ErrorIs(t, o.AddItem(context.Background(), med, 1, nil, stock), ErrItemsLocked)
	assert.Equal(t, 9, stock.levels["MED01"])
}

func TestItemsReturnsCopy(t *testing.T) {
	o := newOrder(t)
	stock := &stubStock{levels: map[string]int{"MED01": 10}}
	require.NoError(t, o.AddItem(context.Background(), medicine(t, "MED01", "5.00", 10, false), 1, nil, stock))

	items := o.Items()
	items[0].Quantity = 99
	assert.Equal(t, 1, o.Items()[0].Quantity)
}

func paidOrder(t *testing.T) *Order {
	t.Helper()
	o := newOrder(t)
	stock := &stubStock{levels: map[string]int{"MED01": 10}}
	require.NoError(t, o.AddItem(context.Background(), medicine(t, "MED01", "5.00", 10, false), 2, nil, stock))
	require.NoError(t, o.BeginPayment())
	require.NoError(t, o.RecordPaymentOutcome(PaymentOutcome{Kind: OutcomeSucceeded, TransactionID: "TXN-1"}))
	return o
}

func TestPaymentOutcomes(t *testing.T) {
	t.Run("succeeded", func(t *testing.T) {
		o := paidOrder(t)
		assert.Equal(t, StatusProcessing, o.Status())
		assert.Equal(t, PaymentPaid, o.PaymentStatus())
		assert.Equal(t, "TXN-1", o.TransactionID())
	})

	t.Run("declined", func(t *testing.T) {
		o := newOrder(t)
		require.NoError(t, o.RecordPaymentOutcome(PaymentOutcome{Kind: OutcomeDeclined, TransactionID: "TXN-2", Reason: "declined"}))
		assert.Equal(t, StatusPaymentFailed, o.Status())
		assert.Equal(t, PaymentFailed, o.PaymentStatus())
		assert.True(t, o.Status().Terminal())
	})

	t.Run("gateway error", func(t *testing.T) {
		o := newOrder(t)
		require.NoError(t, o.RecordPaymentOutcome(PaymentOutcome{Kind: OutcomeGatewayError, Reason: "timeout"}))
		assert.Equal(t, StatusError, o.Status())
		assert.Equal(t, PaymentPending, o.PaymentStatus())
		assert.Equal(t, "timeout", o.FailureReason())
	})

	t.Run("unknown kind", func(t *testing.T) {
		o := newOrder(t)
		assert.ErrorIs(t, o.RecordPaymentOutcome(PaymentOutcome{}), ErrInvalidOutcome)
		assert.Equal(t, StatusPending, o.Status())
	})

	t.Run("second outcome rejected", func(t *testing.T) {
		o := paidOrder(t)
		err := o.RecordPaymentOutcome(PaymentOutcome{Kind: OutcomeDeclined})
		assert.ErrorIs(t, err, ErrInvalidStateTransition)
		assert.Equal(t, PaymentPaid, o.PaymentStatus())
	})
}

func TestLifecycle(t *testing.T) {
	o := paidOrder(t)

	assert.ErrorIs(t, o.MarkDelivered(), ErrInvalidStateTransition)
	assert.ErrorIs(t, o.Cancel(), ErrInvalidStateTransition)

	require.NoError(t, o.MarkShipped())
	require.NoError(t, o.MarkDelivered())
	assert.True(t, o.Status().Terminal())
	assert.ErrorIs(t, o.MarkShipped(), ErrInvalidStateTransition)

	require.NoError(t, o.Refund())
	assert.Equal(t, PaymentRefunded, o.PaymentStatus())
	assert.ErrorIs(t, o.Refund(), ErrInvalidStateTransition)
}

func TestCancelOnlyWhilePending(t *testing.T) {
	o := newOrder(t)
	require.NoError(t, o.Cancel())
	assert.Equal(t, StatusCancelled, o.Status())
	assert.ErrorIs(t, o.Cancel(), ErrInvalidStateTransition)
	assert.ErrorIs(t, o.MarkShipped(), ErrInvalidStateTransition)
	assert.ErrorIs(t, o.Refund(), ErrInvalidStateTransition)
}

func TestStatusTable(t *testing.T) {
	assert.True(t, StatusPending.CanTransitionTo(StatusProcessing))
	assert.False(t, StatusDelivered.CanTransitionTo(StatusPending))
	for _, s := range []Status{StatusDelivered, StatusCancelled, StatusPaymentFailed, StatusError} {
		assert.True(t, s.Terminal(), s)
	}
	assert.Equal(t, "Payment failed for order", StatusPaymentFailed.Description())
	assert.Equal(t, "Unknown order status", Status("nope").Description())
	assert.Equal(t, "Payment has been refunded", PaymentRefunded.Description())
}

func TestCloneIsIndependent(t *testing.T) {
	o := paidOrder(t)
	c := o.Clone()
	require.NoError(t, c.MarkShipped())
	assert.Equal(t, StatusProcessing, o.Status())
	assert.Equal(t, StatusShipped, c.Status())
}

func TestSummary(t *testing.T) {
	o := paidOrder(t)
	s := o.Summary()
	assert.Equal(t, "ORD-1", s.OrderID)
	assert.True(t, decimal.RequireFromString("10").Equal(s.Total))

	text := o.String()
	assert.Contains(t, text, "Order #ORD-1")
	assert.Contains(t, text, "Medicine MED01")
	assert.Contains(t, text, "Total: 10.00")
	assert.Contains(t, text, "Order is being processed")
	assert.Contains(t, text, "Transaction: TXN-1")
	assert.Contains(t, text, "Estimated completion: 2026-01-05")
}

func TestNoticeKind(t *testing.T) {
	o := newOrder(t)
	_, ok := NoticeKind(o)
	assert.False(t, ok)

	o = paidOrder(t)
	kind, ok := NoticeKind(o)
	require.True(t, ok)
	assert.Equal(t, notification.KindOrderPlaced, kind)

	require.NoError(t, o.Refund())
	kind, _ = NoticeKind(o)
	assert.Equal(t, notification.KindOrderRefunded, kind)

	params := NoticeParams(o)
	assert.Equal(t, "10.00", params["total"])
	assert.Equal(t, "TXN-1", params["transactionId"])
}

func TestStatusChangedEvent(t *testing.T) {
	o := paidOrder(t)
	ev := NewStatusChangedEvent(o, StatusPending)
	assert.Equal(t, StatusChangedEventName, ev.EventName())
	assert.Equal(t, StatusProcessing, ev.To)
	assert.Equal(t, PaymentPaid, ev.PaymentStatus)
}
