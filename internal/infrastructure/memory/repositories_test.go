package memory

import (
	"context"
	"testing"
	"time"

	"github.com/Zhima-Mochi/medishop/internal/domain/identity"
	"github.com/Zhima-Mochi/medishop/internal/domain/notification"
	"github.com/Zhima-Mochi/medishop/internal/domain/order"
	"github.com/Zhima-Mochi/medishop/internal/domain/payment"
	"github.com/Zhima-Mochi/medishop/internal/domain/prescription"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderRepositoryStoresCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	first, err := order.New("ORD-1", "CUST-1", "", base, time.Hour)
	require.NoError(t, err)
	second, err := order.New("ORD-2", "CUST-1", "", base.Add(time.Minute), time.Hour)
	require.NoError(t, err)
	other, err := order.New("ORD-3", "CUST-2", "", base, time.Hour)
	require.NoError(t, err)

	require.NoError(t, repo.Insert(ctx, second))
	require.NoError(t, repo.Insert(ctx, first))
	require.NoError(t, repo.Insert(ctx, other))
	assert.ErrorIs(t, repo.Insert(ctx, first), order.ErrConflict)

	require.NoError(t, first.Cancel())
	stored, err := repo.Get(ctx, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, stored.Status())

	require.NoError(t, repo.Update(ctx, first))
	stored, _ = repo.Get(ctx, "ORD-1")
	assert.Equal(t, order.StatusCancelled, stored.Status())

	list, err := repo.ListByCustomer(ctx, "CUST-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "ORD-1", list[0].ID)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, order.ErrNotFound)
	missing, _ := order.New("ORD-9", "CUST-1", "", base, time.Hour)
	assert.ErrorIs(t, repo.Update(ctx, missing), order.ErrNotFound)
}

func TestPrescriptionRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewPrescriptionRepository()
	issued := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	p, err := prescription.New("RX-1", "CUST-1", "DOC-1", []prescription.Item{{MedicineID: "MED02", Quantity: 1}}, issued, 0)
	require.NoError(t, err)
	require.NoError(t, repo.Insert(ctx, p))
	assert.ErrorIs(t, repo.Insert(ctx, p), prescription.ErrConflict)

	require.NoError(t, p.Verify("DOC-1", issued.Add(time.Hour)))
	stored, _ := repo.Get(ctx, "RX-1")
	assert.False(t, stored.Verified)

	require.NoError(t, repo.Update(ctx, p))
	byPatient, err := repo.ListByPatient(ctx, "CUST-1")
	require.NoError(t, err)
	require.Len(t, byPatient, 1)
	assert.True(t, byPatient[0].Verified)

	none, _ := repo.ListByPatient(ctx, "CUST-2")
	assert.Empty(t, none)
	_, err = repo.Get(ctx, "RX-404")
	assert.ErrorIs(t, err, prescription.ErrNotFound)
}

func TestTransactionLog(t *testing.T) {
	ctx := context.Background()
	log := NewTransactionLog()
	tx := payment.Transaction{ID: "TXN-1", OrderID: "ORD-1", Amount: decimal.NewFromInt(10), Status: payment.StatusPending, Timestamp: time.Now()}

	require.NoError(t, log.Put(ctx, tx))
	tx.Status = payment.StatusSuccess
	require.NoError(t, log.Put(ctx, tx))

	got, err := log.Get(ctx, "TXN-1")
	require.NoError(t, err)
	assert.True(t, got.Succeeded())

	byOrder, _ := log.ListByOrder(ctx, "ORD-1")
	assert.Len(t, byOrder, 1)

	_, err = log.Get(ctx, "TXN-2")
	assert.ErrorIs(t, err, payment.ErrNotFound)
}

func TestAuditLogAndInbox(t *testing.T) {
	ctx := context.Background()
	audit := NewAuditLog(nil)
	require.NoError(t, audit.Record(ctx, "CUST-1", "Placed order ORD-1"))

	entries, err := audit.ListByUser(ctx, "CUST-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Placed order ORD-1", entries[0].Activity)

	inbox := NewInbox()
	require.NoError(t, inbox.Send(ctx, notification.Message{UserID: "CUST-1", Kind: notification.KindOrderPlaced, Body: "hi"}))
	msgs, _ := inbox.List(ctx, "CUST-1")
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi", msgs[0].Body)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.Error(t, inbox.Send(cancelled, notification.Message{UserID: "CUST-1"}))
}

func TestDirectory(t *testing.T) {
	ctx := context.Background()
	d := NewDirectory()
	require.NoError(t, d.AddCustomer(identity.Customer{User: identity.User{ID: "CUST-1", Name: "Ann"}}))
	require.NoError(t, d.AddPractitioner(identity.Practitioner{User: identity.User{ID: "DOC-1", Name: "Lee"}}))
	assert.ErrorIs(t, d.AddCustomer(identity.Customer{}), identity.ErrIDRequired)

	c, err := d.Customer(ctx, "CUST-1")
	require.NoError(t, err)
	assert.Equal(t, "Ann", c.Name)

	_, err = d.Practitioner(ctx, "CUST-1")
	assert.ErrorIs(t, err, identity.ErrNotFound)
}
