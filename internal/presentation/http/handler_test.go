package httppresentation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Zhima-Mochi/medishop/internal/application"
	"github.com/Zhima-Mochi/medishop/internal/application/fulfillment"
	appInventory "github.com/Zhima-Mochi/medishop/internal/application/inventory"
	appPayment "github.com/Zhima-Mochi/medishop/internal/application/payment"
	appPrescription "github.com/Zhima-Mochi/medishop/internal/application/prescription"
	"github.com/Zhima-Mochi/medishop/internal/domain/identity"
	"github.com/Zhima-Mochi/medishop/internal/domain/inventory"
	"github.com/Zhima-Mochi/medishop/internal/domain/order"
	"github.com/Zhima-Mochi/medishop/internal/domain/payment"
	"github.com/Zhima-Mochi/medishop/internal/domain/prescription"
	"github.com/Zhima-Mochi/medishop/internal/infrastructure/memory"
	infranotification "github.com/Zhima-Mochi/medishop/internal/infrastructure/notification"
	"github.com/Zhima-Mochi/medishop/internal/infrastructure/observability/obstest"
	"github.com/Zhima-Mochi/medishop/internal/infrastructure/outbox"
	workerpresentation "github.com/Zhima-Mochi/medishop/internal/presentation/worker"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

type server struct {
	router http.Handler
	kit    *obstest.Kit
	spans  *tracetest.SpanRecorder
	ledger *memory.InventoryLedger
}

func newServer(t *testing.T, backend payment.Backend) *server {
	t.Helper()
	ctx := context.Background()
	kit := obstest.New(t)

	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	t.Cleanup(func() { _ = tp.Shutdown(ctx) })

	ledger := memory.NewInventoryLedger()
	require.NoError(t, ledger.Register(ctx, inventory.Medicine{ID: "MED01", Name: "Paracetamol", Price: decimal.RequireFromString("5.00"), Stock: 100}))
	require.NoError(t, ledger.Register(ctx, inventory.Medicine{ID: "MED02", Name: "Amoxicillin", Price: decimal.RequireFromString("12.50"), Stock: 20, RequiresPrescription: true}))
	require.NoError(t, ledger.Register(ctx, inventory.Medicine{ID: "MED03", Name: "Ibuprofen", Price: decimal.RequireFromString("3.25"), Stock: 3}))

	dir := memory.NewDirectory()
	require.NoError(t, dir.AddCustomer(identity.Customer{User: identity.User{ID: "CUST-1", Name: "Alice"}, ShippingAddress: "1 Main St"}))
	require.NoError(t, dir.AddPractitioner(identity.Practitioner{User: identity.User{ID: "DOC-1", Name: "Lee"}}))
	require.NoError(t, dir.AddPractitioner(identity.Practitioner{User: identity.User{ID: "DOC-2", Name: "Kim"}}))

	bus := outbox.NewBus(kit.Obs.Logger())
	inbox := memory.NewInbox()
	workerpresentation.NewNotificationWorker(bus, kit.Obs, workerpresentation.NamedSender{Name: "inbox", Sender: inbox}).Start()

	notifier := infranotification.NewService(bus, kit.Obs.Logger())
	auditLog := memory.NewAuditLog(kit.Obs.Logger())
	gate := appPrescription.NewGate(memory.NewPrescriptionRepository(), notifier, auditLog, kit.Obs)
	gateway := appPayment.NewGateway(backend, memory.NewTransactionLog(), kit.Obs)
	coord := fulfillment.New(ledger, gate, gateway, memory.NewOrderRepository(), notifier, auditLog, kit.Obs,
		fulfillment.WithEvents(bus))

	h := NewHandler(Deps{
		Orders:        coord,
		Inventory:     appInventory.NewService(ledger, auditLog, kit.Obs),
		Prescriptions: gate,
		Payments:      gateway,
		Directory:     dir,
		Outbox:        bus,
		Inbox:         inbox,
		Audit:         auditLog,
	}, kit.Obs, WithTracerProvider(tp))

	return &server{router: h.Router(), kit: kit, spans: spans, ledger: ledger}
}

func (s *server) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (s *server) createOrder(t *testing.T) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/orders", map[string]string{"customer_id": "CUST-1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[orderResponse](t, rec).ID
}

func TestOrderHappyPath(t *testing.T) {
	s := newServer(t, appPayment.StaticBackend{Approve: true})

	id := s.createOrder(t)

	rec := s.do(t, http.MethodPost, "/orders/"+id+"/items", map[string]any{"medicine_id": "MED01", "quantity": 2})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	o := decode[orderResponse](t, rec)
	assert.Equal(t, "10.00", o.Total)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "5.00", o.Items[0].UnitPrice)

	rec = s.do(t, http.MethodPost, "/orders/"+id+"/checkout", map[string]string{"payment_method": "CreditCard"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	o = decode[orderResponse](t, rec)
	assert.Equal(t, order.StatusProcessing, o.Status)
	assert.Equal(t, order.PaymentPaid, o.PaymentStatus)
	assert.Equal(t, "1 Main St", o.ShippingAddress)
	require.NotEmpty(t, o.TransactionID)

	rec = s.do(t, http.MethodGet, "/transactions/"+o.TransactionID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	tx := decode[transactionWithVerification](t, rec)
	assert.True(t, tx.Verified)
	assert.Equal(t, "10.00", tx.Amount)
	assert.Equal(t, id, tx.OrderID)

	rec = s.do(t, http.MethodGet, "/transactions/"+o.TransactionID+"/receipt", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Payment Receipt")

	rec = s.do(t, http.MethodGet, "/orders/"+id+"/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Order #"+id)

	rec = s.do(t, http.MethodGet, "/medicines/MED01", nil)
	assert.Equal(t, 98, decode[medicineResponse](t, rec).Stock)

	rec = s.do(t, http.MethodPost, "/notifications/drain", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Positive(t, decode[drainResponse](t, rec).Delivered)

	rec = s.do(t, http.MethodGet, "/notifications/CUST-1", nil)
	msgs := decode[[]messageResponse](t, rec)
	require.NotEmpty(t, msgs)
	assert.Equal(t, "ORDER_PLACED", string(msgs[0].Kind))
	assert.Contains(t, msgs[0].Body, "Total: 10.00")

	rec = s.do(t, http.MethodGet, "/audit/CUST-1", nil)
	assert.NotEmpty(t, decode[[]auditResponse](t, rec))

	for _, step := range []string{"ship", "deliver"} {
		rec = s.do(t, http.MethodPost, "/orders/"+id+"/"+step, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	assert.Equal(t, order.StatusDelivered, decode[orderResponse](t, rec).Status)

	rec = s.do(t, http.MethodGet, "/customers/CUST-1/orders", nil)
	assert.Len(t, decode[[]orderResponse](t, rec), 1)
}

func TestDeclinedCheckoutReturnsOrder(t *testing.T) {
	s := newServer(t, appPayment.StaticBackend{Approve: false})
	id := s.createOrder(t)
	s.do(t, http.MethodPost, "/orders/"+id+"/items", map[string]any{"medicine_id": "MED01", "quantity": 1})

	rec := s.do(t, http.MethodPost, "/orders/"+id+"/checkout", map[string]string{"payment_method": "DebitCard"})
	require.Equal(t, http.StatusPaymentRequired, rec.Code)
	body := decode[errorResponse](t, rec)
	require.NotNil(t, body.Order)
	assert.Equal(t, order.StatusPaymentFailed, body.Order.Status)
	assert.Equal(t, order.PaymentFailed, body.Order.PaymentStatus)

	rec = s.do(t, http.MethodGet, "/transactions/"+body.Order.TransactionID, nil)
	assert.False(t, decode[transactionWithVerification](t, rec).Verified)
}

func TestGatewayFailureIsBadGateway(t *testing.T) {
	s := newServer(t, appPayment.StaticBackend{Err: errors.New("backend down")})
	id := s.createOrder(t)
	s.do(t, http.MethodPost, "/orders/"+id+"/items", map[string]any{"medicine_id": "MED01", "quantity": 1})

	rec := s.do(t, http.MethodPost, "/orders/"+id+"/checkout", map[string]string{"payment_method": "CreditCard"})
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, order.StatusError, decode[errorResponse](t, rec).Order.Status)
}

func TestPrescriptionFlow(t *testing.T) {
	s := newServer(t, appPayment.StaticBackend{Approve: true})
	id := s.createOrder(t)

	rec := s.do(t, http.MethodPost, "/orders/"+id+"/items", map[string]any{"medicine_id": "MED02", "quantity": 1})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/prescriptions", map[string]any{
		"patient_id":      "CUST-1",
		"practitioner_id": "DOC-1",
		"items":           []map[string]any{{"medicine_id": "MED02", "quantity": 1, "dosage": "500mg"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rx := decode[prescriptionResponse](t, rec)
	assert.Equal(t, prescription.StatusPending, rx.Status)

	rec = s.do(t, http.MethodPost, "/prescriptions/"+rx.ID+"/verify", map[string]string{"verifier_id": "DOC-2"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/prescriptions/"+rx.ID+"/verify", map[string]string{"verifier_id": "DOC-1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[prescriptionResponse](t, rec).Verified)

	rec = s.do(t, http.MethodPost, "/prescriptions/"+rx.ID+"/verify", map[string]string{"verifier_id": "DOC-1"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/orders/"+id+"/items", map[string]any{"medicine_id": "MED02", "quantity": 1})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/customers/CUST-1/prescriptions", nil)
	assert.Len(t, decode[[]prescriptionResponse](t, rec), 1)

	rec = s.do(t, http.MethodPost, "/prescriptions/expire", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[expireResponse](t, rec).Expired)
}

func TestPlaceOrderReportsItems(t *testing.T) {
	s := newServer(t, appPayment.StaticBackend{Approve: true})

	rec := s.do(t, http.MethodPost, "/orders/place", map[string]any{
		"customer_id":    "CUST-1",
		"payment_method": "NetBanking",
		"items": []map[string]any{
			{"medicine_id": "MED01", "quantity": 1},
			{"medicine_id": "MED03", "quantity": 5},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	out := decode[placeOrderResponse](t, rec)
	require.Len(t, out.Items, 2)
	assert.True(t, out.Items[0].Added)
	assert.False(t, out.Items[1].Added)
	assert.NotEmpty(t, out.Items[1].Error)
	assert.Equal(t, order.StatusProcessing, out.Order.Status)
	assert.Equal(t, "5.00", out.Order.Total)
}

func TestCancelWithRestock(t *testing.T) {
	s := newServer(t, appPayment.StaticBackend{Approve: true})
	id := s.createOrder(t)
	s.do(t, http.MethodPost, "/orders/"+id+"/items", map[string]any{"medicine_id": "MED03", "quantity": 3})

	rec := s.do(t, http.MethodPost, "/orders/"+id+"/items", map[string]any{"medicine_id": "MED03", "quantity": 1})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/orders/"+id+"/cancel", map[string]bool{"restock": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, order.StatusCancelled, decode[orderResponse](t, rec).Status)

	m, err := s.ledger.Get(context.Background(), "MED03")
	require.NoError(t, err)
	assert.Equal(t, 3, m.Stock)

	rec = s.do(t, http.MethodPost, "/orders/"+id+"/ship", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCatalogueRoutes(t *testing.T) {
	s := newServer(t, appPayment.StaticBackend{Approve: true})

	rec := s.do(t, http.MethodPost, "/medicines", map[string]any{"id": "MED09", "name": "Cetirizine", "price": "2.40", "stock": 10})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/medicines", map[string]any{"id": "MED09", "name": "Cetirizine", "price": "2.40", "stock": 10})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/medicines/MED09/restock", map[string]any{"actor_id": "ADMIN", "quantity": 5})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 15, decode[medicineResponse](t, rec).Stock)

	rec = s.do(t, http.MethodPut, "/medicines/MED09/price", map[string]any{"actor_id": "ADMIN", "price": "3.10"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "3.10", decode[medicineResponse](t, rec).Price)

	rec = s.do(t, http.MethodGet, "/medicines", nil)
	assert.Len(t, decode[[]medicineResponse](t, rec), 4)

	rec = s.do(t, http.MethodGet, "/medicines/NOPE", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestErrors(t *testing.T) {
	s := newServer(t, appPayment.StaticBackend{Approve: true})
	id := s.createOrder(t)

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"unknown customer", http.MethodPost, "/orders", map[string]string{"customer_id": "CUST-404"}, http.StatusNotFound},
		{"unknown field", http.MethodPost, "/orders", map[string]string{"customer": "CUST-1"}, http.StatusBadRequest},
		{"unknown order", http.MethodGet, "/orders/ORD-404", nil, http.StatusNotFound},
		{"zero quantity", http.MethodPost, "/orders/" + id + "/items", map[string]any{"medicine_id": "MED01", "quantity": 0}, http.StatusBadRequest},
		{"unknown medicine", http.MethodPost, "/orders/" + id + "/items", map[string]any{"medicine_id": "MED404", "quantity": 1}, http.StatusNotFound},
		{"empty checkout", http.MethodPost, "/orders/" + id + "/checkout", map[string]string{"payment_method": "CreditCard"}, http.StatusConflict},
		{"unknown transaction", http.MethodGet, "/transactions/TXN-404", nil, http.StatusNotFound},
		{"wrong method", http.MethodDelete, "/orders/" + id, nil, http.StatusMethodNotAllowed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := s.do(t, tc.method, tc.path, tc.body)
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
		})
	}

	s.do(t, http.MethodPost, "/orders/"+id+"/items", map[string]any{"medicine_id": "MED01", "quantity": 1})
	rec := s.do(t, http.MethodPost, "/orders/"+id+"/checkout", map[string]string{"payment_method": "Cash"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/orders/"+id, nil)
	assert.Equal(t, order.StatusPending, decode[orderResponse](t, rec).Status)
}

func TestMiddlewareChain(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	s := newServer(t, appPayment.StaticBackend{Approve: true})

	parent := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x0a, 0x0b},
		SpanID:     trace.SpanID{0x01},
		TraceFlags: trace.FlagsSampled,
	})
	traceparent := fmt.Sprintf("00-%s-%s-01", parent.TraceID(), parent.SpanID())

	rec := s.do(t, http.MethodPost, "/orders", map[string]string{"customer_id": "CUST-1"},
		headerRequestID, "req-42", "traceparent", traceparent)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "req-42", rec.Header().Get(headerRequestID))

	var serverSpan sdktrace.ReadOnlySpan
	for _, sp := range s.spans.Ended() {
		if sp.Name() == "POST /orders" {
			serverSpan = sp
		}
	}
	require.NotNil(t, serverSpan)
	assert.Equal(t, trace.SpanKindServer, serverSpan.SpanKind())
	assert.Equal(t, parent.TraceID(), serverSpan.SpanContext().TraceID())
	assert.Equal(t, parent.SpanID(), serverSpan.Parent().SpanID())

	access := s.kit.Logs.FilterMessage("http_access").All()
	require.Len(t, access, 1)
	fields := access[0].ContextMap()
	assert.Equal(t, "req-42", fields["request_id"])
	assert.Equal(t, parent.TraceID().String(), fields["trace_id"])
	assert.Equal(t, "POST /orders", fields["route"])

	assert.Equal(t, 1.0, s.kit.CounterValue(t, "http_requests_total",
		map[string]string{"method": "POST", "route": "POST /orders", "status": "201"}))

	rec = s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, "ok", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(headerRequestID))
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{application.Validation("bad"), http.StatusBadRequest},
		{fmt.Errorf("wrap: %w", order.ErrNotFound), http.StatusNotFound},
		{&inventory.OutOfStockError{MedicineID: "MED01"}, http.StatusConflict},
		{order.ErrPrescriptionRequired, http.StatusConflict},
		{order.ErrItemsLocked, http.StatusConflict},
		{fmt.Errorf("%w: %w", order.ErrInvalidStateTransition, order.ErrEmptyOrder), http.StatusConflict},
		{prescription.ErrUnauthorized, http.StatusForbidden},
		{&payment.FailedError{TransactionID: "TXN-1"}, http.StatusPaymentRequired},
		{&payment.GatewayError{Err: errors.New("timeout")}, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}
