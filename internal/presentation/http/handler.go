package httppresentation

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/Zhima-Mochi/medishop/internal/application/fulfillment"
	appInventory "github.com/Zhima-Mochi/medishop/internal/application/inventory"
	appPayment "github.com/Zhima-Mochi/medishop/internal/application/payment"
	appPrescription "github.com/Zhima-Mochi/medishop/internal/application/prescription"
	"github.com/Zhima-Mochi/medishop/internal/domain/audit"
	"github.com/Zhima-Mochi/medishop/internal/domain/identity"
	"github.com/Zhima-Mochi/medishop/internal/domain/notification"
	domoutbox "github.com/Zhima-Mochi/medishop/internal/domain/outbox"
	"github.com/Zhima-Mochi/medishop/internal/observability"
	"github.com/Zhima-Mochi/medishop/internal/observability/logctx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	componentHTTPHandler = "http_server"
	tracerName           = "medishop.http"
	headerRequestID      = "X-Request-ID"
	headerTenantID       = "X-Tenant-ID"
)

// InboxReader lists notifications delivered to a user.
type InboxReader interface {
	List(ctx context.Context, userID string) ([]notification.Message, error)
}

// Deps are the services behind the routes. Every field is required.
type Deps struct {
	Orders        *fulfillment.Coordinator
	Inventory     *appInventory.Service
	Prescriptions *appPrescription.Gate
	Payments      *appPayment.Gateway
	Directory     identity.Directory
	Outbox        domoutbox.Drainer
	Inbox         InboxReader
	Audit         audit.Log
}

type Handler struct {
	Deps

	log            observability.Logger
	tracerProvider trace.TracerProvider
	httpRequests   observability.Counter   // http_requests_total{method,route,status}
	httpDuration   observability.Histogram // http_request_duration_seconds{method,route,status}
}

type Option func(*Handler)

// WithTracerProvider replaces the global provider for server spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(h *Handler) {
		if tp != nil {
			h.tracerProvider = tp
		}
	}
}

func NewHandler(deps Deps, tel observability.Observability, opts ...Option) *Handler {
	if tel == nil {
		tel = observability.Nop()
	}
	m := tel.Metrics()
	h := &Handler{
		Deps:           deps,
		log:            tel.Logger().With(observability.F("component", componentHTTPHandler)),
		tracerProvider: otel.GetTracerProvider(),
		httpRequests:   m.Counter(observability.MHTTPRequests),
		httpDuration:   m.Histogram(observability.MHTTPRequestDuration),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	h.muxHandle(mux, http.MethodPost, "/orders", h.handleCreateOrder)
	h.muxHandle(mux, http.MethodPost, "/orders/place", h.handlePlaceOrder)
	h.muxHandle(mux, http.MethodGet, "/orders/{id}", h.handleGetOrder)
	h.muxHandle(mux, http.MethodGet, "/orders/{id}/summary", h.handleOrderSummary)
	h.muxHandle(mux, http.MethodPost, "/orders/{id}/items", h.handleAddItem)
	h.muxHandle(mux, http.MethodPost, "/orders/{id}/checkout", h.handleCheckout)
	h.muxHandle(mux, http.MethodPost, "/orders/{id}/cancel", h.handleCancelOrder)
	h.muxHandle(mux, http.MethodPost, "/orders/{id}/ship", h.handleShipOrder)
	h.muxHandle(mux, http.MethodPost, "/orders/{id}/deliver", h.handleDeliverOrder)
	h.muxHandle(mux, http.MethodPost, "/orders/{id}/refund", h.handleRefundOrder)
	h.muxHandle(mux, http.MethodGet, "/customers/{id}/orders", h.handleListCustomerOrders)

	h.muxHandle(mux, http.MethodGet, "/medicines", h.handleListMedicines)
	h.muxHandle(mux, http.MethodPost, "/medicines", h.handleRegisterMedicine)
	h.muxHandle(mux, http.MethodGet, "/medicines/{id}", h.handleGetMedicine)
	h.muxHandle(mux, http.MethodPost, "/medicines/{id}/restock", h.handleRestock)
	h.muxHandle(mux, http.MethodPut, "/medicines/{id}/price", h.handleSetPrice)

	h.muxHandle(mux, http.MethodPost, "/prescriptions", h.handleIssuePrescription)
	h.muxHandle(mux, http.MethodPost, "/prescriptions/request", h.handleRequestPrescription)
	h.muxHandle(mux, http.MethodPost, "/prescriptions/expire", h.handleExpirePrescriptions)
	h.muxHandle(mux, http.MethodGet, "/prescriptions/{id}", h.handleGetPrescription)
	h.muxHandle(mux, http.MethodPost, "/prescriptions/{id}/verify", h.handleVerifyPrescription)
	h.muxHandle(mux, http.MethodPost, "/prescriptions/{id}/cancel", h.handleCancelPrescription)
	h.muxHandle(mux, http.MethodGet, "/customers/{id}/prescriptions", h.handleListPatientPrescriptions)
	h.muxHandle(mux, http.MethodPost, "/practitioners/{id}/delegates", h.handleAuthorizeDelegate)

	h.muxHandle(mux, http.MethodGet, "/transactions/{id}", h.handleGetTransaction)
	h.muxHandle(mux, http.MethodGet, "/transactions/{id}/receipt", h.handleReceipt)

	h.muxHandle(mux, http.MethodPost, "/notifications/drain", h.handleDrainNotifications)
	h.muxHandle(mux, http.MethodGet, "/notifications/{userID}", h.handleListNotifications)
	h.muxHandle(mux, http.MethodGet, "/audit/{userID}", h.handleListAudit)

	h.muxHandle(mux, http.MethodGet, "/health", h.handleHealth)

	return mux
}

// muxHandle registers a method-qualified pattern wrapped as
// Trace → Request Logger → Metrics → Access Log → Handler.
func (h *Handler) muxHandle(mux *http.ServeMux, method, path string, handler http.HandlerFunc) {
	pattern := method + " " + path
	chain := h.withTrace(
		RequestLoggerMiddleware(
			h.log,
			func(r *http.Request) string { return r.Header.Get(headerRequestID) },
			func(r *http.Request) string { return r.Header.Get(headerTenantID) },
		)(
			h.withHTTPMetrics(
				h.withAccessLog(handler),
			),
		),
	)

	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		chain.ServeHTTP(w, r.WithContext(contextWithRoute(r.Context(), pattern)))
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

// decodeOptionalJSON accepts an empty body as the zero value.
func decodeOptionalJSON(r *http.Request, dst any) error {
	if err := decodeJSON(r, dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func (h *Handler) logger(ctx context.Context) observability.Logger {
	return logctx.FromOr(ctx, h.log)
}
