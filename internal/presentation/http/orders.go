package httppresentation

import (
	"errors"
	"net/http"

	"github.com/Zhima-Mochi/medishop/internal/application/fulfillment"
	"github.com/Zhima-Mochi/medishop/internal/domain/order"
	"github.com/Zhima-Mochi/medishop/internal/domain/payment"
)

type createOrderRequest struct {
	CustomerID      string `json:"customer_id"`
	ShippingAddress string `json:"shipping_address"`
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	customer, err := h.Directory.Customer(r.Context(), req.CustomerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	o, err := h.Orders.CreateOrder(r.Context(), customer, req.ShippingAddress)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(o))
}

type placeOrderRequest struct {
	CustomerID         string           `json:"customer_id"`
	ShippingAddress    string           `json:"shipping_address"`
	Items              []addItemRequest `json:"items"`
	PaymentMethod      payment.Method   `json:"payment_method"`
	AbortOnItemFailure bool             `json:"abort_on_item_failure"`
}

type itemResultResponse struct {
	MedicineID string `json:"medicine_id"`
	Quantity   int    `json:"quantity"`
	Added      bool   `json:"added"`
	Error      string `json:"error,omitempty"`
}

type placeOrderResponse struct {
	Order *orderResponse       `json:"order"`
	Items []itemResultResponse `json:"items"`
	Error string               `json:"error,omitempty"`
}

func (h *Handler) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	customer, err := h.Directory.Customer(r.Context(), req.CustomerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	in := fulfillment.PlaceOrderInput{
		Customer:           customer,
		ShippingAddress:    req.ShippingAddress,
		PaymentMethod:      req.PaymentMethod,
		AbortOnItemFailure: req.AbortOnItemFailure,
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, fulfillment.ItemRequest{MedicineID: it.MedicineID, Quantity: it.Quantity})
	}

	res, err := h.Orders.PlaceOrder(r.Context(), in)
	if res == nil {
		writeDomainError(w, err)
		return
	}

	out := placeOrderResponse{Order: toOrderResponse(res.Order)}
	for _, it := range res.Items {
		ir := itemResultResponse{MedicineID: it.MedicineID, Quantity: it.Quantity, Added: it.Added()}
		if it.Err != nil {
			ir.Error = it.Err.Error()
		}
		out.Items = append(out.Items, ir)
	}

	status := http.StatusCreated
	if err != nil {
		out.Error = err.Error()
		status = statusFor(err)
	}
	writeJSON(w, status, out)
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.Orders.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) handleOrderSummary(w http.ResponseWriter, r *http.Request) {
	s, err := h.Orders.Summary(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeText(w, http.StatusOK, s.String())
}

func (h *Handler) handleListCustomerOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.Orders.ListByCustomer(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]*orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, out)
}

type addItemRequest struct {
	MedicineID string `json:"medicine_id"`
	Quantity   int    `json:"quantity"`
}

func (h *Handler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	o, err := h.Orders.AddItem(r.Context(), r.PathValue("id"), req.MedicineID, req.Quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

type checkoutRequest struct {
	PaymentMethod payment.Method `json:"payment_method"`
}

func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	o, err := h.Orders.Checkout(r.Context(), r.PathValue("id"), req.PaymentMethod)
	writeOrderOutcome(w, o, err)
}

// writeOrderOutcome keeps the settled order in the body when checkout ends in a decline or
// a gateway failure.
func writeOrderOutcome(w http.ResponseWriter, o *order.Order, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, toOrderResponse(o))
	case o != nil && (errors.Is(err, payment.ErrPaymentFailed) || errors.Is(err, payment.ErrGateway)):
		writeJSON(w, statusFor(err), errorResponse{Error: err.Error(), Order: toOrderResponse(o)})
	default:
		writeDomainError(w, err)
	}
}

type restockFlag struct {
	Restock bool `json:"restock"`
}

func (h *Handler) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	var req restockFlag
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	o, err := h.Orders.CancelOrder(r.Context(), r.PathValue("id"), req.Restock)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) handleShipOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.Orders.ShipOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) handleDeliverOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.Orders.DeliverOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) handleRefundOrder(w http.ResponseWriter, r *http.Request) {
	var req restockFlag
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	o, err := h.Orders.RefundOrder(r.Context(), r.PathValue("id"), req.Restock)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}
