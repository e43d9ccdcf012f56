package httppresentation

import (
	"net/http"

	"github.com/Zhima-Mochi/medishop/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

func (h *Handler) handleListMedicines(w http.ResponseWriter, r *http.Request) {
	meds, err := h.Inventory.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]medicineResponse, 0, len(meds))
	for _, m := range meds {
		out = append(out, toMedicineResponse(m))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetMedicine(w http.ResponseWriter, r *http.Request) {
	m, err := h.Inventory.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMedicineResponse(m))
}

type registerMedicineRequest struct {
	ID                   string          `json:"id"`
	Name                 string          `json:"name"`
	Description          string          `json:"description"`
	Manufacturer         string          `json:"manufacturer"`
	Category             string          `json:"category"`
	Price                decimal.Decimal `json:"price"`
	Stock                int             `json:"stock"`
	RequiresPrescription bool            `json:"requires_prescription"`
}

func (h *Handler) handleRegisterMedicine(w http.ResponseWriter, r *http.Request) {
	var req registerMedicineRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	m, err := inventory.NewMedicine(req.ID, req.Name, req.Price, req.Stock, req.RequiresPrescription)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	m.Description = req.Description
	m.Manufacturer = req.Manufacturer
	m.Category = req.Category

	if err := h.Inventory.Register(r.Context(), *m); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMedicineResponse(*m))
}

type restockRequest struct {
	ActorID  string `json:"actor_id"`
	Quantity int    `json:"quantity"`
}

func (h *Handler) handleRestock(w http.ResponseWriter, r *http.Request) {
	var req restockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	m, err := h.Inventory.Restock(r.Context(), req.ActorID, r.PathValue("id"), req.Quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMedicineResponse(m))
}

type setPriceRequest struct {
	ActorID string          `json:"actor_id"`
	Price   decimal.Decimal `json:"price"`
}

func (h *Handler) handleSetPrice(w http.ResponseWriter, r *http.Request) {
	var req setPriceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	id := r.PathValue("id")
	if err := h.Inventory.SetPrice(r.Context(), req.ActorID, id, req.Price); err != nil {
		writeDomainError(w, err)
		return
	}
	m, err := h.Inventory.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMedicineResponse(m))
}
