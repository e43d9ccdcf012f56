package httppresentation

import "net/http"

type transactionWithVerification struct {
	transactionResponse
	Verified bool `json:"verified"`
}

func (h *Handler) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	tx, err := h.Payments.Transaction(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	verified, err := h.Payments.VerifyTransaction(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, transactionWithVerification{
		transactionResponse: toTransactionResponse(tx),
		Verified:            verified,
	})
}

func (h *Handler) handleReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.Payments.GenerateReceipt(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeText(w, http.StatusOK, receipt)
}
