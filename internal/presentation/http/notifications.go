package httppresentation

import (
	"net/http"

	"github.com/Zhima-Mochi/medishop/internal/observability"
)

type drainResponse struct {
	Delivered int    `json:"delivered"`
	Error     string `json:"error,omitempty"`
}

// handleDrainNotifications delivers everything queued so far. Sender failures are reported but
// do not fail the request; the drained count stays accurate.
func (h *Handler) handleDrainNotifications(w http.ResponseWriter, r *http.Request) {
	n, err := h.Outbox.Drain(r.Context())
	out := drainResponse{Delivered: n}
	if err != nil {
		out.Error = err.Error()
		h.logger(r.Context()).Warn("notification_drain_partial",
			observability.F("delivered", n),
			observability.Err(err),
		)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.Inbox.List(r.Context(), r.PathValue("userID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageResponse{ID: m.ID, Kind: m.Kind, Body: m.Body, CreatedAt: m.CreatedAt})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleListAudit(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Audit.ListByUser(r.Context(), r.PathValue("userID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAuditResponses(entries))
}
