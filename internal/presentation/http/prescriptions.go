package httppresentation

import (
	"net/http"
	"time"

	"github.com/Zhima-Mochi/medishop/internal/domain/prescription"
)

type issuePrescriptionRequest struct {
	PatientID      string                `json:"patient_id"`
	PractitionerID string                `json:"practitioner_id"`
	Items          []prescriptionItemDTO `json:"items"`
	IssuedAt       time.Time             `json:"issued_at"`
}

func (h *Handler) handleIssuePrescription(w http.ResponseWriter, r *http.Request) {
	var req issuePrescriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	patient, err := h.Directory.Customer(r.Context(), req.PatientID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	practitioner, err := h.Directory.Practitioner(r.Context(), req.PractitionerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	items := make([]prescription.Item, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, prescription.Item{
			MedicineID:   it.MedicineID,
			Quantity:     it.Quantity,
			Dosage:       it.Dosage,
			Instructions: it.Instructions,
		})
	}

	p, err := h.Prescriptions.Issue(r.Context(), patient, practitioner, items, req.IssuedAt)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPrescriptionResponse(p))
}

func (h *Handler) handleGetPrescription(w http.ResponseWriter, r *http.Request) {
	p, err := h.Prescriptions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPrescriptionResponse(p))
}

func (h *Handler) handleListPatientPrescriptions(w http.ResponseWriter, r *http.Request) {
	ps, err := h.Prescriptions.ListByPatient(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]prescriptionResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, toPrescriptionResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

type verifyPrescriptionRequest struct {
	VerifierID string `json:"verifier_id"`
}

func (h *Handler) handleVerifyPrescription(w http.ResponseWriter, r *http.Request) {
	var req verifyPrescriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	p, err := h.Prescriptions.Verify(r.Context(), r.PathValue("id"), req.VerifierID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPrescriptionResponse(p))
}

type practitionerRequest struct {
	PractitionerID string `json:"practitioner_id"`
}

func (h *Handler) handleCancelPrescription(w http.ResponseWriter, r *http.Request) {
	var req practitionerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	p, err := h.Prescriptions.Cancel(r.Context(), r.PathValue("id"), req.PractitionerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPrescriptionResponse(p))
}

type expireResponse struct {
	Expired int `json:"expired"`
}

func (h *Handler) handleExpirePrescriptions(w http.ResponseWriter, r *http.Request) {
	n, err := h.Prescriptions.ExpireDue(r.Context(), time.Now().UTC())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, expireResponse{Expired: n})
}

type requestPrescriptionRequest struct {
	PatientID      string `json:"patient_id"`
	PractitionerID string `json:"practitioner_id"`
}

func (h *Handler) handleRequestPrescription(w http.ResponseWriter, r *http.Request) {
	var req requestPrescriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	patient, err := h.Directory.Customer(r.Context(), req.PatientID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.Prescriptions.RequestPrescription(r.Context(), patient, req.PractitionerID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type delegateRequest struct {
	DelegateID string `json:"delegate_id"`
}

func (h *Handler) handleAuthorizeDelegate(w http.ResponseWriter, r *http.Request) {
	var req delegateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := h.Prescriptions.AuthorizeDelegate(r.Context(), r.PathValue("id"), req.DelegateID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
