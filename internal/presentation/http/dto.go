package httppresentation

import (
	"time"

	"github.com/Zhima-Mochi/medishop/internal/domain/audit"
	"github.com/Zhima-Mochi/medishop/internal/domain/inventory"
	"github.com/Zhima-Mochi/medishop/internal/domain/notification"
	"github.com/Zhima-Mochi/medishop/internal/domain/order"
	"github.com/Zhima-Mochi/medishop/internal/domain/payment"
	"github.com/Zhima-Mochi/medishop/internal/domain/prescription"
)

// Money leaves the API as a fixed two-decimal string.
type itemResponse struct {
	MedicineID   string `json:"medicine_id"`
	MedicineName string `json:"medicine_name"`
	Quantity     int    `json:"quantity"`
	UnitPrice    string `json:"unit_price"`
	Subtotal     string `json:"subtotal"`
}

type orderResponse struct {
	ID                  string              `json:"id"`
	CustomerID          string              `json:"customer_id"`
	ShippingAddress     string              `json:"shipping_address"`
	Items               []itemResponse      `json:"items"`
	Total               string              `json:"total"`
	Status              order.Status        `json:"status"`
	StatusDescription   string              `json:"status_description"`
	PaymentStatus       order.PaymentStatus `json:"payment_status"`
	TransactionID       string              `json:"transaction_id,omitempty"`
	FailureReason       string              `json:"failure_reason,omitempty"`
	CreatedAt           time.Time           `json:"created_at"`
	EstimatedCompletion time.Time           `json:"estimated_completion"`
}

func toOrderResponse(o *order.Order) *orderResponse {
	if o == nil {
		return nil
	}
	items := o.Items()
	out := &orderResponse{
		ID:                  o.ID,
		CustomerID:          o.CustomerID,
		ShippingAddress:     o.ShippingAddress,
		Items:               make([]itemResponse, 0, len(items)),
		Total:               o.Total().StringFixed(2),
		Status:              o.Status(),
		StatusDescription:   o.Status().Description(),
		PaymentStatus:       o.PaymentStatus(),
		TransactionID:       o.TransactionID(),
		FailureReason:       o.FailureReason(),
		CreatedAt:           o.CreatedAt,
		EstimatedCompletion: o.EstimatedCompletion,
	}
	for _, it := range items {
		out.Items = append(out.Items, itemResponse{
			MedicineID:   it.MedicineID,
			MedicineName: it.MedicineName,
			Quantity:     it.Quantity,
			UnitPrice:    it.UnitPrice.StringFixed(2),
			Subtotal:     it.Subtotal().StringFixed(2),
		})
	}
	return out
}

type medicineResponse struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	Description          string `json:"description,omitempty"`
	Manufacturer         string `json:"manufacturer,omitempty"`
	Category             string `json:"category,omitempty"`
	Price                string `json:"price"`
	Stock                int    `json:"stock"`
	RequiresPrescription bool   `json:"requires_prescription"`
}

func toMedicineResponse(m inventory.Medicine) medicineResponse {
	return medicineResponse{
		ID:                   m.ID,
		Name:                 m.Name,
		Description:          m.Description,
		Manufacturer:         m.Manufacturer,
		Category:             m.Category,
		Price:                m.Price.StringFixed(2),
		Stock:                m.Stock,
		RequiresPrescription: m.RequiresPrescription,
	}
}

type prescriptionItemDTO struct {
	MedicineID   string `json:"medicine_id"`
	Quantity     int    `json:"quantity"`
	Dosage       string `json:"dosage,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

type prescriptionResponse struct {
	ID                string                `json:"id"`
	PatientID         string                `json:"patient_id"`
	PractitionerID    string                `json:"practitioner_id"`
	Items             []prescriptionItemDTO `json:"items"`
	IssuedAt          time.Time             `json:"issued_at"`
	ExpiresAt         time.Time             `json:"expires_at"`
	Verified          bool                  `json:"verified"`
	Status            prescription.Status   `json:"status"`
	StatusDescription string                `json:"status_description"`
	VerifiedBy        string                `json:"verified_by,omitempty"`
	VerifiedAt        *time.Time            `json:"verified_at,omitempty"`
}

func toPrescriptionResponse(p *prescription.Prescription) prescriptionResponse {
	out := prescriptionResponse{
		ID:                p.ID,
		PatientID:         p.PatientID,
		PractitionerID:    p.PractitionerID,
		Items:             make([]prescriptionItemDTO, 0, len(p.Items)),
		IssuedAt:          p.IssuedAt,
		ExpiresAt:         p.ExpiresAt,
		Verified:          p.Verified,
		Status:            p.Status,
		StatusDescription: p.Status.Description(),
		VerifiedBy:        p.VerifiedBy,
	}
	if !p.VerifiedAt.IsZero() {
		at := p.VerifiedAt
		out.VerifiedAt = &at
	}
	for _, id := range p.MedicineIDs() {
		it := p.Items[id]
		out.Items = append(out.Items, prescriptionItemDTO{
			MedicineID:   id,
			Quantity:     it.Quantity,
			Dosage:       it.Dosage,
			Instructions: it.Instructions,
		})
	}
	return out
}

type transactionResponse struct {
	ID                string         `json:"id"`
	OrderID           string         `json:"order_id"`
	Amount            string         `json:"amount"`
	Method            payment.Method `json:"method"`
	Status            payment.Status `json:"status"`
	StatusDescription string         `json:"status_description"`
	GatewayID         string         `json:"gateway_id"`
	Timestamp         time.Time      `json:"timestamp"`
}

func toTransactionResponse(tx payment.Transaction) transactionResponse {
	return transactionResponse{
		ID:                tx.ID,
		OrderID:           tx.OrderID,
		Amount:            tx.Amount.StringFixed(2),
		Method:            tx.Method,
		Status:            tx.Status,
		StatusDescription: tx.Status.Description(),
		GatewayID:         tx.GatewayID,
		Timestamp:         tx.Timestamp,
	}
}

type messageResponse struct {
	ID        string            `json:"id"`
	Kind      notification.Kind `json:"kind"`
	Body      string            `json:"body"`
	CreatedAt time.Time         `json:"created_at"`
}

type auditResponse struct {
	UserID     string    `json:"user_id"`
	Activity   string    `json:"activity"`
	OccurredAt time.Time `json:"occurred_at"`
}

func toAuditResponses(entries []audit.Entry) []auditResponse {
	out := make([]auditResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, auditResponse{UserID: e.UserID, Activity: e.Activity, OccurredAt: e.OccurredAt})
	}
	return out
}
