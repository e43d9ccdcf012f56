package httppresentation

import (
	"errors"
	"net/http"

	"github.com/Zhima-Mochi/medishop/internal/application"
	"github.com/Zhima-Mochi/medishop/internal/domain/identity"
	"github.com/Zhima-Mochi/medishop/internal/domain/inventory"
	"github.com/Zhima-Mochi/medishop/internal/domain/order"
	"github.com/Zhima-Mochi/medishop/internal/domain/payment"
	"github.com/Zhima-Mochi/medishop/internal/domain/prescription"
)

type errorResponse struct {
	Error string         `json:"error"`
	Order *orderResponse `json:"order,omitempty"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err)
}

// statusFor maps the error contract of the application layer onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK

	case errors.Is(err, application.ErrValidation),
		errors.Is(err, identity.ErrIDRequired),
		errors.Is(err, order.ErrCustomerRequired),
		errors.Is(err, order.ErrInvalidQuantity),
		errors.Is(err, order.ErrInvalidMedicine),
		errors.Is(err, inventory.ErrInvalidQuantity),
		errors.Is(err, inventory.ErrInvalidMedicine),
		errors.Is(err, prescription.ErrNoItems),
		errors.Is(err, prescription.ErrInvalidItem),
		errors.Is(err, prescription.ErrPatientRequired),
		errors.Is(err, prescription.ErrPractitionerRequired),
		errors.Is(err, payment.ErrInvalidAmount),
		errors.Is(err, payment.ErrUnsupportedMethod),
		errors.Is(err, payment.ErrOrderIDRequired):
		return http.StatusBadRequest

	case errors.Is(err, prescription.ErrUnauthorized):
		return http.StatusForbidden

	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, inventory.ErrNotFound),
		errors.Is(err, prescription.ErrNotFound),
		errors.Is(err, payment.ErrNotFound),
		errors.Is(err, identity.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, inventory.ErrOutOfStock),
		errors.Is(err, inventory.ErrConflict),
		errors.Is(err, order.ErrPrescriptionRequired),
		errors.Is(err, order.ErrItemsLocked),
		errors.Is(err, order.ErrEmptyOrder),
		errors.Is(err, order.ErrInvalidStateTransition),
		errors.Is(err, order.ErrConflict),
		errors.Is(err, prescription.ErrAlreadyVerified),
		errors.Is(err, prescription.ErrInvalidStateTransition),
		errors.Is(err, prescription.ErrConflict):
		return http.StatusConflict

	case errors.Is(err, payment.ErrPaymentFailed):
		return http.StatusPaymentRequired
	case errors.Is(err, payment.ErrGateway):
		return http.StatusBadGateway

	default:
		return http.StatusInternalServerError
	}
}
