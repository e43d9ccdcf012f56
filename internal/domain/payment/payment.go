package payment

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = errors.New("payment: transaction not found")
	ErrInvalidAmount     = errors.New("payment: amount must be greater than zero")
	ErrUnsupportedMethod = errors.New("payment: unsupported payment method")
	ErrOrderIDRequired   = errors.New("payment: order id is required")
	ErrPaymentFailed     = errors.New("payment: payment failed")
	ErrGateway           = errors.New("payment: gateway error")
)

// FailedError is returned when the backend declined the payment. The transaction was logged.
type FailedError struct {
	TransactionID string
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("payment: transaction %s failed", e.TransactionID)
}

func (e *FailedError) Is(target error) bool { return target == ErrPaymentFailed }

// GatewayError means the gateway itself misbehaved; it says nothing about the customer's payment.
type GatewayError struct {
	TransactionID string
	Err           error
}

func (e *GatewayError) Error() string {
	if e.TransactionID == "" {
		return fmt.Sprintf("payment: gateway error: %v", e.Err)
	}
	return fmt.Sprintf("payment: gateway error on transaction %s: %v", e.TransactionID, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

func (e *GatewayError) Is(target error) bool { return target == ErrGateway }

type Method string

const (
	MethodCreditCard Method = "CreditCard"
	MethodDebitCard  Method = "DebitCard"
	MethodNetBanking Method = "NetBanking"
)

func DefaultMethods() []Method {
	return []Method{MethodCreditCard, MethodDebitCard, MethodNetBanking}
}

// Transaction is one entry of the gateway's transaction log.
type Transaction struct {
	ID        string
	OrderID   string
	Amount    decimal.Decimal
	Method    Method
	Status    Status
	GatewayID string
	Timestamp time.Time
}

func (t Transaction) Succeeded() bool { return t.Status == StatusSuccess }
