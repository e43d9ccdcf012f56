package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

// Backend decides a single payment. It is asked exactly once per transaction.
// An error means the backend could not decide, not that the payment was declined.
type Backend interface {
	Authorize(ctx context.Context, orderID string, amount decimal.Decimal, method Method) (bool, error)
}

// TransactionLog stores transaction entries. Entries are updated in place by id and never deleted.
type TransactionLog interface {
	Put(ctx context.Context, tx Transaction) error
	Get(ctx context.Context, id string) (Transaction, error)
	ListByOrder(ctx context.Context, orderID string) ([]Transaction, error)
}
