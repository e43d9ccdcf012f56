package inventory

import (
	"context"

	"github.com/shopspring/decimal"
)

// Ledger owns per-medicine stock counters. Decrement is the only path that reduces stock.
// Implementations serialize mutations of the same medicine; different medicines are independent.
type Ledger interface {
	Register(ctx context.Context, m Medicine) error
	Get(ctx context.Context, medicineID string) (Medicine, error)
	List(ctx context.Context) ([]Medicine, error)
	CheckAvailable(ctx context.Context, medicineID string, quantity int) (bool, error)
	Decrement(ctx context.Context, medicineID string, quantity int) error
	Increment(ctx context.Context, medicineID string, quantity int) error
	SetPrice(ctx context.Context, medicineID string, price decimal.Decimal) error
}
