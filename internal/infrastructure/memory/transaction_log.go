package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	domain "github.com/Zhima-Mochi/medishop/internal/domain/payment"
)

// TransactionLog keeps every payment attempt. Put overwrites by id; nothing is ever removed.
type TransactionLog struct {
	mu      sync.RWMutex
	entries map[string]domain.Transaction
}

func NewTransactionLog() *TransactionLog {
	return &TransactionLog{
		entries: make(map[string]domain.Transaction),
	}
}

func (l *TransactionLog) Put(ctx context.Context, tx domain.Transaction) error {
	_ = ctx
	if tx.ID == "" {
		return fmt.Errorf("transaction log: id is required")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[tx.ID] = tx
	return nil
}

func (l *TransactionLog) Get(ctx context.Context, id string) (domain.Transaction, error) {
	_ = ctx

	l.mu.RLock()
	defer l.mu.RUnlock()

	tx, ok := l.entries[id]
	if !ok {
		return domain.Transaction{}, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return tx, nil
}

func (l *TransactionLog) ListByOrder(ctx context.Context, orderID string) ([]domain.Transaction, error) {
	_ = ctx

	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []domain.Transaction
	for _, tx := range l.entries {
		if tx.OrderID == orderID {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}
