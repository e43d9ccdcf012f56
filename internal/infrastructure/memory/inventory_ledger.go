package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	domain "github.com/Zhima-Mochi/medishop/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

type stockEntry struct {
	mu  sync.Mutex
	med domain.Medicine
}

// InventoryLedger keeps one lock per medicine. The map lock only guards registration.
type InventoryLedger struct {
	mu      sync.RWMutex
	entries map[string]*stockEntry
}

func NewInventoryLedger() *InventoryLedger {
	return &InventoryLedger{
		entries: make(map[string]*stockEntry),
	}
}

func (l *InventoryLedger) entry(id string) (*stockEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	e, ok := l.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return e, nil
}

func (l *InventoryLedger) Register(ctx context.Context, m domain.Medicine) error {
	_ = ctx
	if err := m.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.entries[m.ID]; exists {
		return fmt.Errorf("%w: %s", domain.ErrConflict, m.ID)
	}
	l.entries[m.ID] = &stockEntry{med: m}
	return nil
}

func (l *InventoryLedger) Get(ctx context.Context, id string) (domain.Medicine, error) {
	_ = ctx
	e, err := l.entry(id)
	if err != nil {
		return domain.Medicine{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.med, nil
}

func (l *InventoryLedger) List(ctx context.Context) ([]domain.Medicine, error) {
	_ = ctx

	l.mu.RLock()
	entries := make([]*stockEntry, 0, len(l.entries))
	for _, e := range l.entries {
		entries = append(entries, e)
	}
	l.mu.RUnlock()

	out := make([]domain.Medicine, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.med)
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (l *InventoryLedger) CheckAvailable(ctx context.Context, id string, quantity int) (bool, error) {
	if quantity < 1 {
		return false, domain.ErrInvalidQuantity
	}
	m, err := l.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return m.Stock >= quantity, nil
}

func (l *InventoryLedger) Decrement(ctx context.Context, id string, quantity int) error {
	if quantity < 1 {
		return domain.ErrInvalidQuantity
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	e, err := l.entry(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.med.Stock < quantity {
		return &domain.OutOfStockError{MedicineID: id, Requested: quantity, Available: e.med.Stock}
	}
	e.med.Stock -= quantity
	return nil
}

func (l *InventoryLedger) Increment(ctx context.Context, id string, quantity int) error {
	_ = ctx
	if quantity < 1 {
		return domain.ErrInvalidQuantity
	}
	e, err := l.entry(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.med.Stock += quantity
	return nil
}

func (l *InventoryLedger) SetPrice(ctx context.Context, id string, price decimal.Decimal) error {
	_ = ctx
	if price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", domain.ErrInvalidMedicine)
	}
	e, err := l.entry(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.med.Price = price
	return nil
}
