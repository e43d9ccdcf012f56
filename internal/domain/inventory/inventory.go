package inventory

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound        = errors.New("inventory: medicine not found")
	ErrConflict        = errors.New("inventory: medicine already registered")
	ErrInvalidQuantity = errors.New("inventory: quantity must be greater than zero")
	ErrInvalidMedicine = errors.New("inventory: invalid medicine")
	ErrOutOfStock      = errors.New("inventory: out of stock")
)

// OutOfStockError reports a decrement that would have taken stock below zero.
type OutOfStockError struct {
	MedicineID string
	Requested  int
	Available  int
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("inventory: out of stock for %s: requested %d, available %d", e.MedicineID, e.Requested, e.Available)
}

func (e *OutOfStockError) Is(target error) bool { return target == ErrOutOfStock }

type Medicine struct {
	ID                   string
	Name                 string
	Description          string
	Manufacturer         string
	Category             string
	Price                decimal.Decimal
	Stock                int
	RequiresPrescription bool
}

func NewMedicine(id, name string, price decimal.Decimal, stock int, requiresPrescription bool) (*Medicine, error) {
	m := &Medicine{
		ID:                   strings.TrimSpace(id),
		Name:                 strings.TrimSpace(name),
		Price:                price,
		Stock:                stock,
		RequiresPrescription: requiresPrescription,
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Medicine) Validate() error {
	switch {
	case m == nil:
		return fmt.Errorf("%w: nil", ErrInvalidMedicine)
	case m.ID == "":
		return fmt.Errorf("%w: id is required", ErrInvalidMedicine)
	case m.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidMedicine)
	case m.Price.IsNegative():
		return fmt.Errorf("%w: price must not be negative", ErrInvalidMedicine)
	case m.Stock < 0:
		return fmt.Errorf("%w: stock must not be negative", ErrInvalidMedicine)
	}
	return nil
}

func (m *Medicine) Details() string {
	return fmt.Sprintf("ID: %s, Name: %s, Price: %s, Stock: %d, Requires Prescription: %t",
		m.ID, m.Name, m.Price.StringFixed(2), m.Stock, m.RequiresPrescription)
}
