package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/Zhima-Mochi/medishop/internal/domain/identity"
)

type Directory struct {
	mu            sync.RWMutex
	customers     map[string]identity.Customer
	practitioners map[string]identity.Practitioner
}

func NewDirectory() *Directory {
	return &Directory{
		customers:     make(map[string]identity.Customer),
		practitioners: make(map[string]identity.Practitioner),
	}
}

func (d *Directory) AddCustomer(c identity.Customer) error {
	if err := c.Validate(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.customers[c.ID] = c
	return nil
}

func (d *Directory) AddPractitioner(p identity.Practitioner) error {
	if err := p.Validate(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.practitioners[p.ID] = p
	return nil
}

func (d *Directory) Customer(ctx context.Context, id string) (identity.Customer, error) {
	_ = ctx
	d.mu.RLock()
	defer d.mu.RUnlock()

	c, ok := d.customers[id]
	if !ok {
		return identity.Customer{}, fmt.Errorf("%w: customer %s", identity.ErrNotFound, id)
	}
	return c, nil
}

func (d *Directory) Practitioner(ctx context.Context, id string) (identity.Practitioner, error) {
	_ = ctx
	d.mu.RLock()
	defer d.mu.RUnlock()

	p, ok := d.practitioners[id]
	if !ok {
		return identity.Practitioner{}, fmt.Errorf("%w: practitioner %s", identity.ErrNotFound, id)
	}
	return p, nil
}
