package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	domain "github.com/Zhima-Mochi/medishop/internal/domain/prescription"
)

type PrescriptionRepository struct {
	mu            sync.RWMutex
	prescriptions map[string]*domain.Prescription
}

func NewPrescriptionRepository() *PrescriptionRepository {
	return &PrescriptionRepository{
		prescriptions: make(map[string]*domain.Prescription),
	}
}

func (r *PrescriptionRepository) Insert(ctx context.Context, p *domain.Prescription) error {
	_ = ctx
	if p == nil || p.ID == "" {
		return fmt.Errorf("prescription repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.prescriptions[p.ID]; exists {
		return domain.ErrConflict
	}
	r.prescriptions[p.ID] = p.Clone()
	return nil
}

func (r *PrescriptionRepository) Get(ctx context.Context, id string) (*domain.Prescription, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.prescriptions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p.Clone(), nil
}

func (r *PrescriptionRepository) Update(ctx context.Context, p *domain.Prescription) error {
	_ = ctx
	if p == nil || p.ID == "" {
		return fmt.Errorf("prescription repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.prescriptions[p.ID]; !exists {
		return domain.ErrNotFound
	}
	r.prescriptions[p.ID] = p.Clone()
	return nil
}

func (r *PrescriptionRepository) ListByPatient(ctx context.Context, patientID string) ([]*domain.Prescription, error) {
	return r.filter(ctx, func(p *domain.Prescription) bool { return p.PatientID == patientID })
}

func (r *PrescriptionRepository) List(ctx context.Context) ([]*domain.Prescription, error) {
	return r.filter(ctx, func(*domain.Prescription) bool { return true })
}

func (r *PrescriptionRepository) filter(ctx context.Context, keep func(*domain.Prescription) bool) ([]*domain.Prescription, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Prescription, 0)
	for _, p := range r.prescriptions {
		if keep(p) {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IssuedAt.Equal(out[j].IssuedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].IssuedAt.Before(out[j].IssuedAt)
	})
	return out, nil
}
