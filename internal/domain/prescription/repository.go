package prescription

import "context"

type Repository interface {
	Insert(ctx context.Context, p *Prescription) error
	Get(ctx context.Context, id string) (*Prescription, error)
	Update(ctx context.Context, p *Prescription) error
	ListByPatient(ctx context.Context, patientID string) ([]*Prescription, error)
	List(ctx context.Context) ([]*Prescription, error)
}
