package inventory

import (
	"context"
	"fmt"

	"github.com/Zhima-Mochi/medishop/internal/application"
	"github.com/Zhima-Mochi/medishop/internal/domain/audit"
	domain "github.com/Zhima-Mochi/medishop/internal/domain/inventory"
	"github.com/Zhima-Mochi/medishop/internal/observability"
	"github.com/shopspring/decimal"

	"go.opentelemetry.io/otel/attribute"
)

const (
	inventoryService = "inventory-service"

	useCaseRegister = "inventory.register"
	useCaseRestock  = "inventory.restock"
	useCaseReprice  = "inventory.reprice"
)

// Service fronts the stock ledger for catalogue management. Order placement talks to the
// ledger directly through the order aggregate.
type Service struct {
	ledger  domain.Ledger
	auditor audit.Recorder
	in      application.Instruments
}

func NewService(ledger domain.Ledger, auditor audit.Recorder, tel observability.Observability) *Service {
	return &Service{
		ledger:  ledger,
		auditor: auditor,
		in:      application.NewInstruments(tel, inventoryService),
	}
}

func (s *Service) Ledger() domain.Ledger { return s.ledger }

func (s *Service) Register(ctx context.Context, m domain.Medicine) (err error) {
	ctx, run := s.in.Begin(ctx, useCaseRegister, "RegisterMedicine",
		attribute.String("medicine.id", m.ID),
	)
	defer func() { run.End(err) }()

	if err = s.ledger.Register(ctx, m); err != nil {
		run.Fail("REGISTER_FAILED")
		return err
	}
	run.Annotate(observability.F("medicine_id", m.ID), observability.F("stock", m.Stock))
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Medicine, error) {
	return s.ledger.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]domain.Medicine, error) {
	return s.ledger.List(ctx)
}

func (s *Service) CheckAvailable(ctx context.Context, id string, quantity int) (bool, error) {
	return s.ledger.CheckAvailable(ctx, id, quantity)
}

// Restock returns quantity units to the shelf and records who did it.
func (s *Service) Restock(ctx context.Context, actorID, medicineID string, quantity int) (_ domain.Medicine, err error) {
	ctx, run := s.in.Begin(ctx, useCaseRestock, "Restock",
		attribute.String("medicine.id", medicineID),
		attribute.Int("inventory.quantity", quantity),
	)
	defer func() { run.End(err) }()

	if err = s.ledger.Increment(ctx, medicineID, quantity); err != nil {
		run.Fail("INCREMENT_FAILED")
		return domain.Medicine{}, err
	}

	m, err := s.ledger.Get(ctx, medicineID)
	if err != nil {
		run.Fail("RELOAD_FAILED")
		return domain.Medicine{}, err
	}
	run.Annotate(observability.F("medicine_id", medicineID), observability.F("stock", m.Stock))
	s.record(ctx, run, actorID, fmt.Sprintf("Restocked %s by %d", medicineID, quantity))
	return m, nil
}

// SetPrice changes the catalogue price. Items already on orders keep their captured price.
func (s *Service) SetPrice(ctx context.Context, actorID, medicineID string, price decimal.Decimal) (err error) {
	ctx, run := s.in.Begin(ctx, useCaseReprice, "SetPrice",
		attribute.String("medicine.id", medicineID),
		attribute.String("inventory.price", price.StringFixed(2)),
	)
	defer func() { run.End(err) }()

	if err = s.ledger.SetPrice(ctx, medicineID, price); err != nil {
		run.Fail("SET_PRICE_FAILED")
		return err
	}
	s.record(ctx, run, actorID, fmt.Sprintf("Set price of %s to %s", medicineID, price.StringFixed(2)))
	return nil
}

func (s *Service) record(ctx context.Context, run *application.Run, actorID, activity string) {
	if s.auditor == nil || actorID == "" {
		return
	}
	if err := s.auditor.Record(ctx, actorID, activity); err != nil {
		run.Status("AUDIT_FAILED")
		run.Logger().Warn("audit_record_failed", observability.Err(err))
	}
}
