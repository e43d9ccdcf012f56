package prescription

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Zhima-Mochi/medishop/internal/application"
	"github.com/Zhima-Mochi/medishop/internal/domain/audit"
	"github.com/Zhima-Mochi/medishop/internal/domain/identity"
	"github.com/Zhima-Mochi/medishop/internal/domain/notification"
	domain "github.com/Zhima-Mochi/medishop/internal/domain/prescription"
	"github.com/Zhima-Mochi/medishop/internal/observability"
	"github.com/google/uuid"

	"go.opentelemetry.io/otel/attribute"
)

const (
	gateService = "prescription-gate"

	useCaseIssue   = "prescription.issue"
	useCaseVerify  = "prescription.verify"
	useCaseCancel  = "prescription.cancel"
	useCaseExpire  = "prescription.expire"
	useCaseRequest = "prescription.request"
)

// Gate issues and verifies prescriptions and answers the authorization question the order
// aggregate asks before dispensing a prescription-only medicine.
type Gate struct {
	repo     domain.Repository
	notifier notification.Notifier
	auditor  audit.Recorder
	in       application.Instruments

	validity time.Duration
	now      func() time.Time
	newID    func() string

	// mu serializes read-modify-write cycles on prescriptions.
	mu        sync.Mutex
	delegates map[string]map[string]struct{}
}

type Option func(*Gate)

// WithClock replaces the gate clock used for issue dates, verification and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// WithValidity sets a fixed lifetime. Without it prescriptions expire after domain.ValidityMonths
// calendar months.
func WithValidity(d time.Duration) Option {
	return func(g *Gate) {
		if d > 0 {
			g.validity = d
		}
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(g *Gate) { g.newID = newID }
}

func NewGate(repo domain.Repository, notifier notification.Notifier, auditor audit.Recorder, tel observability.Observability, opts ...Option) *Gate {
	g := &Gate{
		repo:      repo,
		notifier:  notifier,
		auditor:   auditor,
		in:        application.NewInstruments(tel, gateService),
		now:       func() time.Time { return time.Now().UTC() },
		newID:     func() string { return "RX-" + uuid.NewString() },
		delegates: make(map[string]map[string]struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Issue creates a pending prescription. A zero issuedAt means now.
func (g *Gate) Issue(ctx context.Context, patient identity.Customer, practitioner identity.Practitioner, items []domain.Item, issuedAt time.Time) (_ *domain.Prescription, err error) {
	ctx, run := g.in.Begin(ctx, useCaseIssue, "IssuePrescription",
		attribute.String("prescription.patient_id", patient.ID),
		attribute.String("prescription.practitioner_id", practitioner.ID),
		attribute.Int("prescription.items", len(items)),
	)
	defer func() { run.End(err) }()

	if issuedAt.IsZero() {
		issuedAt = g.now()
	}
	p, err := domain.New(g.newID(), patient.ID, practitioner.ID, items, issuedAt, g.validity)
	if err != nil {
		run.Fail("INVALID_PRESCRIPTION")
		return nil, fmt.Errorf("%w: %w", application.ErrValidation, err)
	}
	if err = g.repo.Insert(ctx, p); err != nil {
		run.Fail("REPO_INSERT_FAILED")
		return nil, err
	}
	run.Annotate(observability.F("prescription_id", p.ID))
	run.Event("prescription.issued", attribute.String("prescription.id", p.ID))

	g.notify(ctx, run, patient.ID, notification.KindPrescriptionIssued, map[string]string{
		"practitionerName": practitioner.Name,
		"prescriptionId":   p.ID,
	})
	g.record(ctx, run, practitioner.ID, fmt.Sprintf("Issued prescription %s for patient %s", p.ID, patient.ID))
	return p.Clone(), nil
}

// AuthorizeDelegate lets delegateID verify prescriptions issued by practitionerID.
func (g *Gate) AuthorizeDelegate(ctx context.Context, practitionerID, delegateID string) error {
	if practitionerID == "" || delegateID == "" {
		return application.Validation("practitioner and delegate ids are required")
	}
	g.mu.Lock()
	set, ok := g.delegates[practitionerID]
	if !ok {
		set = make(map[string]struct{})
		g.delegates[practitionerID] = set
	}
	set[delegateID] = struct{}{}
	g.mu.Unlock()

	g.in.Logger().Info("delegate_authorized",
		observability.F("practitioner_id", practitionerID),
		observability.F("delegate_id", delegateID),
	)
	if g.auditor != nil {
		return g.auditor.Record(ctx, practitionerID, fmt.Sprintf("Authorized %s to verify prescriptions", delegateID))
	}
	return nil
}

func (g *Gate) isDelegateLocked(practitionerID, delegateID string) bool {
	_, ok := g.delegates[practitionerID][delegateID]
	return ok
}

// Verify marks a prescription verified. Only the issuing practitioner or one of their delegates may do it.
func (g *Gate) Verify(ctx context.Context, prescriptionID, verifierID string) (_ *domain.Prescription, err error) {
	ctx, run := g.in.Begin(ctx, useCaseVerify, "VerifyPrescription",
		attribute.String("prescription.id", prescriptionID),
		attribute.String("prescription.verifier_id", verifierID),
	)
	defer func() { run.End(err) }()

	g.mu.Lock()
	p, err := g.repo.Get(ctx, prescriptionID)
	if err != nil {
		g.mu.Unlock()
		run.Fail("PRESCRIPTION_LOAD_FAILED")
		return nil, err
	}
	if verifierID != p.PractitionerID && g.isDelegateLocked(p.PractitionerID, verifierID) {
		err = p.VerifyAsDelegate(verifierID, p.PractitionerID, g.now())
	} else {
		err = p.Verify(verifierID, g.now())
	}
	if err == nil {
		err = g.repo.Update(ctx, p)
	}
	g.mu.Unlock()
	if err != nil {
		run.Fail(verifyStatus(err))
		return nil, err
	}

	run.Annotate(observability.F("prescription_id", p.ID), observability.F("verified_by", verifierID))
	g.notify(ctx, run, p.PatientID, notification.KindPrescriptionVerified, map[string]string{
		"prescriptionId": p.ID,
	})
	g.record(ctx, run, verifierID, fmt.Sprintf("Verified prescription %s", p.ID))
	return p, nil
}

func verifyStatus(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return "UNAUTHORIZED"
	case errors.Is(err, domain.ErrAlreadyVerified):
		return "ALREADY_VERIFIED"
	case errors.Is(err, domain.ErrInvalidStateTransition):
		return "INVALID_STATE"
	default:
		return "VERIFY_FAILED"
	}
}

func (g *Gate) Cancel(ctx context.Context, prescriptionID, practitionerID string) (_ *domain.Prescription, err error) {
	ctx, run := g.in.Begin(ctx, useCaseCancel, "CancelPrescription",
		attribute.String("prescription.id", prescriptionID),
	)
	defer func() { run.End(err) }()

	g.mu.Lock()
	defer g.mu.Unlock()

	p, err := g.repo.Get(ctx, prescriptionID)
	if err != nil {
		run.Fail("PRESCRIPTION_LOAD_FAILED")
		return nil, err
	}
	if err = p.Cancel(practitionerID, g.now()); err != nil {
		run.Fail(verifyStatus(err))
		return nil, err
	}
	if err = g.repo.Update(ctx, p); err != nil {
		run.Fail("REPO_UPDATE_FAILED")
		return nil, err
	}
	g.record(ctx, run, practitionerID, fmt.Sprintf("Cancelled prescription %s", p.ID))
	return p, nil
}

// ExpireDue moves every pending prescription past its expiry to Expired and returns how many moved.
// A zero now means the gate clock.
func (g *Gate) ExpireDue(ctx context.Context, now time.Time) (expired int, err error) {
	ctx, run := g.in.Begin(ctx, useCaseExpire, "ExpirePrescriptions")
	defer func() {
		run.Annotate(observability.F("expired", expired))
		run.End(err)
	}()

	if now.IsZero() {
		now = g.now()
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	all, err := g.repo.List(ctx)
	if err != nil {
		run.Fail("REPO_LIST_FAILED")
		return 0, err
	}
	for _, p := range all {
		if !p.ExpireIfDue(now) {
			continue
		}
		if err = g.repo.Update(ctx, p); err != nil {
			run.Fail("REPO_UPDATE_FAILED")
			return expired, err
		}
		expired++
	}
	return expired, nil
}

// IsAuthorized reports whether the patient holds a verified, unexpired prescription covering the medicine.
func (g *Gate) IsAuthorized(ctx context.Context, patientID, medicineID string) (bool, error) {
	list, err := g.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return false, err
	}
	now := g.now()
	for _, p := range list {
		if p.Authorizes(medicineID, now) {
			return true, nil
		}
	}
	return false, nil
}

func (g *Gate) Get(ctx context.Context, id string) (*domain.Prescription, error) {
	return g.repo.Get(ctx, id)
}

func (g *Gate) ListByPatient(ctx context.Context, patientID string) ([]*domain.Prescription, error) {
	return g.repo.ListByPatient(ctx, patientID)
}

// RequestPrescription asks a practitioner to issue a prescription for the patient.
func (g *Gate) RequestPrescription(ctx context.Context, patient identity.Customer, practitionerID string) (err error) {
	ctx, run := g.in.Begin(ctx, useCaseRequest, "RequestPrescription",
		attribute.String("prescription.patient_id", patient.ID),
		attribute.String("prescription.practitioner_id", practitionerID),
	)
	defer func() { run.End(err) }()

	if patient.ID == "" || practitionerID == "" {
		run.Fail("VALIDATION_FAILED")
		return application.Validation("patient and practitioner ids are required")
	}
	contact := patient.Contact
	if contact == "" {
		contact = patient.Email
	}
	g.notify(ctx, run, practitionerID, notification.KindPrescriptionRequest, map[string]string{
		"patientName":    patient.Name,
		"patientContact": contact,
	})
	g.record(ctx, run, patient.ID, fmt.Sprintf("Requested prescription from %s", practitionerID))
	return nil
}

func (g *Gate) notify(ctx context.Context, run *application.Run, userID string, kind notification.Kind, params map[string]string) {
	if g.notifier == nil {
		return
	}
	if err := g.notifier.Notify(ctx, userID, kind, params); err != nil {
		run.Status("NOTIFY_FAILED")
		run.Logger().Warn("notification_failed",
			observability.F("kind", string(kind)),
			observability.Err(err),
		)
	}
}

func (g *Gate) record(ctx context.Context, run *application.Run, userID, activity string) {
	if g.auditor == nil {
		return
	}
	if err := g.auditor.Record(ctx, userID, activity); err != nil {
		run.Status("AUDIT_FAILED")
		run.Logger().Warn("audit_record_failed", observability.Err(err))
	}
}
