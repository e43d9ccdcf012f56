// Package prescription models the prescription gate: a prescription is issued unverified by a
// practitioner and only that practitioner (or a registered delegate) may verify it.
package prescription

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ValidityMonths is the default lifetime of a prescription, counted in calendar months.
const ValidityMonths = 6

// DefaultExpiry is issuedAt plus ValidityMonths calendar months. A day that does not exist in the
// target month is clamped to its last day, so Aug 31 expires on the last day of February.
func DefaultExpiry(issuedAt time.Time) time.Time {
	y, m, d := issuedAt.Date()
	target := time.Date(y, m+ValidityMonths, 1, 0, 0, 0, 0, issuedAt.Location())
	if last := daysIn(target.Year(), target.Month()); d > last {
		d = last
	}
	hh, mm, ss := issuedAt.Clock()
	return time.Date(target.Year(), target.Month(), d, hh, mm, ss, issuedAt.Nanosecond(), issuedAt.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

var (
	ErrNotFound               = errors.New("prescription: not found")
	ErrConflict               = errors.New("prescription: already exists")
	ErrUnauthorized           = errors.New("prescription: verifier is not the issuing practitioner")
	ErrAlreadyVerified        = errors.New("prescription: already verified")
	ErrInvalidStateTransition = errors.New("prescription: invalid state transition")
	ErrNoItems                = errors.New("prescription: at least one item is required")
	ErrInvalidItem            = errors.New("prescription: invalid item")
	ErrPatientRequired        = errors.New("prescription: patient id is required")
	ErrPractitionerRequired   = errors.New("prescription: practitioner id is required")
)

// Item is what a prescription allows for one medicine.
type Item struct {
	MedicineID   string
	Quantity     int
	Dosage       string
	Instructions string
}

type Prescription struct {
	ID             string
	PatientID      string
	PractitionerID string
	Items          map[string]Item
	IssuedAt       time.Time
	ExpiresAt      time.Time
	Verified       bool
	Status         Status
	VerifiedBy     string
	VerifiedAt     time.Time
	UpdatedAt      time.Time
}

// New issues a pending prescription. A non-positive validity means DefaultExpiry.
func New(id, patientID, practitionerID string, items []Item, issuedAt time.Time, validity time.Duration) (*Prescription, error) {
	if patientID == "" {
		return nil, ErrPatientRequired
	}
	if practitionerID == "" {
		return nil, ErrPractitionerRequired
	}
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	byMedicine := make(map[string]Item, len(items))
	for _, it := range items {
		it.MedicineID = strings.TrimSpace(it.MedicineID)
		if it.MedicineID == "" {
			return nil, fmt.Errorf("%w: medicine id is required", ErrInvalidItem)
		}
		if it.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity for %s must be greater than zero", ErrInvalidItem, it.MedicineID)
		}
		if _, dup := byMedicine[it.MedicineID]; dup {
			return nil, fmt.Errorf("%w: duplicate medicine %s", ErrInvalidItem, it.MedicineID)
		}
		byMedicine[it.MedicineID] = it
	}

	issuedAt = issuedAt.UTC()
	expiresAt := DefaultExpiry(issuedAt)
	if validity > 0 {
		expiresAt = issuedAt.Add(validity)
	}
	return &Prescription{
		ID:             id,
		PatientID:      patientID,
		PractitionerID: practitionerID,
		Items:          byMedicine,
		IssuedAt:       issuedAt,
		ExpiresAt:      expiresAt,
		Status:         StatusPending,
		UpdatedAt:      issuedAt,
	}, nil
}

// Verify marks the prescription verified. Only the issuing practitioner may call it.
func (p *Prescription) Verify(verifierID string, now time.Time) error {
	return p.verify(verifierID, verifierID, now)
}

// VerifyAsDelegate verifies on behalf of principalID, who must be the issuing practitioner.
// The caller is responsible for checking that delegateID may act for principalID.
func (p *Prescription) VerifyAsDelegate(delegateID, principalID string, now time.Time) error {
	return p.verify(delegateID, principalID, now)
}

func (p *Prescription) verify(actorID, principalID string, now time.Time) error {
	if principalID == "" || principalID != p.PractitionerID {
		return ErrUnauthorized
	}
	switch p.Status {
	case StatusVerified:
		return ErrAlreadyVerified
	case StatusPending:
	default:
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, p.Status, StatusVerified)
	}
	p.Status = StatusVerified
	p.Verified = true
	p.VerifiedBy = actorID
	p.VerifiedAt = now.UTC()
	p.UpdatedAt = p.VerifiedAt
	return nil
}

// Cancel withdraws a pending prescription. Only the issuing practitioner may cancel it.
func (p *Prescription) Cancel(practitionerID string, now time.Time) error {
	if practitionerID != p.PractitionerID {
		return ErrUnauthorized
	}
	if p.Status != StatusPending {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, p.Status, StatusCancelled)
	}
	p.Status = StatusCancelled
	p.UpdatedAt = now.UTC()
	return nil
}

// ExpireIfDue moves a pending prescription past its expiry date to Expired and reports whether it did.
func (p *Prescription) ExpireIfDue(now time.Time) bool {
	if p.Status != StatusPending || now.Before(p.ExpiresAt) {
		return false
	}
	p.Status = StatusExpired
	p.UpdatedAt = now.UTC()
	return true
}

func (p *Prescription) Covers(medicineID string) bool {
	_, ok := p.Items[medicineID]
	return ok
}

// Authorizes reports whether the prescription currently allows medicineID to be dispensed.
func (p *Prescription) Authorizes(medicineID string, now time.Time) bool {
	return p.Status == StatusVerified && now.Before(p.ExpiresAt) && p.Covers(medicineID)
}

// MedicineIDs returns the covered medicine ids in a stable order.
func (p *Prescription) MedicineIDs() []string {
	ids := make([]string, 0, len(p.Items))
	for id := range p.Items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (p *Prescription) Details() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Prescription ID: %s\n", p.ID)
	fmt.Fprintf(&b, "Patient ID: %s\n", p.PatientID)
	fmt.Fprintf(&b, "Practitioner ID: %s\n", p.PractitionerID)
	fmt.Fprintf(&b, "Issued: %s\n", p.IssuedAt.Format(time.DateOnly))
	fmt.Fprintf(&b, "Expires: %s\n", p.ExpiresAt.Format(time.DateOnly))
	fmt.Fprintf(&b, "Status: %s\n", p.Status.Description())
	b.WriteString("Medicines:\n")
	for _, id := range p.MedicineIDs() {
		it := p.Items[id]
		fmt.Fprintf(&b, "  - %s x%d %s %s\n", id, it.Quantity, it.Dosage, it.Instructions)
	}
	return b.String()
}

func (p *Prescription) Clone() *Prescription {
	if p == nil {
		return nil
	}
	clone := *p
	clone.Items = make(map[string]Item, len(p.Items))
	for k, v := range p.Items {
		clone.Items[k] = v
	}
	return &clone
}
