// Package identity holds the caller identities the fulfillment core trusts.
// Authentication happens elsewhere; the core only needs to know who is acting.
package identity

import (
	"context"
	"errors"
)

var ErrIDRequired = errors.New("identity: user id is required")

type User struct {
	ID      string
	Name    string
	Email   string
	Contact string
}

func (u User) Validate() error {
	if u.ID == "" {
		return ErrIDRequired
	}
	return nil
}

// Customer is a User acting as a patient and buyer.
type Customer struct {
	User
	ShippingAddress string
	Premium         bool
}

// Practitioner is a User allowed to issue and verify prescriptions.
type Practitioner struct {
	User
	LicenseNumber  string
	Specialization string
}

var ErrNotFound = errors.New("identity: user not found")

// Directory resolves known users by id.
type Directory interface {
	Customer(ctx context.Context, id string) (Customer, error)
	Practitioner(ctx context.Context, id string) (Practitioner, error)
}
