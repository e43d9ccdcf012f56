// Package audit records who did what. Entries are append-only.
package audit

import (
	"context"
	"time"
)

type Entry struct {
	UserID     string
	Activity   string
	OccurredAt time.Time
}

// Recorder appends an activity for a user.
type Recorder interface {
	Record(ctx context.Context, userID, activity string) error
}

type Log interface {
	Recorder
	ListByUser(ctx context.Context, userID string) ([]Entry, error)
}
