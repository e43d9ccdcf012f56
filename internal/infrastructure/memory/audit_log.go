package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Zhima-Mochi/medishop/internal/domain/audit"
	"github.com/Zhima-Mochi/medishop/internal/observability"
	"github.com/Zhima-Mochi/medishop/internal/observability/logctx"
)

// AuditLog appends activity entries per user and mirrors each one to the log.
type AuditLog struct {
	mu      sync.RWMutex
	entries map[string][]audit.Entry
	log     observability.Logger
	now     func() time.Time
}

func NewAuditLog(logger observability.Logger) *AuditLog {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &AuditLog{
		entries: make(map[string][]audit.Entry),
		log:     logger.With(observability.F("component", "audit")),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (a *AuditLog) Record(ctx context.Context, userID, activity string) error {
	entry := audit.Entry{UserID: userID, Activity: activity, OccurredAt: a.now()}

	a.mu.Lock()
	a.entries[userID] = append(a.entries[userID], entry)
	a.mu.Unlock()

	logctx.FromOr(ctx, a.log).Info("audit_recorded",
		observability.F("user_id", userID),
		observability.F("activity", activity),
	)
	return nil
}

func (a *AuditLog) ListByUser(ctx context.Context, userID string) ([]audit.Entry, error) {
	_ = ctx

	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]audit.Entry, len(a.entries[userID]))
	copy(out, a.entries[userID])
	return out, nil
}
