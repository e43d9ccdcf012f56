package notification

import (
	"context"
	"fmt"
	"time"

	domain "github.com/Zhima-Mochi/medishop/internal/domain/notification"
	domoutbox "github.com/Zhima-Mochi/medishop/internal/domain/outbox"
	"github.com/Zhima-Mochi/medishop/internal/observability"
	"github.com/Zhima-Mochi/medishop/internal/observability/logctx"
	"github.com/google/uuid"
)

// Service renders notifications and queues them on the outbox. Delivery happens when the
// outbox is drained.
type Service struct {
	publisher domoutbox.Publisher
	log       observability.Logger
	now       func() time.Time
	newID     func() string
}

func NewService(publisher domoutbox.Publisher, logger observability.Logger) *Service {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Service{
		publisher: publisher,
		log:       logger.With(observability.F("component", "notification")),
		now:       func() time.Time { return time.Now().UTC() },
		newID:     func() string { return "MSG-" + uuid.NewString() },
	}
}

func (s *Service) Notify(ctx context.Context, userID string, kind domain.Kind, params map[string]string) error {
	body, err := domain.Render(kind, params)
	if err != nil {
		return err
	}

	msg := domain.Message{
		ID:        s.newID(),
		UserID:    userID,
		Kind:      kind,
		Body:      body,
		Params:    copyParams(params),
		CreatedAt: s.now(),
	}
	if err := s.publisher.Publish(ctx, msg); err != nil {
		return fmt.Errorf("notification: enqueue %s: %w", kind, err)
	}

	logctx.FromOr(ctx, s.log).Debug("notification_enqueued",
		observability.F("message_id", msg.ID),
		observability.F("user_id", userID),
		observability.F("kind", string(kind)),
	)
	return nil
}

func copyParams(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
