package memory

import (
	"context"
	"sync"

	"github.com/Zhima-Mochi/medishop/internal/domain/notification"
)

// Inbox is a notification.Sender that keeps delivered messages per user.
type Inbox struct {
	mu       sync.RWMutex
	messages map[string][]notification.Message
}

func NewInbox() *Inbox {
	return &Inbox{messages: make(map[string][]notification.Message)}
}

func (i *Inbox) Send(ctx context.Context, msg notification.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	i.messages[msg.UserID] = append(i.messages[msg.UserID], msg)
	return nil
}

func (i *Inbox) List(ctx context.Context, userID string) ([]notification.Message, error) {
	_ = ctx

	i.mu.RLock()
	defer i.mu.RUnlock()

	out := make([]notification.Message, len(i.messages[userID]))
	copy(out, i.messages[userID])
	return out, nil
}
