package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OutboxStore persists messages for an external mailer.
type OutboxStore interface {
	Enqueue(ctx context.Context, msg Message) error
}

// Outbox stores messages instead of sending them.
type Outbox struct {
	store OutboxStore
}

// NewOutbox returns a notifier backed by store.
func NewOutbox(store OutboxStore) *Outbox {
	return &Outbox{store: store}
}

// Notify enqueues the message. Messages without recipients are dropped.
func (o *Outbox) Notify(ctx context.Context, msg Message) error {
	if len(msg.Recipients) == 0 {
		return nil
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	if err := o.store.Enqueue(ctx, msg); err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}
	return nil
}
