package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rpggio/sciflow/internal/notify"
)

// NotificationRepository is the SQLite notification outbox
type NotificationRepository struct {
	q querier
}

// NewNotificationRepository creates a new NotificationRepository
func NewNotificationRepository(db *DB) *NotificationRepository {
	return &NotificationRepository{q: db.DB}
}

// Enqueue stores a message for later delivery
func (r *NotificationRepository) Enqueue(ctx context.Context, msg notify.Message) error {
	recipients, err := json.Marshal(msg.Recipients)
	if err != nil {
		return fmt.Errorf("failed to encode recipients: %w", err)
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	_, err = r.q.ExecContext(ctx, `
		INSERT INTO notifications (
			id, entity_type, entity_id, project_id, action, target_status,
			instigator_id, subject, recipients, payload, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		msg.ID,
		msg.EntityType,
		msg.EntityID,
		msg.ProjectID,
		msg.Action,
		msg.TargetStatus,
		msg.InstigatorID,
		msg.Subject(),
		string(recipients),
		string(payload),
		msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue notification: %w", err)
	}
	return nil
}

// Pending returns unsent messages, oldest first
func (r *NotificationRepository) Pending(ctx context.Context, limit int) ([]notify.Message, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.q.QueryContext(ctx,
		`SELECT payload FROM notifications WHERE sent_at IS NULL ORDER BY created_at, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	msgs := []notify.Message{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		var msg notify.Message
		if err := json.Unmarshal([]byte(payload), &msg); err != nil {
			return nil, fmt.Errorf("failed to decode notification: %w", err)
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notification rows: %w", err)
	}
	return msgs, nil
}

// MarkSent records delivery of a message
func (r *NotificationRepository) MarkSent(ctx context.Context, id string) error {
	_, err := r.q.ExecContext(ctx, `UPDATE notifications SET sent_at = ? WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}
	return nil
}
