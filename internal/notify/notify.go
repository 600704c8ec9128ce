// Package notify delivers workflow notifications to an external sender.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Message is the template context handed to a sender after a transition.
type Message struct {
	ID           string    `json:"id"`
	EntityType   string    `json:"entity_type"`
	EntityID     string    `json:"entity_id"`
	ProjectID    string    `json:"project_id"`
	Action       string    `json:"action"`
	ActionLabel  string    `json:"action_label"`
	TargetStatus string    `json:"target_status"`
	StatusLabel  string    `json:"status_label"`
	InstigatorID string    `json:"instigator_id"`
	Object       string    `json:"object"`
	Recipients   []string  `json:"recipients"`
	CreatedAt    time.Time `json:"created_at"`
}

// Subject renders a one-line summary of the message.
func (m Message) Subject() string {
	return m.Object + ": " + m.ActionLabel + " (" + m.StatusLabel + ")"
}

// Notifier sends a message. Failures never affect the transition that caused it.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, msg Message) error

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, msg Message) error { return f(ctx, msg) }

var special = map[string]string{
	"inreview":   "In Review",
	"inapproval": "In Approval",
}

// Label turns a status or transition name into a human readable label.
func Label(name string) string {
	if l, ok := special[name]; ok {
		return l
	}
	return cases.Title(language.Und).String(strings.ReplaceAll(name, "_", " "))
}

// LogNotifier writes messages to the logger.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that only logs.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &LogNotifier{logger: logger}
}

// Notify logs the message.
func (n *LogNotifier) Notify(_ context.Context, msg Message) error {
	n.logger.Info("notification",
		"subject", msg.Subject(),
		"entity", msg.EntityType,
		"entity_id", msg.EntityID,
		"instigator", msg.InstigatorID,
		"recipients", msg.Recipients,
	)
	return nil
}

// Multi sends every message to each notifier in turn.
type Multi []Notifier

// Notify delivers to all notifiers and joins their errors.
func (m Multi) Notify(ctx context.Context, msg Message) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
