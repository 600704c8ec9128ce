package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rpggio/sciflow/internal/domain/activity"
)

const activityColumns = `id, entity_type, entity_id, project_id, actor_id, activity_type,
	transition, from_status, to_status, summary, details, created_at`

// ActivityRepository stores the append-only audit trail.
type ActivityRepository struct {
	q querier
}

// NewActivityRepository creates a new ActivityRepository
func NewActivityRepository(db *DB) *ActivityRepository {
	return &ActivityRepository{q: db.DB}
}

// Log appends entry and fills in its ID and timestamp.
func (r *ActivityRepository) Log(ctx context.Context, entry *activity.ActivityEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	result, err := r.q.ExecContext(ctx, `
		INSERT INTO activity_log (
			entity_type, entity_id, project_id, actor_id, activity_type,
			transition, from_status, to_status, summary, details, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.EntityType, entry.EntityID, entry.ProjectID, entry.ActorID, entry.ActivityType,
		entry.Transition, entry.FromStatus, entry.ToStatus, entry.Summary, entry.Details, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to log activity: %w", err)
	}
	if id, err := result.LastInsertId(); err == nil {
		entry.ID = id
	}
	return nil
}

// filter accumulates AND-ed conditions with their arguments.
type filter struct {
	conds []string
	args  []any
}

// eq adds "column = value" unless value is empty.
func (f *filter) eq(column, value string) {
	if value == "" {
		return
	}
	f.conds = append(f.conds, column+" = ?")
	f.args = append(f.args, value)
}

func (f *filter) where() string {
	if len(f.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(f.conds, " AND ")
}

// List returns entries matching opts, most recently logged first.
func (r *ActivityRepository) List(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
	var f filter
	f.eq("project_id", opts.ProjectID)
	f.eq("entity_type", opts.EntityType)
	f.eq("entity_id", opts.EntityID)
	f.eq("actor_id", opts.ActorID)
	if opts.ActivityType != nil {
		f.eq("activity_type", string(*opts.ActivityType))
	}

	query := "SELECT " + activityColumns + " FROM activity_log" + f.where() + " ORDER BY id DESC"
	args := f.args
	if opts.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, opts.Limit, max(opts.Offset, 0))
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	defer rows.Close()

	entries := []activity.ActivityEntry{}
	for rows.Next() {
		var e activity.ActivityEntry
		if err := rows.Scan(
			&e.ID, &e.EntityType, &e.EntityID, &e.ProjectID, &e.ActorID, &e.ActivityType,
			&e.Transition, &e.FromStatus, &e.ToStatus, &e.Summary, &e.Details, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan activity entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity rows: %w", err)
	}
	return entries, nil
}
