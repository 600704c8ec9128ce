package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rpggio/sciflow/internal/domain/project"
	"github.com/rpggio/sciflow/internal/repository"
)

// ProjectRepository implements project.Repository for SQLite
type ProjectRepository struct {
	q querier
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *DB) *ProjectRepository {
	return &ProjectRepository{q: db.DB}
}

const projectColumns = `
	id, kind, year, number, title, status, owner_id, data_custodian_id, site_custodian_id,
	concept_plan_id, project_plan_id, progress_report_id, closure_id, student_report_id,
	version, created_at, modified_at`

// Create creates a new project
func (r *ProjectRepository) Create(ctx context.Context, proj *project.Project) error {
	now := time.Now().UTC()
	if proj.CreatedAt.IsZero() {
		proj.CreatedAt = now
	}
	if proj.ModifiedAt.IsZero() {
		proj.ModifiedAt = proj.CreatedAt
	}
	if proj.Version == 0 {
		proj.Version = 1
	}

	query := `INSERT INTO projects (` + projectColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.q.ExecContext(ctx, query,
		proj.ID,
		proj.Kind,
		proj.Year,
		proj.Number,
		proj.Title,
		proj.Status,
		proj.OwnerID,
		proj.DataCustodianID,
		proj.SiteCustodianID,
		proj.Documents.ConceptPlanID,
		proj.Documents.ProjectPlanID,
		proj.Documents.ProgressReportID,
		proj.Documents.ClosureID,
		proj.Documents.StudentReportID,
		proj.Version,
		proj.CreatedAt,
		proj.ModifiedAt,
	)
	if err != nil {
		if e := classify(err); e != nil {
			return e
		}
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(row scanner) (*project.Project, error) {
	var p project.Project
	err := row.Scan(
		&p.ID,
		&p.Kind,
		&p.Year,
		&p.Number,
		&p.Title,
		&p.Status,
		&p.OwnerID,
		&p.DataCustodianID,
		&p.SiteCustodianID,
		&p.Documents.ConceptPlanID,
		&p.Documents.ProjectPlanID,
		&p.Documents.ProgressReportID,
		&p.Documents.ClosureID,
		&p.Documents.StudentReportID,
		&p.Version,
		&p.CreatedAt,
		&p.ModifiedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Get retrieves a project and its team by ID
func (r *ProjectRepository) Get(ctx context.Context, id string) (*project.Project, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	return r.load(ctx, row)
}

// GetByNumber retrieves a project by its (year, number) identity
func (r *ProjectRepository) GetByNumber(ctx context.Context, year, number int) (*project.Project, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE year = ? AND number = ?`, year, number)
	return r.load(ctx, row)
}

func (r *ProjectRepository) load(ctx context.Context, row *sql.Row) (*project.Project, error) {
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	members, err := r.ListMembers(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	p.Members = members
	return p, nil
}

// NextNumber returns the next free sequence number for year
func (r *ProjectRepository) NextNumber(ctx context.Context, year int) (int, error) {
	var next int
	err := r.q.QueryRowContext(ctx, `SELECT COALESCE(MAX(number), 0) + 1 FROM projects WHERE year = ?`, year).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate project number: %w", err)
	}
	return next, nil
}

// List returns project summaries matching the given filters
func (r *ProjectRepository) List(ctx context.Context, opts project.ListOptions) ([]project.Summary, error) {
	query := `SELECT id, kind, year, number, title, status, owner_id, version, modified_at FROM projects`
	var (
		conditions []string
		args       []any
	)
	if len(opts.Statuses) > 0 {
		conditions = append(conditions, "status IN ("+placeholders(len(opts.Statuses))+")")
		for _, s := range opts.Statuses {
			args = append(args, s)
		}
	}
	if len(opts.Kinds) > 0 {
		conditions = append(conditions, "kind IN ("+placeholders(len(opts.Kinds))+")")
		for _, k := range opts.Kinds {
			args = append(args, k)
		}
	}
	if opts.Year > 0 {
		conditions = append(conditions, "year = ?")
		args = append(args, opts.Year)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY year DESC, number DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
		if opts.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, opts.Offset)
		}
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	summaries := []project.Summary{}
	for rows.Next() {
		var s project.Summary
		if err := rows.Scan(&s.ID, &s.Kind, &s.Year, &s.Number, &s.Title, &s.Status, &s.OwnerID, &s.Version, &s.ModifiedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		s.Code = (&project.Project{Kind: s.Kind, Year: s.Year, Number: s.Number}).Code()
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating project rows: %w", err)
	}
	return summaries, nil
}

// UpdateStatus writes a status change only if the stored status and version
// still match, and returns the new version.
func (r *ProjectRepository) UpdateStatus(ctx context.Context, change project.StatusChange) (int64, error) {
	result, err := r.q.ExecContext(ctx, `
		UPDATE projects
		SET status = ?, version = version + 1, modified_at = ?
		WHERE id = ? AND status = ? AND version = ?
	`, change.To, time.Now().UTC(), change.ID, change.From, change.Version)
	if err != nil {
		return 0, fmt.Errorf("failed to update project status: %w", err)
	}
	if err := r.checkSwapped(ctx, result, change.ID); err != nil {
		return 0, err
	}
	return change.Version + 1, nil
}

// UpdateDetails updates editable attributes with optimistic concurrency control
func (r *ProjectRepository) UpdateDetails(ctx context.Context, proj *project.Project, expectedVersion int64) (int64, error) {
	now := time.Now().UTC()
	result, err := r.q.ExecContext(ctx, `
		UPDATE projects
		SET title = ?, data_custodian_id = ?, site_custodian_id = ?, version = version + 1, modified_at = ?
		WHERE id = ? AND version = ?
	`, proj.Title, proj.DataCustodianID, proj.SiteCustodianID, now, proj.ID, expectedVersion)
	if err != nil {
		return 0, fmt.Errorf("failed to update project: %w", err)
	}
	if err := r.checkSwapped(ctx, result, proj.ID); err != nil {
		return 0, err
	}
	proj.ModifiedAt = now
	return expectedVersion + 1, nil
}

func (r *ProjectRepository) checkSwapped(ctx context.Context, result sql.Result, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}
	var exists bool
	if err := r.q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM projects WHERE id = ?)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check project existence: %w", err)
	}
	if !exists {
		return repository.ErrNotFound
	}
	return repository.ErrConflict
}

// SetDocuments replaces the cached current-document references. The version
// is left alone since the cache is derived data.
func (r *ProjectRepository) SetDocuments(ctx context.Context, id string, docs project.Documents) error {
	result, err := r.q.ExecContext(ctx, `
		UPDATE projects
		SET concept_plan_id = ?, project_plan_id = ?, progress_report_id = ?, closure_id = ?, student_report_id = ?
		WHERE id = ?
	`, docs.ConceptPlanID, docs.ProjectPlanID, docs.ProgressReportID, docs.ClosureID, docs.StudentReportID, id)
	if err != nil {
		return fmt.Errorf("failed to cache project documents: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// AddMember inserts a team member
func (r *ProjectRepository) AddMember(ctx context.Context, m project.Member) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO project_members (project_id, user_id, role, time_allocation, position)
		VALUES (?, ?, ?, ?, ?)
	`, m.ProjectID, m.UserID, m.Role, m.TimeAllocation, m.Position)
	if err != nil {
		if e := classify(err); e != nil {
			return e
		}
		return fmt.Errorf("failed to add project member: %w", err)
	}
	return nil
}

// RemoveMember deletes a team member
func (r *ProjectRepository) RemoveMember(ctx context.Context, projectID, userID string) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM project_members WHERE project_id = ? AND user_id = ?`, projectID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove project member: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ListMembers returns the team in position order
func (r *ProjectRepository) ListMembers(ctx context.Context, projectID string) ([]project.Member, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT project_id, user_id, role, time_allocation, position
		FROM project_members
		WHERE project_id = ?
		ORDER BY position, user_id
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list project members: %w", err)
	}
	defer rows.Close()

	members := []project.Member{}
	for rows.Next() {
		var m project.Member
		if err := rows.Scan(&m.ProjectID, &m.UserID, &m.Role, &m.TimeAllocation, &m.Position); err != nil {
			return nil, fmt.Errorf("failed to scan project member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating member rows: %w", err)
	}
	return members, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
