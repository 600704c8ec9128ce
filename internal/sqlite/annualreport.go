package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rpggio/sciflow/internal/domain/annualreport"
	"github.com/rpggio/sciflow/internal/repository"
)

// AnnualReportRepository implements annualreport.Repository for SQLite
type AnnualReportRepository struct {
	q querier
}

// NewAnnualReportRepository creates a new AnnualReportRepository
func NewAnnualReportRepository(db *DB) *AnnualReportRepository {
	return &AnnualReportRepository{q: db.DB}
}

// Create inserts a report; a second report for the same year is a duplicate.
func (r *AnnualReportRepository) Create(ctx context.Context, rep *annualreport.Report) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO annual_reports (id, year, created_by, created_at) VALUES (?, ?, ?, ?)`,
		rep.ID, rep.Year, rep.CreatedBy, rep.CreatedAt,
	)
	if err != nil {
		if e := classify(err); e != nil {
			return e
		}
		return fmt.Errorf("failed to create annual report: %w", err)
	}
	return nil
}

func (r *AnnualReportRepository) one(ctx context.Context, query string, args ...any) (*annualreport.Report, error) {
	var rep annualreport.Report
	err := r.q.QueryRowContext(ctx, query, args...).Scan(&rep.ID, &rep.Year, &rep.CreatedBy, &rep.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get annual report: %w", err)
	}
	return &rep, nil
}

// GetByYear retrieves the report for year
func (r *AnnualReportRepository) GetByYear(ctx context.Context, year int) (*annualreport.Report, error) {
	return r.one(ctx, `SELECT id, year, created_by, created_at FROM annual_reports WHERE year = ?`, year)
}

// Latest retrieves the report with the highest year
func (r *AnnualReportRepository) Latest(ctx context.Context) (*annualreport.Report, error) {
	return r.one(ctx, `SELECT id, year, created_by, created_at FROM annual_reports ORDER BY year DESC LIMIT 1`)
}

// List returns every report, newest first
func (r *AnnualReportRepository) List(ctx context.Context) ([]annualreport.Report, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, year, created_by, created_at FROM annual_reports ORDER BY year DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list annual reports: %w", err)
	}
	defer rows.Close()

	reports := []annualreport.Report{}
	for rows.Next() {
		var rep annualreport.Report
		if err := rows.Scan(&rep.ID, &rep.Year, &rep.CreatedBy, &rep.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan annual report: %w", err)
		}
		reports = append(reports, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating annual report rows: %w", err)
	}
	return reports, nil
}
