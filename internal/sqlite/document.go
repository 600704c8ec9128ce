package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rpggio/sciflow/internal/domain/document"
	"github.com/rpggio/sciflow/internal/repository"
)

// DocumentRepository implements document.Repository for SQLite
type DocumentRepository struct {
	q querier
}

// NewDocumentRepository creates a new DocumentRepository
func NewDocumentRepository(db *DB) *DocumentRepository {
	return &DocumentRepository{q: db.DB}
}

const documentColumns = `
	id, project_id, kind, status, year, report_id, final, fields,
	involves_plants, involves_animals,
	endorse_methodology, endorse_herbarium, endorse_animal_ethics, endorse_data_manager,
	version, created_at, modified_at`

// Create inserts a document. A second document of the same kind and year
// for the project is rejected with repository.ErrDuplicate.
func (r *DocumentRepository) Create(ctx context.Context, doc *document.Document) error {
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	if doc.ModifiedAt.IsZero() {
		doc.ModifiedAt = doc.CreatedAt
	}
	if doc.Version == 0 {
		doc.Version = 1
	}
	fields, err := encodeFields(doc.Fields)
	if err != nil {
		return err
	}
	e := withDefaults(doc.Endorsements)

	query := `INSERT INTO documents (` + documentColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.q.ExecContext(ctx, query,
		doc.ID,
		doc.ProjectID,
		doc.Kind,
		doc.Status,
		doc.Year,
		doc.ReportID,
		boolInt(doc.Final),
		fields,
		boolInt(doc.Specimens.Plants),
		boolInt(doc.Specimens.Animals),
		e.Methodology,
		e.Herbarium,
		e.AnimalEthics,
		e.DataManager,
		doc.Version,
		doc.CreatedAt,
		doc.ModifiedAt,
	)
	if err != nil {
		if e := classify(err); e != nil {
			return e
		}
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

func scanDocument(row scanner) (*document.Document, error) {
	var (
		doc             document.Document
		final           int
		fields          string
		plants, animals int
	)
	err := row.Scan(
		&doc.ID,
		&doc.ProjectID,
		&doc.Kind,
		&doc.Status,
		&doc.Year,
		&doc.ReportID,
		&final,
		&fields,
		&plants,
		&animals,
		&doc.Endorsements.Methodology,
		&doc.Endorsements.Herbarium,
		&doc.Endorsements.AnimalEthics,
		&doc.Endorsements.DataManager,
		&doc.Version,
		&doc.CreatedAt,
		&doc.ModifiedAt,
	)
	if err != nil {
		return nil, err
	}
	doc.Final = final != 0
	doc.Specimens = document.Specimens{Plants: plants != 0, Animals: animals != 0}
	doc.Fields = map[string]string{}
	if fields != "" {
		if err := json.Unmarshal([]byte(fields), &doc.Fields); err != nil {
			return nil, fmt.Errorf("failed to decode document fields: %w", err)
		}
	}
	return &doc, nil
}

func (r *DocumentRepository) one(ctx context.Context, where string, args ...any) (*document.Document, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE `+where, args...)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

// Get retrieves a document by ID
func (r *DocumentRepository) Get(ctx context.Context, id string) (*document.Document, error) {
	return r.one(ctx, `id = ?`, id)
}

// FindCurrent returns the project's document of kind for year. Year is
// ignored for kinds that are not yearly.
func (r *DocumentRepository) FindCurrent(ctx context.Context, projectID string, kind document.Kind, year int) (*document.Document, error) {
	if !kind.Yearly() {
		year = 0
	}
	return r.one(ctx, `project_id = ? AND kind = ? AND year = ?`, projectID, kind, year)
}

// FindPrevious returns the latest yearly document of kind before beforeYear.
func (r *DocumentRepository) FindPrevious(ctx context.Context, projectID string, kind document.Kind, beforeYear int) (*document.Document, error) {
	return r.one(ctx, `project_id = ? AND kind = ? AND year < ? ORDER BY year DESC LIMIT 1`, projectID, kind, beforeYear)
}

// ListByProject returns every document of a project
func (r *DocumentRepository) ListByProject(ctx context.Context, projectID string) ([]document.Document, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE project_id = ? ORDER BY created_at, year`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	docs := []document.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating document rows: %w", err)
	}
	return docs, nil
}

// UpdateStatus writes a status change only if the stored status and version
// still match, and returns the new version.
func (r *DocumentRepository) UpdateStatus(ctx context.Context, change document.StatusChange) (int64, error) {
	result, err := r.q.ExecContext(ctx, `
		UPDATE documents
		SET status = ?, version = version + 1, modified_at = ?
		WHERE id = ? AND status = ? AND version = ?
	`, change.To, time.Now().UTC(), change.ID, change.From, change.Version)
	if err != nil {
		return 0, fmt.Errorf("failed to update document status: %w", err)
	}
	if err := r.checkSwapped(ctx, result, change.ID); err != nil {
		return 0, err
	}
	return change.Version + 1, nil
}

// UpdateContent writes fields, specimen flags and endorsements with
// optimistic concurrency control. Status is never written here.
func (r *DocumentRepository) UpdateContent(ctx context.Context, doc *document.Document, expectedVersion int64) (int64, error) {
	fields, err := encodeFields(doc.Fields)
	if err != nil {
		return 0, err
	}
	e := withDefaults(doc.Endorsements)
	result, err := r.q.ExecContext(ctx, `
		UPDATE documents
		SET fields = ?, final = ?, involves_plants = ?, involves_animals = ?,
		    endorse_methodology = ?, endorse_herbarium = ?, endorse_animal_ethics = ?, endorse_data_manager = ?,
		    version = version + 1, modified_at = ?
		WHERE id = ? AND version = ?
	`,
		fields,
		boolInt(doc.Final),
		boolInt(doc.Specimens.Plants),
		boolInt(doc.Specimens.Animals),
		e.Methodology,
		e.Herbarium,
		e.AnimalEthics,
		e.DataManager,
		time.Now().UTC(),
		doc.ID,
		expectedVersion,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to update document: %w", err)
	}
	if err := r.checkSwapped(ctx, result, doc.ID); err != nil {
		return 0, err
	}
	return expectedVersion + 1, nil
}

// Delete removes a document
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
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

func (r *DocumentRepository) checkSwapped(ctx context.Context, result sql.Result, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}
	var exists bool
	if err := r.q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM documents WHERE id = ?)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check document existence: %w", err)
	}
	if !exists {
		return repository.ErrNotFound
	}
	return repository.ErrConflict
}

func encodeFields(fields map[string]string) (string, error) {
	if fields == nil {
		return "{}", nil
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("failed to encode document fields: %w", err)
	}
	return string(b), nil
}

// withDefaults fills unset slots so the column constraints hold for every kind.
func withDefaults(e document.Endorsements) document.Endorsements {
	for _, slot := range document.Slots {
		if e.Get(slot) == "" {
			e.Set(slot, document.EndorsementNotRequired)
		}
	}
	return e
}
