package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/rpggio/sciflow/internal/domain/project"
	"github.com/rpggio/sciflow/internal/domain/user"
	"github.com/rpggio/sciflow/migrations"
	"github.com/stretchr/testify/require"
)

// NewTestDB creates a new in-memory SQLite database for testing
func NewTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(context.Background(), ":memory:")
	require.NoError(t, err, "failed to create test database")

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func insertUser(t *testing.T, db *DB, id string) {
	t.Helper()
	err := NewUserRepository(db).Create(context.Background(), &user.User{ID: id, Username: id})
	require.NoError(t, err)
}

func insertProject(t *testing.T, db *DB, id string, number int, status project.Status) *project.Project {
	t.Helper()
	insertUser(t, db, "owner-"+id)
	proj := &project.Project{
		ID:        id,
		Kind:      project.KindScience,
		Year:      2026,
		Number:    number,
		Title:     "Project " + id,
		Status:    status,
		OwnerID:   "owner-" + id,
		CreatedAt: time.Now(),
	}
	require.NoError(t, NewProjectRepository(db).Create(context.Background(), proj))
	return proj
}

// TestMigrations verifies that migrations run successfully
func TestMigrations(t *testing.T) {
	db := NewTestDB(t)

	tables := []string{
		"schema_version",
		"users",
		"role_members",
		"api_keys",
		"projects",
		"project_members",
		"annual_reports",
		"documents",
		"activity_log",
		"notifications",
	}

	for _, table := range tables {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		require.NoError(t, err, "failed to query table %s", table)
		require.Equal(t, 1, count, "table %s not found", table)
	}

	version, err := db.SchemaVersion(context.Background())
	require.NoError(t, err)
	require.Equal(t, migrations.Version, version)

	// Migrating an up to date database is a no-op.
	require.NoError(t, db.Migrate(context.Background()))
}

func TestMigrations_VersionMismatch(t *testing.T) {
	db := NewTestDB(t)
	_, err := db.Exec("UPDATE schema_version SET version = 99")
	require.NoError(t, err)

	require.ErrorIs(t, db.Migrate(context.Background()), ErrSchemaMismatch)
}

// TestForeignKeys verifies that foreign key constraints are enabled
func TestForeignKeys(t *testing.T) {
	db := NewTestDB(t)

	var enabled int
	err := db.QueryRow("PRAGMA foreign_keys").Scan(&enabled)
	require.NoError(t, err)
	require.Equal(t, 1, enabled, "foreign keys not enabled")
}
