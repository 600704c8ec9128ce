package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/rpggio/sciflow/internal/domain/project"
	"github.com/rpggio/sciflow/internal/workflow"
	"github.com/stretchr/testify/require"
)

func TestStore_WithinTxRollsBack(t *testing.T) {
	db := NewTestDB(t)
	store := NewStore(db)
	ctx := context.Background()
	insertProject(t, db, "p1", 1, project.StatusActive)

	boom := errors.New("boom")
	err := store.WithinTx(ctx, func(tx workflow.Tx) error {
		_, err := tx.Projects().UpdateStatus(ctx, project.StatusChange{
			ID: "p1", From: project.StatusActive, To: project.StatusUpdating, Version: 1,
		})
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := store.Projects().Get(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, project.StatusActive, got.Status)
	require.Equal(t, int64(1), got.Version)
}

func TestStore_WithinTxCommits(t *testing.T) {
	db := NewTestDB(t)
	store := NewStore(db)
	ctx := context.Background()
	insertProject(t, db, "p1", 1, project.StatusActive)

	err := store.WithinTx(ctx, func(tx workflow.Tx) error {
		_, err := tx.Projects().UpdateStatus(ctx, project.StatusChange{
			ID: "p1", From: project.StatusActive, To: project.StatusUpdating, Version: 1,
		})
		return err
	})
	require.NoError(t, err)

	got, err := store.Projects().Get(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, project.StatusUpdating, got.Status)
}
