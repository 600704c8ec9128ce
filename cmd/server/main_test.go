package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func setupCLITestEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "data", "sciflow.db")
	t.Setenv("SCIFLOW_CONFIG_PATH", "")
	t.Setenv("SCIFLOW_DB_PATH", dbPath)
	t.Setenv("SCIFLOW_LOCK_PATH", filepath.Join(dir, "sciflow.lock"))
	t.Setenv("SCIFLOW_LOG_LEVEL", "error")
	return dbPath
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestMigrateCreatesDatabase(t *testing.T) {
	dbPath := setupCLITestEnv(t)

	out, err := runCLI(t, "migrate")
	require.NoError(t, err)
	require.Contains(t, out, "Schema version 1")
	require.Contains(t, out, dbPath)

	// A second run verifies the existing schema.
	_, err = runCLI(t, "migrate")
	require.NoError(t, err)
}

func TestUserRoleAndAPIKeyCommands(t *testing.T) {
	setupCLITestEnv(t)

	out, err := runCLI(t, "user", "add", "ada", "--display-name", "Ada Lovelace", "--role", "reviewers")
	require.NoError(t, err)
	require.Contains(t, out, "Created user ada")

	out, err = runCLI(t, "role", "grant", "ada", "approvers")
	require.NoError(t, err)
	require.Contains(t, out, "Granted approvers: ada")

	out, err = runCLI(t, "role", "revoke", "ada", "reviewers")
	require.NoError(t, err)
	require.Contains(t, out, "Revoked reviewers: ada")

	_, err = runCLI(t, "role", "grant", "ada", "wizards")
	require.Error(t, err)

	out, err = runCLI(t, "user", "list")
	require.NoError(t, err)
	require.Contains(t, out, "Ada Lovelace")
	require.Contains(t, out, "approvers")
	require.NotContains(t, out, "reviewers")

	out, err = runCLI(t, "apikey", "create", "ada", "--description", "laptop")
	require.NoError(t, err)
	require.NotEmpty(t, strings.TrimSpace(out))
}

func TestAnnualReportCreate(t *testing.T) {
	setupCLITestEnv(t)

	_, err := runCLI(t, "user", "add", "boss", "--role", "admins")
	require.NoError(t, err)
	_, err = runCLI(t, "user", "add", "intern")
	require.NoError(t, err)

	_, err = runCLI(t, "annual-report", "create", "--year", "2026", "--as", "intern")
	require.Error(t, err)

	out, err := runCLI(t, "annual-report", "create", "--year", "2026", "--as", "boss")
	require.NoError(t, err)
	require.Contains(t, out, "Annual report 2026 created")
	require.Contains(t, out, "No projects due for an update")

	out, err = runCLI(t, "annual-report", "list")
	require.NoError(t, err)
	require.Contains(t, out, "2026")
}

func TestAnnualReportNeedsActor(t *testing.T) {
	setupCLITestEnv(t)

	_, err := runCLI(t, "annual-report", "create")
	require.ErrorContains(t, err, "no acting user")
}

func TestTransitionsCommand(t *testing.T) {
	setupCLITestEnv(t)

	out, err := runCLI(t, "transitions", "document", "concept_plan")
	require.NoError(t, err)
	require.Contains(t, out, "seek_review")
	require.Contains(t, out, "inapproval")

	out, err = runCLI(t, "transitions", "project", "student")
	require.NoError(t, err)
	require.Contains(t, out, "complete")

	_, err = runCLI(t, "transitions", "document", "memo")
	require.Error(t, err)

	_, err = runCLI(t, "transitions", "sample", "x")
	require.Error(t, err)
}

func TestServeRejectsUnknownTransport(t *testing.T) {
	setupCLITestEnv(t)

	_, err := runCLI(t, "serve", "--transport", "carrier-pigeon")
	require.ErrorContains(t, err, "unsupported transport")
}

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"A", "B"}, [][]string{{"1"}, {"2", "3"}}, []columnAlignment{alignRight})
	require.Contains(t, out, "A")
	require.Contains(t, out, "3")
	require.Empty(t, renderTable(nil, nil, nil))
}
