// Package migrations embeds the database schema.
package migrations

import _ "embed"

//go:embed 001_initial_schema.up.sql
var InitialSchema string

// Version is the schema version recorded by InitialSchema. Bump it when the
// schema changes.
const Version = 1
