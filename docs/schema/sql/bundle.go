// Package sqldocs exposes the storage DDL bundles directly from the docs tree.
package sqldocs

import _ "embed"

// SQLite contains the SQLite DDL for the relational storage backend.
//
//go:embed sqlite.sql
var SQLite string

// Postgres contains the Postgres DDL for the relational storage backend.
//
//go:embed postgres.sql
var Postgres string
