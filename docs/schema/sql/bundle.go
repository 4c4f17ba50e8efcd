// Package sqldocs exposes the species table DDL directly from the docs tree.
package sqldocs

import _ "embed"

// SQLite contains the species DDL for the embedded sqlite backend.
//
//go:embed sqlite.sql
var SQLite string

// Postgres contains the species DDL for the hosted Postgres backend.
//
//go:embed postgres.sql
var Postgres string
