// Package duckdb registers the embedded DuckDB backend. A DSN is a database
// file path; an empty path opens an in-memory database. Namespaces map to
// schemas inside the file.
package duckdb

import (
	"fmt"

	"crossref/internal/ddl"
	"crossref/internal/schema"
	"crossref/internal/storage"
	duckddl "crossref/internal/storage/duckdb/ddl"

	_ "github.com/marcboeker/go-duckdb/v2"
)

// Dialect implements storage.Dialect for DuckDB.
type Dialect struct{}

func init() {
	storage.Register("duckdb", Dialect{})
}

func (Dialect) Driver() string                   { return "duckdb" }
func (Dialect) MapType(f schema.Field) string    { return duckddl.MapType(f) }
func (Dialect) Render() ddl.Render               { return ddl.Render{Quote: ddl.QuoteIdent, NotNull: true} }
func (Dialect) Engine() string                   { return "" }
func (Dialect) Placeholder(int) string           { return "?" }
func (Dialect) NativeBatch() bool                { return false }
func (Dialect) Encode(_ schema.Field, v any) any { return v }
func (Dialect) JoinSettings() string             { return "" }

func (Dialect) CreateNamespaceSQL(ns string) string {
	return "CREATE SCHEMA IF NOT EXISTS " + ddl.QuoteIdent(ns)
}

func (Dialect) BindDSN(dsn, _ string) (string, bool, error) { return dsn, false, nil }

func (Dialect) Table(ns, table string) string {
	if ns == "" {
		return ddl.QuoteIdent(table)
	}
	return ddl.QuoteIdent(ns) + "." + ddl.QuoteIdent(table)
}

// A database file named after the schema (crossref.duckdb holding schema
// crossref) makes "crossref"."works" ambiguous, so tables are qualified
// with the catalog as well.
func (Dialect) CurrentCatalogSQL() string { return "SELECT current_database()" }

func (d Dialect) CatalogTable(catalog, ns, table string) string {
	if catalog == "" {
		return d.Table(ns, table)
	}
	if ns == "" {
		ns = "main"
	}
	return ddl.QuoteIdent(catalog) + "." + ddl.QuoteIdent(ns) + "." + ddl.QuoteIdent(table)
}

func (Dialect) DescribeSQL(ns, table string) (string, []any) {
	if ns == "" {
		ns = "main"
	}
	return "SELECT column_name, data_type FROM information_schema.columns " +
		"WHERE table_catalog = current_database() AND table_schema = ? AND table_name = ? " +
		"ORDER BY ordinal_position", []any{ns, table}
}

func (Dialect) FormatDate(expr string) string {
	return fmt.Sprintf("strftime(%s, '%%Y-%%m-%%d')", expr)
}
