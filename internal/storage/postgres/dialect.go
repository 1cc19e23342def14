// Package postgres registers the Postgres backend through the pgx
// database/sql driver. Namespaces map to schemas.
package postgres

import (
	"fmt"
	"strconv"

	"crossref/internal/ddl"
	"crossref/internal/schema"
	"crossref/internal/storage"
	pgddl "crossref/internal/storage/postgres/ddl"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Dialect implements storage.Dialect for Postgres.
type Dialect struct{}

func init() {
	storage.Register("postgres", Dialect{})
}

func (Dialect) Driver() string                              { return "pgx" }
func (Dialect) MapType(f schema.Field) string               { return pgddl.MapType(f) }
func (Dialect) Render() ddl.Render                          { return ddl.Render{Quote: ddl.QuoteIdent, NotNull: true} }
func (Dialect) Engine() string                              { return "" }
func (Dialect) BindDSN(dsn, _ string) (string, bool, error) { return dsn, false, nil }
func (Dialect) Placeholder(i int) string                    { return "$" + strconv.Itoa(i+1) }
func (Dialect) NativeBatch() bool                           { return false }
func (Dialect) Encode(_ schema.Field, v any) any            { return v }
func (Dialect) JoinSettings() string                        { return "" }

func (Dialect) CreateNamespaceSQL(ns string) string {
	return "CREATE SCHEMA IF NOT EXISTS " + ddl.QuoteIdent(ns)
}

func (Dialect) Table(ns, table string) string {
	if ns == "" {
		return ddl.QuoteIdent(table)
	}
	return ddl.QuoteIdent(ns) + "." + ddl.QuoteIdent(table)
}

func (Dialect) DescribeSQL(ns, table string) (string, []any) {
	if ns == "" {
		ns = "public"
	}
	return "SELECT column_name, data_type FROM information_schema.columns " +
		"WHERE table_schema = $1 AND table_name = $2 ORDER BY ordinal_position", []any{ns, table}
}

func (Dialect) FormatDate(expr string) string {
	return fmt.Sprintf("to_char(%s AT TIME ZONE 'UTC', 'YYYY-MM-DD')", expr)
}
