// Package sqlite registers the SQLite backend (pure Go, modernc.org/sqlite).
// SQLite has no namespaces; a configured database name is ignored and the
// DSN alone selects the file.
package sqlite

import (
	"fmt"
	"time"

	"crossref/internal/ddl"
	"crossref/internal/schema"
	"crossref/internal/storage"
	sqliteddl "crossref/internal/storage/sqlite/ddl"

	_ "modernc.org/sqlite"
)

// Dialect implements storage.Dialect for SQLite.
type Dialect struct{}

func init() {
	storage.Register("sqlite", Dialect{})
}

func (Dialect) Driver() string                              { return "sqlite" }
func (Dialect) MapType(f schema.Field) string               { return sqliteddl.MapType(f) }
func (Dialect) Render() ddl.Render                          { return ddl.Render{Quote: ddl.QuoteIdent, NotNull: true} }
func (Dialect) Engine() string                              { return "" }
func (Dialect) CreateNamespaceSQL(string) string            { return "" }
func (Dialect) BindDSN(dsn, _ string) (string, bool, error) { return dsn, false, nil }
func (Dialect) Table(_, table string) string                { return ddl.QuoteIdent(table) }
func (Dialect) Placeholder(int) string                      { return "?" }
func (Dialect) NativeBatch() bool                           { return false }
func (Dialect) JoinSettings() string                        { return "" }

func (Dialect) DescribeSQL(_, table string) (string, []any) {
	return "SELECT name, type FROM pragma_table_info(?) ORDER BY cid", []any{table}
}

// Encode stores timestamps as epoch seconds and booleans as 0/1.
func (Dialect) Encode(_ schema.Field, v any) any {
	switch t := v.(type) {
	case time.Time:
		return t.Unix()
	case bool:
		if t {
			return int64(1)
		}
		return int64(0)
	default:
		return v
	}
}

func (Dialect) FormatDate(expr string) string {
	return fmt.Sprintf("strftime('%%Y-%%m-%%d', %s, 'unixepoch')", expr)
}
