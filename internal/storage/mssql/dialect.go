// Package mssql registers the SQL Server backend (go-mssqldb). Namespaces
// map to schemas and batches go through the driver's bulk-copy protocol.
package mssql

import (
	"fmt"
	"strconv"
	"strings"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"crossref/internal/ddl"
	"crossref/internal/schema"
	"crossref/internal/storage"
	msddl "crossref/internal/storage/mssql/ddl"
)

// Dialect implements storage.Dialect and storage.BulkCopier for SQL Server.
type Dialect struct{}

var _ storage.BulkCopier = Dialect{}

func init() {
	storage.Register("mssql", Dialect{})
}

func (Dialect) Driver() string                   { return "sqlserver" }
func (Dialect) MapType(f schema.Field) string    { return msddl.MapType(f) }
func (Dialect) Engine() string                   { return "" }
func (Dialect) Placeholder(i int) string         { return "@p" + strconv.Itoa(i+1) }
func (Dialect) NativeBatch() bool                { return false }
func (Dialect) Encode(_ schema.Field, v any) any { return v }
func (Dialect) JoinSettings() string             { return "" }

func (Dialect) Render() ddl.Render {
	return ddl.Render{Quote: ddl.QuoteBracket, NotNull: true, Guard: guardCreate}
}

// guardCreate wraps create in an OBJECT_ID check; T-SQL has no
// CREATE TABLE IF NOT EXISTS.
func guardCreate(fqn, create string) string {
	return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL\n%s", escape(fqn), create)
}

// BindDSN only validates the DSN; tables are schema-qualified instead.
func (Dialect) BindDSN(dsn, _ string) (string, bool, error) {
	if _, err := msdsn.Parse(dsn); err != nil {
		return "", false, fmt.Errorf("mssql: dsn: %w", err)
	}
	return dsn, false, nil
}

// CreateNamespaceSQL runs CREATE SCHEMA through EXEC because it must be the
// only statement in its batch.
func (Dialect) CreateNamespaceSQL(ns string) string {
	return fmt.Sprintf("IF SCHEMA_ID(N'%s') IS NULL EXEC(N'CREATE SCHEMA %s')",
		escape(ns), escape(ddl.QuoteBracket(ns)))
}

func (Dialect) Table(ns, table string) string {
	if ns == "" {
		return ddl.QuoteBracket(table)
	}
	return ddl.QuoteBracket(ns) + "." + ddl.QuoteBracket(table)
}

func (Dialect) DescribeSQL(ns, table string) (string, []any) {
	if ns == "" {
		ns = "dbo"
	}
	return "SELECT COLUMN_NAME, DATA_TYPE FROM INFORMATION_SCHEMA.COLUMNS " +
		"WHERE TABLE_SCHEMA = @p1 AND TABLE_NAME = @p2 ORDER BY ORDINAL_POSITION", []any{ns, table}
}

// FormatDate uses style 23 (yyyy-mm-dd).
func (Dialect) FormatDate(expr string) string {
	return fmt.Sprintf("CONVERT(char(10), %s, 23)", expr)
}

// CopyStatement returns the go-mssqldb bulk-copy statement for table.
func (Dialect) CopyStatement(table string, columns []string) string {
	return mssql.CopyIn(table, mssql.BulkOptions{Tablock: true}, columns...)
}

// escape doubles single quotes for use inside an N'...' literal.
func escape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
