// Package ddl defines a small, backend-agnostic model for table DDL and the
// helpers that render CREATE/DROP statements from a record definition.
//
// Backend packages (internal/storage/clickhouse, duckdb, sqlite, postgres,
// mssql) supply the pieces that differ per dialect: the TypeMapper,
// identifier quoting, whether NOT NULL is spelled out, the engine clause and
// an optional guard for backends lacking CREATE TABLE IF NOT EXISTS.
package ddl

import (
	"fmt"
	"strings"

	"crossref/internal/schema"
)

// Render controls dialect-specific rendering details.
type Render struct {
	// Quote quotes a column identifier. Nil emits names verbatim.
	Quote func(string) string
	// NotNull appends NOT NULL to non-nullable columns.
	NotNull bool
	// Guard wraps a plain CREATE TABLE for backends without IF NOT EXISTS.
	Guard func(fqn, create string) string
}

// FromDefinition derives a TableDef from def, keeping the declared field
// order. fqn is the already rendered table name.
func FromDefinition(def *schema.Definition, fqn string, mapType TypeMapper, engine string) TableDef {
	fields := def.Fields()
	cols := make([]ColumnDef, len(fields))
	for i, f := range fields {
		cols[i] = ColumnDef{
			Name:     f.Name,
			SQLType:  mapType(f),
			Nullable: f.Nullable,
		}
	}
	return TableDef{FQN: fqn, Columns: cols, Engine: engine}
}

// BuildCreateTableSQL renders a CREATE TABLE IF NOT EXISTS statement:
//
//	CREATE TABLE IF NOT EXISTS <fqn> (
//	  <col> <type> [NOT NULL],
//	  ...
//	) <engine>
//
// The table name is emitted as given; column names pass through r.Quote.
// With r.Guard set the IF NOT EXISTS is dropped and the statement is handed
// to the guard instead.
func BuildCreateTableSQL(t TableDef, r Render) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("ddl: table FQN must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("ddl: at least one column is required")
	}

	cols := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("ddl: column with empty name in table %s", fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("ddl: column %s missing SQLType", name)
		}

		var sb strings.Builder
		if r.Quote != nil {
			sb.WriteString(r.Quote(name))
		} else {
			sb.WriteString(name)
		}
		sb.WriteByte(' ')
		sb.WriteString(typ)
		if r.NotNull && !c.Nullable {
			sb.WriteString(" NOT NULL")
		}
		cols = append(cols, sb.String())
	}

	create := "CREATE TABLE IF NOT EXISTS"
	if r.Guard != nil {
		create = "CREATE TABLE"
	}
	stmt := fmt.Sprintf(
		"%s %s (\n  %s\n)",
		create,
		fqn,
		strings.Join(cols, ",\n  "),
	)
	if eng := strings.TrimSpace(t.Engine); eng != "" {
		stmt += " " + eng
	}
	if r.Guard != nil {
		return r.Guard(fqn, stmt), nil
	}
	return stmt, nil
}

// BuildDropTableSQL renders DROP TABLE IF EXISTS for fqn.
func BuildDropTableSQL(fqn string) string {
	return "DROP TABLE IF EXISTS " + strings.TrimSpace(fqn)
}
