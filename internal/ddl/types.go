package ddl

import "crossref/internal/schema"

// ColumnDef describes a single column in a table definition.
//
// Fields:
//   - Name: column name (unquoted; quoting happens at render time)
//   - SQLType: target store type (e.g. String, Nullable(Int64), BIGINT)
//   - Nullable: whether NULL is allowed; dialects that carry nullability in
//     the type itself (ClickHouse) ignore it
type ColumnDef struct {
	Name     string
	SQLType  string
	Nullable bool
}

// TableDef holds the rendered table name (FQN), the ordered columns and an
// optional trailing engine clause (e.g. "ENGINE = MergeTree ORDER BY tuple()").
type TableDef struct {
	FQN     string
	Columns []ColumnDef
	Engine  string
}

// ColumnTypes returns the store type names in column order.
func (t TableDef) ColumnTypes() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.SQLType
	}
	return out
}

// TypeMapper maps a record field to a store type. Implementations must be pure
// and total: every field yields exactly one type.
type TypeMapper func(schema.Field) string
