// Package ddl maps record fields to DuckDB column types.
package ddl

import (
	"log/slog"

	"crossref/internal/schema"
)

// MapType maps a field to its DuckDB type. Nullability is rendered as a
// NOT NULL constraint, not in the type.
func MapType(f schema.Field) string {
	switch f.Type {
	case schema.Timestamp:
		return "TIMESTAMP"
	case schema.Int64:
		return "BIGINT"
	case schema.Float64:
		return "DOUBLE"
	case schema.Bool:
		return "BOOLEAN"
	case schema.String:
		return "VARCHAR"
	default:
		slog.Warn("duckdb ddl: unmapped field type, storing as VARCHAR",
			"field", f.Name, "type", string(f.Type))
		return "VARCHAR"
	}
}
