// Package ddl maps record fields to ClickHouse column types.
package ddl

import (
	"log/slog"

	"crossref/internal/schema"
)

// MapType maps a field to its ClickHouse type. Nullable fields wrap the base
// type in Nullable(...). Unknown logical types are stored as
// Nullable(String) and logged.
func MapType(f schema.Field) string {
	var base string
	switch f.Type {
	case schema.Timestamp:
		base = "DateTime"
	case schema.Int64:
		base = "Int64"
	case schema.Float64:
		base = "Float64"
	case schema.Bool:
		base = "Boolean"
	case schema.String:
		base = "String"
	default:
		slog.Warn("clickhouse ddl: unmapped field type, storing as Nullable(String)",
			"field", f.Name, "type", string(f.Type))
		return "Nullable(String)"
	}
	if f.Nullable {
		return "Nullable(" + base + ")"
	}
	return base
}
