// Package ddl maps record fields to Postgres column types.
package ddl

import (
	"log/slog"

	"crossref/internal/schema"
)

// MapType maps a field to a Postgres column type.
func MapType(f schema.Field) string {
	switch f.Type {
	case schema.Timestamp:
		return "TIMESTAMPTZ"
	case schema.Int64:
		return "BIGINT"
	case schema.Float64:
		return "DOUBLE PRECISION"
	case schema.Bool:
		return "BOOLEAN"
	case schema.String:
		return "TEXT"
	default:
		slog.Warn("postgres ddl: unmapped field type, storing as TEXT",
			"field", f.Name, "type", string(f.Type))
		return "TEXT"
	}
}
