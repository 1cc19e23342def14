// Package ddl maps record fields to SQLite column types.
//
// SQLite is dynamically typed, so the mapping picks storage classes:
// booleans are 0/1 integers and timestamps are Unix epoch seconds, which
// keeps strftime(..., 'unixepoch') usable for date formatting.
package ddl

import (
	"log/slog"

	"crossref/internal/schema"
)

// MapType maps a field to a SQLite column type.
func MapType(f schema.Field) string {
	switch f.Type {
	case schema.Int64, schema.Bool, schema.Timestamp:
		return "INTEGER"
	case schema.Float64:
		return "REAL"
	case schema.String:
		return "TEXT"
	default:
		slog.Warn("sqlite ddl: unmapped field type, storing as TEXT",
			"field", f.Name, "type", string(f.Type))
		return "TEXT"
	}
}
