// Package ddl maps record fields to SQL Server column types.
package ddl

import (
	"log/slog"

	"crossref/internal/schema"
)

// MapType maps a field to a SQL Server column type. Unknown types fall back
// to NVARCHAR(MAX).
func MapType(f schema.Field) string {
	switch f.Type {
	case schema.Timestamp:
		return "DATETIME2"
	case schema.Int64:
		return "BIGINT"
	case schema.Float64:
		return "FLOAT"
	case schema.Bool:
		return "BIT"
	case schema.String:
		return "NVARCHAR(MAX)"
	default:
		slog.Warn("mssql ddl: unmapped field type, storing as NVARCHAR(MAX)",
			"field", f.Name, "type", string(f.Type))
		return "NVARCHAR(MAX)"
	}
}
