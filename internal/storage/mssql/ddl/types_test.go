package ddl

import (
	"testing"

	"crossref/internal/schema"
)

func TestMapType(t *testing.T) {
	t.Parallel()

	tests := map[schema.LogicalType]string{
		schema.String:    "NVARCHAR(MAX)",
		schema.Timestamp: "DATETIME2",
		schema.Int64:     "BIGINT",
		schema.Float64:   "FLOAT",
		schema.Bool:      "BIT",
		"uuid":           "NVARCHAR(MAX)",
	}
	for typ, want := range tests {
		if got := MapType(schema.Field{Name: "c", Type: typ}); got != want {
			t.Fatalf("MapType(%s) = %q, want %q", typ, got, want)
		}
	}
}
