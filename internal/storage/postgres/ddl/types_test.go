package ddl

import (
	"testing"

	"crossref/internal/schema"
)

func TestMapType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		typ  schema.LogicalType
		want string
	}{
		{schema.Timestamp, "TIMESTAMPTZ"},
		{schema.Int64, "BIGINT"},
		{schema.Float64, "DOUBLE PRECISION"},
		{schema.Bool, "BOOLEAN"},
		{schema.String, "TEXT"},
		{schema.LogicalType("interval"), "TEXT"},
	}
	for _, tt := range tests {
		if got := MapType(schema.Field{Name: "c", Type: tt.typ, Nullable: true}); got != tt.want {
			t.Fatalf("MapType(%s) = %q, want %q", tt.typ, got, tt.want)
		}
	}
}
