package ddl

import (
	"testing"

	"crossref/internal/schema"
)

func TestMapType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		typ      schema.LogicalType
		nullable bool
		want     string
	}{
		{schema.Timestamp, false, "DateTime"},
		{schema.Int64, false, "Int64"},
		{schema.Int64, true, "Nullable(Int64)"},
		{schema.Float64, false, "Float64"},
		{schema.Bool, false, "Boolean"},
		{schema.String, false, "String"},
		{schema.String, true, "Nullable(String)"},
		{schema.Float64, true, "Nullable(Float64)"},
		{schema.Bool, true, "Nullable(Boolean)"},
		{schema.Timestamp, true, "Nullable(DateTime)"},
		{schema.LogicalType("decimal"), false, "Nullable(String)"},
		{schema.LogicalType(""), true, "Nullable(String)"},
	}
	for _, tt := range tests {
		f := schema.Field{Name: "c", Type: tt.typ, Nullable: tt.nullable}
		got := MapType(f)
		if got != tt.want {
			t.Fatalf("MapType(%s, nullable=%v) = %q, want %q", tt.typ, tt.nullable, got, tt.want)
		}
		// Pure: same input, same output.
		if again := MapType(f); again != got {
			t.Fatalf("MapType not deterministic: %q then %q", got, again)
		}
	}
}
