package ddl

import (
	"reflect"
	"strconv"
	"strings"
	"testing"

	"crossref/internal/schema"
)

// TestBuildCreateTableSQL verifies rendering and input validation using
// table-driven subtests.
func TestBuildCreateTableSQL(t *testing.T) {
	t.Parallel()

	quote := func(s string) string { return `"` + s + `"` }

	tests := []struct {
		name        string
		def         TableDef
		render      Render
		wantSQL     string
		errContains string
	}{
		{
			name:        "empty FQN returns error",
			def:         TableDef{FQN: "", Columns: []ColumnDef{{Name: "id", SQLType: "Int64"}}},
			errContains: "table FQN must not be empty",
		},
		{
			name:        "no columns returns error",
			def:         TableDef{FQN: "t"},
			errContains: "at least one column is required",
		},
		{
			name:        "column with empty name returns error",
			def:         TableDef{FQN: "t", Columns: []ColumnDef{{Name: " ", SQLType: "Int64"}}},
			errContains: "column with empty name",
		},
		{
			name:        "column with empty type returns error",
			def:         TableDef{FQN: "t", Columns: []ColumnDef{{Name: "id"}}},
			errContains: "missing SQLType",
		},
		{
			name: "engine clause is appended",
			def: TableDef{
				FQN: "creativework",
				Columns: []ColumnDef{
					{Name: "doi", SQLType: "String"},
					{Name: "member", SQLType: "Nullable(String)", Nullable: true},
				},
				Engine: "ENGINE = MergeTree ORDER BY tuple()",
			},
			wantSQL: "CREATE TABLE IF NOT EXISTS creativework (\n  doi String,\n  member Nullable(String)\n) ENGINE = MergeTree ORDER BY tuple()",
		},
		{
			name: "not null and quoting",
			def: TableDef{
				FQN: `"main"."t"`,
				Columns: []ColumnDef{
					{Name: "id", SQLType: "BIGINT"},
					{Name: "note", SQLType: "TEXT", Nullable: true},
				},
			},
			render:  Render{Quote: quote, NotNull: true},
			wantSQL: "CREATE TABLE IF NOT EXISTS \"main\".\"t\" (\n  \"id\" BIGINT NOT NULL,\n  \"note\" TEXT\n)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := BuildCreateTableSQL(tt.def, tt.render)
			if tt.errContains != "" {
				if err == nil || !strings.Contains(err.Error(), tt.errContains) {
					t.Fatalf("error = %v, want substring %q", err, tt.errContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.wantSQL {
				t.Fatalf("BuildCreateTableSQL() =\n%s\nwant:\n%s", got, tt.wantSQL)
			}
		})
	}
}

// TestFromDefinition keeps declared order and maps every field once.
func TestFromDefinition(t *testing.T) {
	t.Parallel()

	def := schema.MustDefine("Thing",
		schema.Field{Name: "b", Type: schema.Int64},
		schema.Field{Name: "a", Type: schema.String, Nullable: true},
		schema.Field{Name: "c", Type: schema.Bool},
	)
	calls := 0
	mapper := func(f schema.Field) string {
		calls++
		return strings.ToUpper(string(f.Type))
	}

	td := FromDefinition(def, "thing", mapper, "")
	if calls != 3 {
		t.Fatalf("mapper called %d times, want 3", calls)
	}
	if got, want := td.ColumnTypes(), []string{"INT64", "STRING", "BOOL"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("ColumnTypes() = %v, want %v", got, want)
	}
	if td.Columns[0].Name != "b" || td.Columns[1].Name != "a" || !td.Columns[1].Nullable {
		t.Fatalf("unexpected columns: %+v", td.Columns)
	}
}

func TestBuildDropTableSQL(t *testing.T) {
	t.Parallel()

	if got := BuildDropTableSQL(" crossrefmember "); got != "DROP TABLE IF EXISTS crossrefmember" {
		t.Fatalf("BuildDropTableSQL() = %q", got)
	}
}

var benchmarkSink string

// BenchmarkBuildCreateTableSQL_LargeSchema measures rendering of a wide table.
func BenchmarkBuildCreateTableSQL_LargeSchema(b *testing.B) {
	cols := make([]ColumnDef, 0, 64)
	for i := 0; i < 64; i++ {
		cols = append(cols, ColumnDef{Name: "col_" + strconv.Itoa(i), SQLType: "Nullable(String)", Nullable: true})
	}
	def := TableDef{FQN: "large_table", Columns: cols, Engine: "ENGINE = MergeTree ORDER BY tuple()"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sql, err := BuildCreateTableSQL(def, Render{})
		if err != nil {
			b.Fatalf("BuildCreateTableSQL() error = %v", err)
		}
		benchmarkSink = sql
	}
}

func TestQuoteIdent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want, wantTick string
	}{
		{"name", `"name"`, "`name`"},
		{"", `""`, "``"},
		{`weird"name`, `"weird""name"`, "`weird\"name`"},
		{"tick`name", "\"tick`name\"", "`tick\\`name`"},
	}
	for _, tt := range tests {
		if got := QuoteIdent(tt.in); got != tt.want {
			t.Fatalf("QuoteIdent(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if got := QuoteBacktick(tt.in); got != tt.wantTick {
			t.Fatalf("QuoteBacktick(%q) = %q, want %q", tt.in, got, tt.wantTick)
		}
	}
}

func TestQuoteBracket(t *testing.T) {
	t.Parallel()

	if got := QuoteBracket("a]b"); got != "[a]]b]" {
		t.Fatalf("QuoteBracket = %q", got)
	}
}

// TestBuildCreateTableSQL_Guard hands a plain CREATE TABLE to the guard.
func TestBuildCreateTableSQL_Guard(t *testing.T) {
	t.Parallel()

	td := TableDef{
		FQN:     "[dbo].[t]",
		Columns: []ColumnDef{{Name: "id", SQLType: "BIGINT"}},
	}
	got, err := BuildCreateTableSQL(td, Render{
		Quote:   QuoteBracket,
		NotNull: true,
		Guard: func(fqn, create string) string {
			return "IF OBJECT_ID(N'" + fqn + "', N'U') IS NULL\n" + create
		},
	})
	if err != nil {
		t.Fatalf("BuildCreateTableSQL: %v", err)
	}
	want := "IF OBJECT_ID(N'[dbo].[t]', N'U') IS NULL\nCREATE TABLE [dbo].[t] (\n  [id] BIGINT NOT NULL\n)"
	if got != want {
		t.Fatalf("got\n%s\nwant\n%s", got, want)
	}
}
