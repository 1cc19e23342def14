// Package analysis loads exported Parquet snapshots into a local DuckDB
// database for ad-hoc queries. Date columns, exported as YYYY-MM-DD text,
// are parsed back into TIMESTAMP on load.
package analysis

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "github.com/marcboeker/go-duckdb/v2"

	"crossref/internal/ddl"
	"crossref/internal/schema"
)

// ExportDateLayout is the strptime layout matching the exporter's date text.
const ExportDateLayout = "%Y-%m-%d"

// DB is a DuckDB database holding analysis tables.
type DB struct {
	db  *sql.DB
	log *slog.Logger
}

// Open opens (or creates) the DuckDB file at path. An empty path opens an
// in-memory database.
func Open(path string, log *slog.Logger) (*DB, error) {
	if log == nil {
		log = slog.Default()
	}
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("analysis: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	return &DB{db: db, log: log}, nil
}

// Close closes the database.
func (d *DB) Close() error { return d.db.Close() }

// LoadStatements returns the statements that replace table with the
// contents of infile.
func LoadStatements(def *schema.Definition, infile, table string) []string {
	cols := make([]string, 0, def.Len())
	for _, f := range def.Fields() {
		q := ddl.QuoteIdent(f.Name)
		if f.Type == schema.Timestamp {
			cols = append(cols, fmt.Sprintf("strptime(%s, '%s') AS %s", q, ExportDateLayout, q))
			continue
		}
		cols = append(cols, q)
	}
	t := ddl.QuoteIdent(table)
	return []string{
		"DROP TABLE IF EXISTS " + t,
		fmt.Sprintf("CREATE TABLE %s AS SELECT %s FROM read_parquet(%s)", t, strings.Join(cols, ", "), quoteLiteral(infile)),
	}
}

// Load replaces def's table with the rows of the Parquet file infile and
// returns the loaded row count.
func (d *DB) Load(ctx context.Context, def *schema.Definition, infile string) (int64, error) {
	if _, err := os.Stat(infile); err != nil {
		return 0, fmt.Errorf("analysis: %w", err)
	}
	table := def.Table()
	for _, stmt := range LoadStatements(def, infile, table) {
		d.log.Debug("analysis: exec", "sql", stmt)
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return 0, fmt.Errorf("analysis: load %s: %w", table, err)
		}
	}

	var n int64
	if err := d.db.QueryRowContext(ctx, "SELECT count(*) FROM "+ddl.QuoteIdent(table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("analysis: count %s: %w", table, err)
	}
	d.log.Info("analysis: loaded parquet", "table", table, "path", infile, "rows", n)
	return n, nil
}

// Preview returns up to limit rows of table as column->value maps.
func (d *DB) Preview(ctx context.Context, table string, limit int) ([]map[string]any, error) {
	if limit <= 0 {
		return nil, errors.New("analysis: preview limit must be > 0")
	}
	rows, err := d.db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT %d", ddl.QuoteIdent(table), limit))
	if err != nil {
		return nil, fmt.Errorf("analysis: preview %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []map[string]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("analysis: preview %s: %w", table, err)
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			row[c] = vals[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
