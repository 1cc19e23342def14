// Package storage is the persistence gateway for collected records.
//
// A Gateway owns exactly one database connection to an analytical store and
// exposes the handful of operations the collector needs: create/recreate a
// table from a schema.Definition, insert validated batches, reconcile keys
// between two tables and run ad-hoc queries for the exporter.
//
// Backend differences (driver, type mapping, namespaces, date formatting)
// live behind the Dialect interface. Backends register themselves at init;
// import internal/storage/all to enable every built-in backend.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"crossref/internal/ddl"
	"crossref/internal/metrics"
	"crossref/internal/quarantine"
	"crossref/internal/schema"
)

// Config selects and addresses a backend.
type Config struct {
	// Kind is the registered backend name; empty means DefaultKind.
	Kind string
	// DSN is passed to the backend driver.
	DSN string
	// Database is the namespace (database or schema) tables live in. Empty
	// uses the connection's default.
	Database string
}

// Column is one (name, type) pair reported by the store.
type Column struct {
	Name string
	Type string
}

// Option customizes a Gateway.
type Option func(*Gateway)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.log = l
		}
	}
}

// WithPrompter sets the prompter used by RecreateTable.
func WithPrompter(p Prompter) Option {
	return func(g *Gateway) { g.prompt = p }
}

// WithJob sets the job label used for metrics.
func WithJob(job string) Option {
	return func(g *Gateway) { g.job = job }
}

// Gateway is a single-connection store client. It is not safe for
// concurrent use.
type Gateway struct {
	db      *sql.DB
	dialect Dialect
	kind    string
	ns      string
	sink    quarantine.Sink
	prompt  Prompter
	log     *slog.Logger
	job     string
	catalog string
}

// Open connects to the backend named by cfg.Kind, ensures cfg.Database
// exists and binds the connection to it. Failed inserts are written to sink.
func Open(ctx context.Context, cfg Config, sink quarantine.Sink, opts ...Option) (*Gateway, error) {
	d, err := Lookup(cfg.Kind)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("%w: DSN must not be empty", ErrPrecondition)
	}
	if sink == nil {
		sink = quarantine.Discard{}
	}

	g := &Gateway{
		dialect: d,
		kind:    cfg.Kind,
		ns:      strings.TrimSpace(cfg.Database),
		sink:    sink,
		prompt:  NewTerminalPrompter(),
		log:     slog.Default(),
	}
	if g.kind == "" {
		g.kind = DefaultKind
	}
	for _, o := range opts {
		o(g)
	}

	db, err := connect(ctx, d.Driver(), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("storage: %s: %w", g.kind, err)
	}

	if g.ns != "" {
		if stmt := d.CreateNamespaceSQL(g.ns); stmt != "" {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				db.Close()
				return nil, fmt.Errorf("storage: %s: create namespace %s: %w", g.kind, g.ns, err)
			}
		}
		bound, rebind, err := d.BindDSN(cfg.DSN, g.ns)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("storage: %s: %w", g.kind, err)
		}
		if rebind {
			db.Close()
			if db, err = connect(ctx, d.Driver(), bound); err != nil {
				return nil, fmt.Errorf("storage: %s: reconnect to %s: %w", g.kind, g.ns, err)
			}
		}
	}

	if c, ok := d.(Cataloger); ok {
		if err := db.QueryRowContext(ctx, c.CurrentCatalogSQL()).Scan(&g.catalog); err != nil {
			db.Close()
			return nil, fmt.Errorf("storage: %s: current catalog: %w", g.kind, err)
		}
	}

	g.db = db
	g.log.Debug("storage: connected", "kind", g.kind, "namespace", g.ns, "catalog", g.catalog)
	return g, nil
}

func connect(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return db, nil
}

// Close releases the connection.
func (g *Gateway) Close() error {
	if g.db == nil {
		return nil
	}
	return g.db.Close()
}

// Kind returns the backend kind in use.
func (g *Gateway) Kind() string { return g.kind }

// Dialect returns the backend dialect.
func (g *Gateway) Dialect() Dialect { return g.dialect }

// Table returns the statement-ready table reference for def.
func (g *Gateway) Table(def *schema.Definition) string {
	if c, ok := g.dialect.(Cataloger); ok {
		return c.CatalogTable(g.catalog, g.ns, def.Table())
	}
	return g.dialect.Table(g.ns, def.Table())
}

func (g *Gateway) tableDef(def *schema.Definition) ddl.TableDef {
	return ddl.FromDefinition(def, g.Table(def), g.dialect.MapType, g.dialect.Engine())
}

// CreateTable creates the table for def if it does not exist and returns the
// columns the store reports for it.
func (g *Gateway) CreateTable(ctx context.Context, def *schema.Definition) ([]Column, error) {
	stmt, err := ddl.BuildCreateTableSQL(g.tableDef(def), g.dialect.Render())
	if err != nil {
		return nil, err
	}
	g.log.Debug("storage: create table", "sql", stmt)
	if _, err := g.db.ExecContext(ctx, stmt); err != nil {
		return nil, fmt.Errorf("storage: create table %s: %w", g.Table(def), err)
	}
	return g.Describe(ctx, def)
}

// Describe returns the store's (name, type) pairs for def's table.
func (g *Gateway) Describe(ctx context.Context, def *schema.Definition) ([]Column, error) {
	q, args := g.dialect.DescribeSQL(g.ns, def.Table())
	rows, err := g.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: describe %s: %w", g.Table(def), err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	if len(names) < 2 {
		return nil, fmt.Errorf("storage: describe %s: got %d result columns", g.Table(def), len(names))
	}

	var out []Column
	dest := make([]any, len(names))
	for rows.Next() {
		vals := make([]any, len(names))
		for i := range dest {
			dest[i] = &vals[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("storage: describe %s: %w", g.Table(def), err)
		}
		out = append(out, Column{Name: asText(vals[0]), Type: asText(vals[1])})
	}
	return out, rows.Err()
}

func asText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(t)
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

// RecreateTable drops and recreates def's table. With confirm set, the
// configured Prompter must approve first; a declined prompt returns
// (false, nil) and leaves the table untouched.
func (g *Gateway) RecreateTable(ctx context.Context, def *schema.Definition, confirm bool) (bool, error) {
	table := g.Table(def)
	if confirm {
		if g.prompt == nil {
			return false, fmt.Errorf("%w: no prompter configured", ErrNotConfirmed)
		}
		ok, err := g.prompt.Confirm(fmt.Sprintf("Drop and recreate table %s?", table))
		if err != nil {
			return false, err
		}
		if !ok {
			g.log.Info("storage: recreate declined", "table", table)
			return false, nil
		}
	}

	if _, err := g.db.ExecContext(ctx, ddl.BuildDropTableSQL(table)); err != nil {
		return false, fmt.Errorf("storage: drop table %s: %w", table, err)
	}
	if _, err := g.CreateTable(ctx, def); err != nil {
		return false, err
	}
	g.log.Info("storage: table recreated", "table", table)
	return true, nil
}

// InsertOne inserts a single record.
func (g *Gateway) InsertOne(ctx context.Context, rec schema.Record) error {
	return g.InsertBatch(ctx, []schema.Record{rec})
}

// InsertBatch inserts recs with a single statement. All records must share
// one Definition. A failed insert writes the serialized batch to the
// quarantine sink and returns *InsertError.
func (g *Gateway) InsertBatch(ctx context.Context, recs []schema.Record) (err error) {
	if len(recs) == 0 {
		return fmt.Errorf("%w: empty batch", ErrPrecondition)
	}
	def := recs[0].Definition()
	for i, r := range recs {
		if r.Definition() != def {
			return fmt.Errorf("%w: record %d is %s, batch is %s", ErrPrecondition, i, r.Definition().Name(), def.Name())
		}
	}

	start := time.Now()
	defer func() { metrics.RecordStep(g.job, "insert", err, time.Since(start)) }()

	table := g.Table(def)
	if err := g.insert(ctx, def, table, recs); err != nil {
		ierr := &InsertError{Table: table, Rows: len(recs), Err: err}
		payload := make([]map[string]any, len(recs))
		for i, r := range recs {
			payload[i] = schema.Serialize(r)
		}
		g.log.Error("storage: insert failed", "table", table, "rows", len(recs), "err", err)
		metrics.RecordRow(g.job, "quarantined", int64(len(recs)))
		if qerr := g.sink.Record(quarantine.CategoryInsert, ierr, payload); qerr != nil {
			return fmt.Errorf("%w (quarantine: %v)", ierr, qerr)
		}
		return ierr
	}

	metrics.RecordRow(g.job, "inserted", int64(len(recs)))
	metrics.RecordBatches(g.job, 1)
	g.log.Debug("storage: inserted", "table", table, "rows", len(recs))
	return nil
}

func (g *Gateway) insert(ctx context.Context, def *schema.Definition, table string, recs []schema.Record) error {
	fields := def.Fields()
	rows := make([][]any, len(recs))
	for i, r := range recs {
		vals := r.Values()
		if err := def.Validate(vals); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		enc := make([]any, len(vals))
		for j, v := range vals {
			if v != nil {
				v = g.dialect.Encode(fields[j], v)
			}
			enc[j] = v
		}
		rows[i] = enc
	}

	if bc, ok := g.dialect.(BulkCopier); ok {
		return g.insertCopy(ctx, bc.CopyStatement(table, def.Columns()), rows)
	}

	quote := g.dialect.Render().Quote
	cols := def.Columns()
	if quote != nil {
		for i, c := range cols {
			cols[i] = quote(c)
		}
	}
	head := fmt.Sprintf("INSERT INTO %s (%s)", table, strings.Join(cols, ", "))

	if g.dialect.NativeBatch() {
		return g.insertNative(ctx, head, rows)
	}
	return g.insertValues(ctx, head, len(cols), rows)
}

// insertNative sends rows as one driver batch: the driver buffers every Exec
// and ships the block on Commit.
func (g *Gateway) insertNative(ctx context.Context, head string, rows [][]any) error {
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, head)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("append: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

// insertCopy streams rows through a bulk-copy statement inside one
// transaction.
func (g *Gateway) insertCopy(ctx context.Context, copyStmt string, rows [][]any) error {
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, copyStmt)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare copy: %w", err)
	}
	defer stmt.Close()

	for i, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("copy row %d: %w", i, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("copy flush: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// insertValues sends rows as one multi-row parameterized INSERT.
func (g *Gateway) insertValues(ctx context.Context, head string, width int, rows [][]any) error {
	var sb strings.Builder
	sb.WriteString(head)
	sb.WriteString(" VALUES ")
	args := make([]any, 0, width*len(rows))
	for i, row := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for j := range row {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(g.dialect.Placeholder(len(args)))
			args = append(args, row[j])
		}
		sb.WriteByte(')')
	}
	if _, err := g.db.ExecContext(ctx, sb.String(), args...); err != nil {
		return err
	}
	return nil
}

// MissingKeys returns the distinct non-null values of fact.factKey that have
// no matching secondary.secondaryKey, in ascending order.
func (g *Gateway) MissingKeys(
	ctx context.Context,
	fact *schema.Definition, factKey string,
	secondary *schema.Definition, secondaryKey string,
) ([]string, error) {
	if err := requireStringField(fact, factKey); err != nil {
		return nil, err
	}
	if err := requireStringField(secondary, secondaryKey); err != nil {
		return nil, err
	}

	quote := g.dialect.Render().Quote
	if quote == nil {
		quote = func(s string) string { return s }
	}
	fk, sk := "f."+quote(factKey), "s."+quote(secondaryKey)
	q := fmt.Sprintf(
		"SELECT DISTINCT %s FROM %s AS f LEFT JOIN %s AS s ON %s = %s WHERE %s IS NULL AND %s IS NOT NULL ORDER BY %s%s",
		fk, g.Table(fact), g.Table(secondary), fk, sk, sk, fk, fk, g.dialect.JoinSettings(),
	)
	g.log.Debug("storage: missing keys", "sql", q)

	rows, err := g.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("storage: missing keys %s.%s: %w", fact.Table(), factKey, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k sql.NullString
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("storage: missing keys: %w", err)
		}
		if k.Valid {
			keys = append(keys, k.String)
		}
	}
	return keys, rows.Err()
}

func requireStringField(def *schema.Definition, name string) error {
	f, ok := def.Field(name)
	if !ok {
		return fmt.Errorf("%w: %s has no field %q", ErrPrecondition, def.Name(), name)
	}
	if f.Type != schema.String {
		return fmt.Errorf("%w: %s.%s is %s, want %s", ErrPrecondition, def.Name(), name, f.Type, schema.String)
	}
	return nil
}

// Query runs an ad-hoc SELECT.
func (g *Gateway) Query(ctx context.Context, q string, args ...any) (*sql.Rows, error) {
	rows, err := g.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: query: %w", err)
	}
	return rows, nil
}
