package storage

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"crossref/internal/ddl"
	"crossref/internal/schema"
)

// DefaultKind is the backend used when Config.Kind is empty.
const DefaultKind = "clickhouse"

// Dialect captures everything that differs between store backends. Backend
// packages register one Dialect per kind at init time.
type Dialect interface {
	// Driver is the database/sql driver name.
	Driver() string

	// MapType maps a field to the backend's column type.
	MapType(f schema.Field) string
	// Render returns the column rendering rules for CREATE TABLE.
	Render() ddl.Render
	// Engine is appended to CREATE TABLE; empty for none.
	Engine() string

	// CreateNamespaceSQL returns the statement creating namespace ns, or ""
	// when the backend has no namespaces.
	CreateNamespaceSQL(ns string) string
	// BindDSN returns a DSN whose connections default to namespace ns.
	// rebind is false when the namespace is addressed by qualifying table
	// names instead.
	BindDSN(dsn, ns string) (bound string, rebind bool, err error)
	// Table returns the table reference used in statements.
	Table(ns, table string) string
	// DescribeSQL returns a query yielding (name, type) as its first two
	// columns for every column of the table, in declared order.
	DescribeSQL(ns, table string) (string, []any)

	// Placeholder returns the bind marker for the i-th (0-based) argument.
	Placeholder(i int) string
	// NativeBatch reports whether rows are sent as one driver-level batch
	// (prepare once, exec per row, commit) instead of a multi-row VALUES list.
	NativeBatch() bool
	// Encode converts a validated value into the driver's representation.
	Encode(f schema.Field, v any) any

	// FormatDate renders expr (a timestamp column) as a YYYY-MM-DD string.
	FormatDate(expr string) string
	// JoinSettings is appended to anti-join queries so that unmatched rows
	// carry NULL on the right side.
	JoinSettings() string
}

// BulkCopier is implemented by dialects whose driver loads rows through a
// bulk-copy statement: prepared once, one Exec per row, then an Exec
// without arguments to flush.
type BulkCopier interface {
	CopyStatement(table string, columns []string) string
}

// Cataloger is implemented by dialects whose two-part names are ambiguous
// when a catalog and a schema share a name. The gateway reads the current
// catalog once after connecting and qualifies every table with it.
type Cataloger interface {
	CurrentCatalogSQL() string
	CatalogTable(catalog, ns, table string) string
}

var (
	mu       sync.RWMutex
	dialects = map[string]Dialect{}
)

// Register makes a dialect available under kind. It is typically called from
// a backend package's init function; registering a kind twice replaces it.
func Register(kind string, d Dialect) {
	if d == nil {
		panic("storage: Register dialect is nil")
	}
	mu.Lock()
	defer mu.Unlock()
	dialects[strings.ToLower(kind)] = d
}

// Lookup returns the dialect registered for kind. An empty kind resolves to
// DefaultKind.
func Lookup(kind string) (Dialect, error) {
	k := strings.ToLower(strings.TrimSpace(kind))
	if k == "" {
		k = DefaultKind
	}
	mu.RLock()
	d, ok := dialects[k]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %s)", ErrUnknownKind, k, strings.Join(Kinds(), ", "))
	}
	return d, nil
}

// Kinds lists registered kinds in sorted order.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(dialects))
	for k := range dialects {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
