// Package all enables every built-in storage backend. Import it for side
// effects from the command wiring:
//
//	import _ "crossref/internal/storage/all"
//
// Binaries that need only some backends can import those packages directly.
package all

import (
	_ "crossref/internal/storage/clickhouse"
	_ "crossref/internal/storage/duckdb"
	_ "crossref/internal/storage/mssql"
	_ "crossref/internal/storage/postgres"
	_ "crossref/internal/storage/sqlite"
)
