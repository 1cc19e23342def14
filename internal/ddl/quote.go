package ddl

import "strings"

// QuoteIdent double-quotes an identifier, escaping embedded quotes
// (ANSI style, used by Postgres, SQLite and DuckDB).
func QuoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// QuoteBacktick backtick-quotes an identifier (ClickHouse, MySQL style).
func QuoteBacktick(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "\\`") + "`"
}

// QuoteBracket bracket-quotes an identifier (SQL Server style).
func QuoteBracket(s string) string {
	return "[" + strings.ReplaceAll(s, "]", "]]") + "]"
}
