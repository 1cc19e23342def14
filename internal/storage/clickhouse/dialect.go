// Package clickhouse registers the ClickHouse backend, the collector's
// default store. It uses the database/sql interface of clickhouse-go, which
// turns a prepared INSERT inside a transaction into one native block.
package clickhouse

import (
	"fmt"
	"net/url"
	"strings"

	"crossref/internal/ddl"
	"crossref/internal/schema"
	"crossref/internal/storage"
	chddl "crossref/internal/storage/clickhouse/ddl"

	_ "github.com/ClickHouse/clickhouse-go/v2"
)

// Engine is appended to every CREATE TABLE.
const Engine = "ENGINE = MergeTree ORDER BY tuple()"

// Dialect implements storage.Dialect for ClickHouse.
type Dialect struct{}

func init() {
	storage.Register("clickhouse", Dialect{})
}

func (Dialect) Driver() string                   { return "clickhouse" }
func (Dialect) MapType(f schema.Field) string    { return chddl.MapType(f) }
func (Dialect) Render() ddl.Render               { return ddl.Render{Quote: ddl.QuoteBacktick} }
func (Dialect) Engine() string                   { return Engine }
func (Dialect) Table(_, table string) string     { return ddl.QuoteBacktick(table) }
func (Dialect) Placeholder(int) string           { return "?" }
func (Dialect) NativeBatch() bool                { return true }
func (Dialect) Encode(_ schema.Field, v any) any { return v }
func (Dialect) JoinSettings() string             { return " SETTINGS join_use_nulls = 1" }

func (Dialect) CreateNamespaceSQL(ns string) string {
	return "CREATE DATABASE IF NOT EXISTS " + ddl.QuoteBacktick(ns)
}

// BindDSN points the DSN path at ns so every new connection uses it as the
// current database.
func (Dialect) BindDSN(dsn, ns string) (string, bool, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", false, fmt.Errorf("parse DSN: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", false, fmt.Errorf("DSN %q is not a clickhouse:// URL", redact(dsn))
	}
	u.Path = "/" + ns
	u.RawPath = ""
	return u.String(), true, nil
}

func (Dialect) DescribeSQL(_, table string) (string, []any) {
	return "DESCRIBE TABLE " + ddl.QuoteBacktick(table), nil
}

// Dates render in UTC whatever the server's timezone.
func (Dialect) FormatDate(expr string) string {
	return fmt.Sprintf("formatDateTime(%s, '%%Y-%%m-%%d', 'UTC')", expr)
}

func redact(dsn string) string {
	if i := strings.Index(dsn, "@"); i >= 0 {
		if j := strings.Index(dsn, "://"); j >= 0 && j < i {
			return dsn[:j+3] + "***" + dsn[i:]
		}
	}
	return dsn
}
