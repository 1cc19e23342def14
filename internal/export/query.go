package export

import (
	"fmt"
	"strings"

	"crossref/internal/schema"
	"crossref/internal/storage"
)

// BuildDistinctQuery selects the distinct rows of table, comparing every
// field in declared order. Timestamp fields are rendered as YYYY-MM-DD text
// after deduplication, so rows that differ only in time of day stay
// distinct.
func BuildDistinctQuery(d storage.Dialect, def *schema.Definition, table string) string {
	quote := d.Render().Quote
	if quote == nil {
		quote = func(s string) string { return s }
	}

	fields := def.Fields()
	inner := make([]string, len(fields))
	outer := make([]string, len(fields))
	for i, f := range fields {
		col := quote(f.Name)
		inner[i] = col
		if f.Type == schema.Timestamp {
			outer[i] = fmt.Sprintf("%s AS %s", d.FormatDate("d."+col), col)
		} else {
			outer[i] = "d." + col
		}
	}
	return fmt.Sprintf("SELECT %s FROM (SELECT DISTINCT %s FROM %s) AS d",
		strings.Join(outer, ", "), strings.Join(inner, ", "), table)
}
