package export

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"crossref/internal/schema"
	"crossref/internal/storage"
)

// ArrowSchema mirrors def as an Arrow schema. Timestamps are exported as
// date strings.
func ArrowSchema(def *schema.Definition) *arrow.Schema {
	fields := def.Fields()
	out := make([]arrow.Field, len(fields))
	for i, f := range fields {
		out[i] = arrow.Field{Name: f.Name, Type: arrowType(f.Type), Nullable: f.Nullable}
	}
	return arrow.NewSchema(out, nil)
}

func arrowType(t schema.LogicalType) arrow.DataType {
	switch t {
	case schema.Int64:
		return arrow.PrimitiveTypes.Int64
	case schema.Float64:
		return arrow.PrimitiveTypes.Float64
	case schema.Bool:
		return arrow.FixedWidthTypes.Boolean
	default:
		return arrow.BinaryTypes.String
	}
}

// Fetch runs the distinct-row query for def and materializes the result as
// an Arrow table. The caller must Release it.
func Fetch(ctx context.Context, gw *storage.Gateway, def *schema.Definition) (arrow.Table, error) {
	q := BuildDistinctQuery(gw.Dialect(), def, gw.Table(def))
	rows, err := gw.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("export: fetch %s: %w", def.Table(), err)
	}
	defer rows.Close()

	sc := ArrowSchema(def)
	b := array.NewRecordBuilder(memory.NewGoAllocator(), sc)
	defer b.Release()

	fields := def.Fields()
	cells := make([]scanCell, len(fields))
	dest := make([]any, len(fields))
	for i, f := range fields {
		cells[i] = newCell(f.Type)
		dest[i] = cells[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("export: scan %s: %w", def.Table(), err)
		}
		for i, c := range cells {
			c.appendTo(b.Field(i))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("export: read %s: %w", def.Table(), err)
	}

	rec := b.NewRecord()
	defer rec.Release()
	return array.NewTableFromRecords(sc, []arrow.Record{rec}), nil
}

// scanCell is a sql.Scanner that knows how to append its value to the
// matching Arrow builder.
type scanCell interface {
	sql.Scanner
	appendTo(array.Builder)
}

func newCell(t schema.LogicalType) scanCell {
	switch t {
	case schema.Int64:
		return &int64Cell{}
	case schema.Float64:
		return &float64Cell{}
	case schema.Bool:
		return &boolCell{}
	default:
		return &stringCell{}
	}
}

type stringCell struct{ sql.NullString }

func (c *stringCell) appendTo(b array.Builder) {
	sb := b.(*array.StringBuilder)
	if !c.Valid {
		sb.AppendNull()
		return
	}
	sb.Append(c.String)
}

type int64Cell struct{ sql.NullInt64 }

func (c *int64Cell) appendTo(b array.Builder) {
	ib := b.(*array.Int64Builder)
	if !c.Valid {
		ib.AppendNull()
		return
	}
	ib.Append(c.Int64)
}

type float64Cell struct{ sql.NullFloat64 }

func (c *float64Cell) appendTo(b array.Builder) {
	fb := b.(*array.Float64Builder)
	if !c.Valid {
		fb.AppendNull()
		return
	}
	fb.Append(c.Float64)
}

type boolCell struct{ sql.NullBool }

func (c *boolCell) appendTo(b array.Builder) {
	bb := b.(*array.BooleanBuilder)
	if !c.Valid {
		bb.AppendNull()
		return
	}
	bb.Append(c.Bool)
}
