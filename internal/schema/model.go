// Package schema declares record definitions: the ordered, typed field lists
// that drive table DDL, insert column lists, value tuples and export schemas.
//
// A Definition is built once per record kind and never mutated afterwards.
// Every consumer (DDL mapper, gateway, exporter) reads field order from the
// same Definition, so producer and consumer cannot disagree on column order.
package schema

import (
	"fmt"
	"strings"
	"time"
)

// LogicalType tags the value domain of a field. Store types are derived from
// the tag, never from a textual rendering of a Go type.
type LogicalType string

const (
	String    LogicalType = "string"
	Int64     LogicalType = "int64"
	Float64   LogicalType = "float64"
	Bool      LogicalType = "bool"
	Timestamp LogicalType = "timestamp"
)

// Known reports whether t is one of the closed set of logical types.
func (t LogicalType) Known() bool {
	switch t {
	case String, Int64, Float64, Bool, Timestamp:
		return true
	}
	return false
}

// Field is one column of a record definition.
type Field struct {
	Name     string
	Type     LogicalType
	Nullable bool
	// Default is the value a decoder substitutes when the source omits the
	// field. nil means "no default".
	Default any
}

// Definition is the immutable, ordered field schema for one record kind.
type Definition struct {
	name   string
	fields []Field
	index  map[string]int
}

// Define validates and builds a Definition.
func Define(name string, fields ...Field) (*Definition, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("schema: definition name must not be empty")
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("schema: definition %s: at least one field is required", name)
	}

	idx := make(map[string]int, len(fields))
	out := make([]Field, len(fields))
	for i, f := range fields {
		f.Name = strings.TrimSpace(f.Name)
		if f.Name == "" {
			return nil, fmt.Errorf("schema: definition %s: field %d has empty name", name, i)
		}
		if _, dup := idx[f.Name]; dup {
			return nil, fmt.Errorf("schema: definition %s: duplicate field %q", name, f.Name)
		}
		idx[f.Name] = i
		out[i] = f
	}
	return &Definition{name: name, fields: out, index: idx}, nil
}

// MustDefine is Define for package-level declarations; it panics on error.
func MustDefine(name string, fields ...Field) *Definition {
	d, err := Define(name, fields...)
	if err != nil {
		panic(err)
	}
	return d
}

// Name returns the declared record name, e.g. "CreativeWork".
func (d *Definition) Name() string { return d.name }

// Table returns the stored table name: the lowercased record name.
func (d *Definition) Table() string { return strings.ToLower(d.name) }

// Fields returns a copy of the ordered field list.
func (d *Definition) Fields() []Field {
	out := make([]Field, len(d.fields))
	copy(out, d.fields)
	return out
}

// Len returns the number of fields.
func (d *Definition) Len() int { return len(d.fields) }

// Columns returns the field names in declared order.
func (d *Definition) Columns() []string {
	out := make([]string, len(d.fields))
	for i, f := range d.fields {
		out[i] = f.Name
	}
	return out
}

// Field looks up a field by name.
func (d *Definition) Field(name string) (Field, bool) {
	i, ok := d.index[name]
	if !ok {
		return Field{}, false
	}
	return d.fields[i], true
}

// Validate checks that values is a complete tuple for d: one value per field,
// in order, nil only where the field is nullable and of the Go type the
// field's logical type requires.
func (d *Definition) Validate(values []any) error {
	if len(values) != len(d.fields) {
		return fmt.Errorf("schema: %s: got %d values, want %d", d.name, len(values), len(d.fields))
	}
	for i, f := range d.fields {
		v := values[i]
		if v == nil {
			if !f.Nullable {
				return fmt.Errorf("schema: %s.%s: null value for non-nullable field", d.name, f.Name)
			}
			continue
		}
		if !typeMatches(f.Type, v) {
			return fmt.Errorf("schema: %s.%s: value of type %T does not match %s", d.name, f.Name, v, f.Type)
		}
	}
	return nil
}

func typeMatches(t LogicalType, v any) bool {
	switch t {
	case String:
		_, ok := v.(string)
		return ok
	case Int64:
		_, ok := v.(int64)
		return ok
	case Float64:
		_, ok := v.(float64)
		return ok
	case Bool:
		_, ok := v.(bool)
		return ok
	case Timestamp:
		_, ok := v.(time.Time)
		return ok
	default:
		return true
	}
}

// Record is a typed record instance bound to its Definition.
type Record interface {
	Definition() *Definition
	// Values returns one value per field in definition order. Null fields are
	// untyped nil.
	Values() []any
}

// Serialize renders a record as a name → value map for diagnostics.
// Timestamps are rendered as RFC 3339 strings.
func Serialize(r Record) map[string]any {
	def := r.Definition()
	vals := r.Values()
	out := make(map[string]any, len(vals))
	for i, f := range def.fields {
		if i >= len(vals) {
			break
		}
		v := vals[i]
		if ts, ok := v.(time.Time); ok {
			v = ts.UTC().Format(time.RFC3339)
		}
		out[f.Name] = v
	}
	return out
}

// Opt converts an optional value to a tuple element: nil pointer → nil.
func Opt[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
