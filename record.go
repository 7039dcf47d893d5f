// Package records executes parameterized SQL queries and exposes results as
// lazily materialized collections of named-field rows.
package records

import (
	"fmt"

	"github.com/recordkit/records/export"
)

// Field is a single named value from a record, in column order.
type Field struct {
	Name  string
	Value any
}

// Record is one immutable row from a query: an ordered list of column names
// and a parallel list of values. Column names may repeat; name-based lookup
// requires the name to be unique.
type Record struct {
	keys   []string
	values []any
}

// NewRecord creates a record from parallel key and value slices.
func NewRecord(keys []string, values []any) (*Record, error) {
	if len(keys) != len(values) {
		return nil, fmt.Errorf("records: %d keys but %d values", len(keys), len(values))
	}
	k := make([]string, len(keys))
	copy(k, keys)
	v := make([]any, len(values))
	copy(v, values)
	return &Record{keys: k, values: v}, nil
}

// Keys returns the column names in query order.
func (r *Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Values returns the values in column order.
func (r *Record) Values() []any {
	out := make([]any, len(r.values))
	copy(out, r.values)
	return out
}

// Len returns the number of columns.
func (r *Record) Len() int {
	return len(r.keys)
}

// Get returns the value at the given position.
func (r *Record) Get(index int) (any, error) {
	if index < 0 || index >= len(r.values) {
		return nil, &IndexError{Index: index, Length: len(r.values)}
	}
	return r.values[index], nil
}

// GetByName returns the value of the column with the given name. The name
// must occur exactly once: lookups of absent names fail with ErrFieldNotFound
// and lookups of repeated names fail with ErrDuplicateField. Positional Get
// is always unambiguous.
func (r *Record) GetByName(name string) (any, error) {
	found := -1
	for i, k := range r.keys {
		if k != name {
			continue
		}
		if found >= 0 {
			return nil, &FieldError{Name: name, Cause: ErrDuplicateField}
		}
		found = i
	}
	if found < 0 {
		return nil, &FieldError{Name: name, Cause: ErrFieldNotFound}
	}
	return r.values[found], nil
}

// AsMap returns the record as a plain map. Key order is not preserved; use
// Fields when order matters.
func (r *Record) AsMap() map[string]any {
	m := make(map[string]any, len(r.keys))
	for i, k := range r.keys {
		m[k] = r.values[i]
	}
	return m
}

// Fields returns the record as an ordered list of name/value pairs, in the
// original column order.
func (r *Record) Fields() []Field {
	fields := make([]Field, len(r.keys))
	for i, k := range r.keys {
		fields[i] = Field{Name: k, Value: r.values[i]}
	}
	return fields
}

// Dataset returns a one-row dataset containing this record.
func (r *Record) Dataset() *export.Dataset {
	data := export.NewDataset(r.Keys())
	data.Append(r.Values())
	return data
}

// Export serializes the record as a one-row table in the given format.
func (r *Record) Export(format string) ([]byte, error) {
	return r.Dataset().Export(format)
}

// String renders the record as a one-row json object.
func (r *Record) String() string {
	out, err := r.Export(export.FormatJSON)
	if err != nil {
		return fmt.Sprintf("<Record len=%d>", r.Len())
	}
	// Strip the surrounding list brackets from the one-row export.
	return string(out[1 : len(out)-1])
}
