// Package export builds tabular datasets from query results and serializes
// them to common interchange formats.
package export

import (
	"fmt"
	"strings"
	"time"
)

// Dataset is an ordered table: a header row plus zero or more body rows.
// Rows are normalized on append so that every serializer sees plain scalars.
type Dataset struct {
	Headers []string
	Rows    [][]any
}

// NewDataset creates an empty dataset with the given column headers.
func NewDataset(headers []string) *Dataset {
	return &Dataset{Headers: headers}
}

// Append adds one row to the dataset. Temporal values are normalized to their
// ISO-8601 text form, since several target formats cannot represent native
// date/time types.
func (d *Dataset) Append(row []any) {
	normalized := make([]any, len(row))
	for i, v := range row {
		normalized[i] = normalize(v)
	}
	d.Rows = append(d.Rows, normalized)
}

// Width returns the number of columns.
func (d *Dataset) Width() int {
	return len(d.Headers)
}

// Height returns the number of body rows.
func (d *Dataset) Height() int {
	return len(d.Rows)
}

// normalize converts temporal and byte-slice values to strings.
func normalize(v any) any {
	switch t := v.(type) {
	case time.Time:
		return t.Format(time.RFC3339)
	case *time.Time:
		if t == nil {
			return nil
		}
		return t.Format(time.RFC3339)
	case []byte:
		return string(t)
	default:
		return v
	}
}

// cell renders a single value as display text.
func cell(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

// String renders the dataset as an aligned text table, suitable for terminal
// preview when no export format was requested.
func (d *Dataset) String() string {
	widths := make([]int, len(d.Headers))
	for i, h := range d.Headers {
		widths[i] = len(h)
	}
	body := make([][]string, len(d.Rows))
	for r, row := range d.Rows {
		cells := make([]string, len(d.Headers))
		for i := range d.Headers {
			if i < len(row) {
				cells[i] = cell(row[i])
			}
			if len(cells[i]) > widths[i] {
				widths[i] = len(cells[i])
			}
		}
		body[r] = cells
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		for i, c := range cells {
			if i > 0 {
				b.WriteString("|")
			}
			fmt.Fprintf(&b, "%-*s", widths[i], c)
		}
		b.WriteString("\n")
	}
	writeRow(d.Headers)
	rules := make([]string, len(d.Headers))
	for i, w := range widths {
		rules[i] = strings.Repeat("-", w)
	}
	writeRow(rules)
	for _, cells := range body {
		writeRow(cells)
	}
	return b.String()
}
