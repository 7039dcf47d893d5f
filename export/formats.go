package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html/template"
	"strings"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

// Formats supported by Export. The binary spreadsheet formats xls, dbf and
// ods have no serializer in this build and report ErrMissingDependency.
const (
	FormatCSV   = "csv"
	FormatTSV   = "tsv"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
	FormatHTML  = "html"
	FormatLaTeX = "latex"
	FormatXLSX  = "xlsx"
)

// Export serializes the dataset to the named format. Text formats return
// UTF-8 text; xlsx returns raw bytes.
func (d *Dataset) Export(format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case FormatCSV:
		return d.exportSeparated(',')
	case FormatTSV:
		return d.exportSeparated('\t')
	case FormatJSON:
		return d.exportJSON()
	case FormatYAML:
		return d.exportYAML()
	case FormatHTML:
		return d.exportHTML()
	case FormatLaTeX:
		return d.exportLaTeX()
	case FormatXLSX:
		return d.exportXLSX()
	case "xls", "dbf", "ods":
		return nil, &FormatError{Format: format, Cause: ErrMissingDependency}
	default:
		return nil, &FormatError{Format: format, Cause: ErrUnsupportedFormat}
	}
}

func (d *Dataset) exportSeparated(comma rune) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = comma

	if err := w.Write(d.Headers); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	for _, row := range d.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = cell(v)
		}
		if err := w.Write(cells); err != nil {
			return nil, fmt.Errorf("failed to write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush output: %w", err)
	}
	return buf.Bytes(), nil
}

// exportJSON writes an array of objects. Keys are emitted in header order,
// which plain map marshaling would not preserve.
func (d *Dataset) exportJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("[")
	for r, row := range d.Rows {
		if r > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString("{")
		for i, h := range d.Headers {
			if i > 0 {
				buf.WriteString(", ")
			}
			key, err := json.Marshal(h)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal header: %w", err)
			}
			var v any
			if i < len(row) {
				v = row[i]
			}
			val, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal value: %w", err)
			}
			buf.Write(key)
			buf.WriteString(": ")
			buf.Write(val)
		}
		buf.WriteString("}")
	}
	buf.WriteString("]")
	return buf.Bytes(), nil
}

// exportYAML writes a sequence of mappings via explicit yaml nodes so that
// key order follows the header order.
func (d *Dataset) exportYAML() ([]byte, error) {
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for _, row := range d.Rows {
		mapping := &yaml.Node{Kind: yaml.MappingNode}
		for i, h := range d.Headers {
			keyNode := &yaml.Node{}
			if err := keyNode.Encode(h); err != nil {
				return nil, fmt.Errorf("failed to encode header: %w", err)
			}
			var v any
			if i < len(row) {
				v = row[i]
			}
			valNode := &yaml.Node{}
			if err := valNode.Encode(v); err != nil {
				return nil, fmt.Errorf("failed to encode value: %w", err)
			}
			mapping.Content = append(mapping.Content, keyNode, valNode)
		}
		seq.Content = append(seq.Content, mapping)
	}
	out, err := yaml.Marshal(seq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal yaml: %w", err)
	}
	return out, nil
}

var htmlTableTemplate = template.Must(template.New("table").Parse(`<table>
<thead>
<tr>{{range .Headers}}<th>{{.}}</th>{{end}}</tr>
</thead>
<tbody>
{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}</tbody>
</table>
`))

func (d *Dataset) exportHTML() ([]byte, error) {
	rows := make([][]string, len(d.Rows))
	for r, row := range d.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = cell(v)
		}
		rows[r] = cells
	}
	var buf bytes.Buffer
	data := struct {
		Headers []string
		Rows    [][]string
	}{d.Headers, rows}
	if err := htmlTableTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render html: %w", err)
	}
	return buf.Bytes(), nil
}

// latexEscaper handles the characters LaTeX treats specially in table cells.
var latexEscaper = strings.NewReplacer(
	"\\", `\textbackslash{}`,
	"&", `\&`,
	"%", `\%`,
	"$", `\$`,
	"#", `\#`,
	"_", `\_`,
	"{", `\{`,
	"}", `\}`,
	"~", `\textasciitilde{}`,
	"^", `\textasciicircum{}`,
)

func (d *Dataset) exportLaTeX() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`\begin{tabular}{` + strings.Repeat("l", len(d.Headers)) + "}\n")
	buf.WriteString(`\hline` + "\n")
	writeRow := func(cells []string) {
		for i, c := range cells {
			if i > 0 {
				buf.WriteString(" & ")
			}
			buf.WriteString(latexEscaper.Replace(c))
		}
		buf.WriteString(` \\` + "\n")
	}
	writeRow(d.Headers)
	buf.WriteString(`\hline` + "\n")
	for _, row := range d.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = cell(v)
		}
		writeRow(cells)
	}
	buf.WriteString(`\hline` + "\n")
	buf.WriteString(`\end{tabular}` + "\n")
	return buf.Bytes(), nil
}

func (d *Dataset) exportXLSX() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	header := make([]any, len(d.Headers))
	for i, h := range d.Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header row: %w", err)
	}
	for r, row := range d.Rows {
		addr, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return nil, fmt.Errorf("failed to compute cell address: %w", err)
		}
		if err := f.SetSheetRow(sheet, addr, &row); err != nil {
			return nil, fmt.Errorf("failed to write row: %w", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}
