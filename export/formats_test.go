package export

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioDataset() *Dataset {
	d := NewDataset([]string{"id", "name"})
	d.Append([]any{1, "x"})
	d.Append([]any{2, "y"})
	return d
}

func TestAppendNormalizesTemporals(t *testing.T) {
	when := time.Date(2024, 5, 17, 9, 30, 0, 0, time.UTC)
	d := NewDataset([]string{"at", "raw"})
	d.Append([]any{when, []byte("bytes")})

	assert.Equal(t, []any{"2024-05-17T09:30:00Z", "bytes"}, d.Rows[0])
}

func TestExportCSV(t *testing.T) {
	out, err := scenarioDataset().Export("csv")
	require.NoError(t, err)
	assert.Equal(t, "id,name\n1,x\n2,y\n", string(out))
}

func TestExportTSV(t *testing.T) {
	out, err := scenarioDataset().Export("tsv")
	require.NoError(t, err)
	assert.Equal(t, "id\tname\n1\tx\n2\ty\n", string(out))
}

func TestExportJSONPreservesColumnOrder(t *testing.T) {
	out, err := scenarioDataset().Export("json")
	require.NoError(t, err)
	assert.Equal(t, `[{"id": 1, "name": "x"}, {"id": 2, "name": "y"}]`, string(out))
}

func TestExportYAML(t *testing.T) {
	out, err := scenarioDataset().Export("yaml")
	require.NoError(t, err)
	assert.Contains(t, string(out), "- id: 1")
	assert.Contains(t, string(out), "name: x")
}

func TestExportHTML(t *testing.T) {
	out, err := scenarioDataset().Export("html")
	require.NoError(t, err)
	assert.Contains(t, string(out), "<th>id</th>")
	assert.Contains(t, string(out), "<td>x</td>")
}

func TestExportLaTeX(t *testing.T) {
	d := NewDataset([]string{"pct"})
	d.Append([]any{"100%"})

	out, err := d.Export("latex")
	require.NoError(t, err)
	assert.Contains(t, string(out), `\begin{tabular}{l}`)
	assert.Contains(t, string(out), `100\%`)
}

func TestExportXLSX(t *testing.T) {
	out, err := scenarioDataset().Export("xlsx")
	require.NoError(t, err)
	assert.NotEmpty(t, out)
	// xlsx files are zip archives.
	assert.Equal(t, "PK", string(out[:2]))
}

func TestExportFormatCaseInsensitive(t *testing.T) {
	out, err := scenarioDataset().Export("CSV")
	require.NoError(t, err)
	assert.Equal(t, "id,name\n1,x\n2,y\n", string(out))
}

func TestExportUnknownFormat(t *testing.T) {
	_, err := scenarioDataset().Export("parquet")
	require.ErrorIs(t, err, ErrUnsupportedFormat)

	var formatErr *FormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, "parquet", formatErr.Format)
}

func TestExportMissingDependencyFormats(t *testing.T) {
	for _, format := range []string{"xls", "dbf", "ods"} {
		_, err := scenarioDataset().Export(format)
		require.ErrorIs(t, err, ErrMissingDependency, format)
	}
}

func TestDatasetString(t *testing.T) {
	s := scenarioDataset().String()
	assert.Contains(t, s, "id|name")
	assert.Contains(t, s, "--|----")
	assert.Contains(t, s, "1 |x")
}
