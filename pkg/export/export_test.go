package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleDataset() Dataset {
	return Dataset{
		Title: "Campus events",
		Columns: []Column{
			{Key: "date", Label: "Date"},
			{Key: "title", Label: "Title", Width: 3},
			{Key: "venue", Label: "Venue", Width: 2},
		},
		Rows: []map[string]string{
			{"date": "2024-05-10", "title": "Robotics Expo", "venue": "Main Hall"},
			{"date": "2024-05-11", "title": "Night Concert, Live"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Date,Title,Venue", lines[0])
	assert.Equal(t, `2024-05-11,"Night Concert, Live",`, lines[2])
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestXLSXExporterRender(t *testing.T) {
	out, err := NewXLSXExporter().Render(sampleDataset())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	rows, err := f.GetRows(xlsxSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Date", "Title", "Venue"}, rows[0])
	assert.Equal(t, "Robotics Expo", rows[1][1])
}

func TestRendererFor(t *testing.T) {
	for _, format := range []Format{FormatCSV, FormatPDF, FormatXLSX} {
		r, err := RendererFor(format)
		require.NoError(t, err)
		assert.Equal(t, string(format), r.Extension())
		assert.NotEmpty(t, r.ContentType())
	}
	_, err := RendererFor("docx")
	assert.Error(t, err)

	_, err = NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}
