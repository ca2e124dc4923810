package table

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV(t *testing.T) {
	in := "\ufeffSummary, Start ,End\n" +
		"Standup,2024-01-15T10:00:00-05:00,2024-01-15T10:15:00-05:00\n" +
		"\"Lunch, with team\",2024-01-15T12:00:00-05:00\n"

	tbl, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)

	assert.Equal(t, []string{"Summary", "Start", "End"}, tbl.Columns)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, "Standup", tbl.Rows[0].Get("Summary"))
	assert.Equal(t, "Lunch, with team", tbl.Rows[1].Get("Summary"))
	assert.Equal(t, "", tbl.Rows[1].Get("End"))
	assert.True(t, tbl.HasColumn("Start"))
	assert.False(t, tbl.HasColumn("Location"))
}

func TestReadCSVEmpty(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.True(t, tbl.Empty())
}

func TestReadCSVFileMissing(t *testing.T) {
	_, err := ReadCSVFile(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestReadCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "listings.csv")
	require.NoError(t, os.WriteFile(path, []byte("title,date_time\nOpen Mic,2024-01-15T18:00:00Z\n"), 0o644))

	tbl, err := ReadCSVFile(path)
	require.NoError(t, err)
	require.Equal(t, 1, tbl.Len())
	assert.Equal(t, "Open Mic", tbl.Rows[0].Get("title"))
}

func TestRowGetOr(t *testing.T) {
	row := Row{"title": "  ", "venue": " Gates "}
	assert.Equal(t, "Untitled", row.GetOr("title", "Untitled"))
	assert.Equal(t, "Untitled", row.GetOr("missing", "Untitled"))
	assert.Equal(t, "Gates", row.GetOr("venue", "x"))
}

func TestFromRecords(t *testing.T) {
	tbl := FromRecords([]string{"a", "b"}, [][]string{{"1", "2"}, {"3"}})
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, "2", tbl.Rows[0].Get("b"))
	assert.Equal(t, "", tbl.Rows[1].Get("b"))
}
