// Package table holds untyped tabular input: an ordered list of records
// keyed by column name, as handed over by the data-acquisition layer.
package table

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Row is one record. Missing columns read as "".
type Row map[string]string

// Get returns the trimmed value of col, or "" when absent.
func (r Row) Get(col string) string {
	return strings.TrimSpace(r[col])
}

// GetOr returns the value of col, or def when it is blank.
func (r Row) GetOr(col, def string) string {
	if v := r.Get(col); v != "" {
		return v
	}
	return def
}

// Table is an ordered sequence of rows with a known column set.
type Table struct {
	Columns []string
	Rows    []Row
}

func (t Table) Len() int { return len(t.Rows) }

func (t Table) Empty() bool { return len(t.Rows) == 0 }

// HasColumn reports whether col is part of the header.
func (t Table) HasColumn(col string) bool {
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// FromRecords builds a Table from a header and positional records.
func FromRecords(header []string, records [][]string) Table {
	t := Table{Columns: header, Rows: make([]Row, 0, len(records))}
	for _, rec := range records {
		t.Rows = append(t.Rows, rowFrom(header, rec))
	}
	return t
}

func rowFrom(header, rec []string) Row {
	row := make(Row, len(header))
	for i, col := range header {
		if i < len(rec) {
			row[col] = rec[i]
		}
	}
	return row
}

// ReadCSV reads a CSV stream whose first record is the header. Ragged rows
// are tolerated; an empty stream yields an empty Table.
func ReadCSV(r io.Reader) (Table, error) {
	reader := csv.NewReader(stripBOM(r))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Table{}, nil
		}
		return Table{}, fmt.Errorf("table: read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	t := Table{Columns: header}
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return t, fmt.Errorf("table: read line %d: %w", line, err)
		}
		t.Rows = append(t.Rows, rowFrom(header, rec))
	}
	return t, nil
}

// ReadCSVFile opens path and reads it with ReadCSV.
func ReadCSVFile(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return Table{}, err
	}
	defer f.Close()
	return ReadCSV(f)
}

func stripBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if b, err := br.Peek(3); err == nil && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		_, _ = br.Discard(3)
	}
	return br
}
