package table

import (
	"errors"
	"fmt"
	"strings"
)

// IdentifierHeader is the synthetic column 0 label of the header row.
const IdentifierHeader = "Identifier"

var (
	// ErrNoTableFound is returned when no page of the document produced a table.
	ErrNoTableFound = errors.New("no tables found in the PDF")

	// ErrEmptyAfterFilter is returned when no data rows survive deduplication.
	// It wraps ErrNoTableFound so both outcomes are reported the same way.
	ErrEmptyAfterFilter = fmt.Errorf("no rows remain after filtering: %w", ErrNoTableFound)

	// ErrNoHeader is returned by Encode for a table without a header row.
	ErrNoHeader = errors.New("table has no header row")
)

// Row is one table row. Cell 0 is the Identifier, the rest is content.
type Row []string

// Content returns the row's cells without the Identifier.
func (r Row) Content() []string {
	if len(r) == 0 {
		return nil
	}
	return r[1:]
}

// Clone returns a copy of the row that shares no backing array with r.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	copy(out, r)
	return out
}

// Page is one page's raw extractor output.
// Rows is nil when the extractor found no table on the page.
type Page struct {
	Number int
	Rows   [][]string
}

// Table is an ordered row sequence with the source page of every row.
// Rows[0] is the header. Rows and Pages always have equal length.
type Table struct {
	Rows  []Row
	Pages []int
}

// Len returns the number of rows including the header.
func (t Table) Len() int {
	return len(t.Rows)
}

// Width returns the header's cell count, or 0 for an empty table.
func (t Table) Width() int {
	if len(t.Rows) == 0 {
		return 0
	}
	return len(t.Rows[0])
}

// DataRows returns the number of rows after the header.
func (t Table) DataRows() int {
	if len(t.Rows) == 0 {
		return 0
	}
	return len(t.Rows) - 1
}

// Header returns the header's content cells.
func (t Table) Header() []string {
	if len(t.Rows) == 0 {
		return nil
	}
	return t.Rows[0].Content()
}

func (t *Table) append(r Row, page int) {
	t.Rows = append(t.Rows, r)
	t.Pages = append(t.Pages, page)
}

// lineBreaks turns every carriage return and newline into one space.
var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// normalizeCell replaces line breaks inside a cell with spaces.
func normalizeCell(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	return lineBreaks.Replace(s)
}

// normalizeRow returns a copy of r with every cell normalized.
func normalizeRow(r Row) Row {
	out := make(Row, len(r))
	for i, c := range r {
		out[i] = normalizeCell(c)
	}
	return out
}
