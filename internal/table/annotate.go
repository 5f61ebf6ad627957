package table

import (
	"strconv"
	"strings"
)

// Annotate flattens per-page rows into one Table.
//
// The first row of the first page that has a table becomes the header,
// prefixed with IdentifierHeader. Every other row is prefixed with
// "Page N" and tagged with its page number. A later page whose first row
// repeats the header is treated as a reprinted header and that row is
// skipped. Pages without a table contribute nothing.
//
// Rows are fitted to the header's width: short rows are padded with empty
// cells and surplus cells are folded into the last column.
//
// If no page has a table the returned Table is empty.
func Annotate(pages []Page) Table {
	var (
		t      Table
		width  int
		header []string
	)

	for _, p := range pages {
		if len(p.Rows) == 0 {
			continue
		}

		rows := p.Rows
		if t.Len() == 0 {
			header = normalizeCells(rows[0])
			width = len(header) + 1
			t.append(append(Row{IdentifierHeader}, header...), p.Number)
			rows = rows[1:]
		} else if sameCells(normalizeCells(rows[0]), header) {
			rows = rows[1:]
		}

		id := "Page " + strconv.Itoa(p.Number)
		for _, raw := range rows {
			r := make(Row, 0, width)
			r = append(r, id)
			r = append(r, normalizeCells(raw)...)
			t.append(fitWidth(r, width), p.Number)
		}
	}

	return t
}

func normalizeCells(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = normalizeCell(c)
	}
	return out
}

func sameCells(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// fitWidth pads or folds r so that it has exactly width cells.
func fitWidth(r Row, width int) Row {
	switch {
	case len(r) == width:
		return r
	case len(r) < width:
		for len(r) < width {
			r = append(r, "")
		}
		return r
	case width <= 1:
		return r[:width]
	default:
		var parts []string
		for _, c := range r[width-1:] {
			if c = strings.TrimSpace(c); c != "" {
				parts = append(parts, c)
			}
		}
		r = r[:width]
		r[width-1] = strings.Join(parts, " ")
		return r
	}
}
