package table

import "strings"

// UnassignedSentinel marks a row that stands on its own and is never merged.
const UnassignedSentinel = "Unassigned"

// minCorrectCells is the fewest content cells a row needs to look complete.
const minCorrectCells = 4

// MergeReport counts what Merge did to a table.
type MergeReport struct {
	// Merged is the number of row pairs joined across a page break.
	Merged int
	// SentinelSkips is the number of cross-page pairs left alone because
	// one of the rows ends in UnassignedSentinel.
	SentinelSkips int
	// Malformed is the number of cross-page pairs left alone because one of
	// the rows does not have the header's cell count.
	Malformed int
}

// isCorrectRow reports whether r looks like a complete row: at least
// minCorrectCells content cells, the last two of them multi-word.
func isCorrectRow(r Row) bool {
	c := r.Content()
	if len(c) < minCorrectCells {
		return false
	}
	return hasInteriorSpace(c[len(c)-1]) && hasInteriorSpace(c[len(c)-2])
}

func hasInteriorSpace(s string) bool {
	return strings.Contains(strings.TrimSpace(s), " ")
}

// shouldSkipMerging reports whether either of r's last two content cells is
// the Unassigned sentinel.
func shouldSkipMerging(r Row) bool {
	c := r.Content()
	for i := len(c) - 1; i >= 0 && i >= len(c)-2; i-- {
		if c[i] == UnassignedSentinel {
			return true
		}
	}
	return false
}

// Merge joins rows that were split across a page break.
//
// It makes one forward pass over the data rows. A row is joined with the row
// before it when the two came from different pages, neither ends in the
// Unassigned sentinel, and at least one of them fails the complete-row shape
// check. Joining concatenates each content column with a single space and
// trims the result; the joined row keeps the later row's Identifier and page
// and takes the earlier row's place, so the pair becomes one row. The joined
// row is then the "previous" row for the next comparison.
//
// A pair in which either row is not as wide as the header is passed through
// unchanged. The header is never scanned. The input table is not modified.
func Merge(t Table) (Table, MergeReport) {
	var report MergeReport
	if t.Len() == 0 {
		return Table{}, report
	}

	width := t.Width()
	out := Table{
		Rows:  make([]Row, 0, t.Len()),
		Pages: make([]int, 0, t.Len()),
	}
	out.append(t.Rows[0].Clone(), t.Pages[0])

	var (
		prev     Row
		prevPage int
	)
	for i := 1; i < t.Len(); i++ {
		cur := normalizeRow(t.Rows[i])
		page := t.Pages[i]

		if prev != nil && page != prevPage {
			switch {
			case shouldSkipMerging(prev) || shouldSkipMerging(cur):
				report.SentinelSkips++
			case isCorrectRow(prev) && isCorrectRow(cur):
			case len(prev) != width || len(cur) != width:
				report.Malformed++
			default:
				cur = joinRows(prev, cur)
				last := out.Len() - 1
				out.Rows[last] = cur
				out.Pages[last] = page
				report.Merged++
				prev, prevPage = cur, page
				continue
			}
		}

		out.append(cur, page)
		prev, prevPage = cur, page
	}

	return out, report
}

// joinRows returns a row with b's Identifier and, for every content column,
// a's and b's cells joined by a space and trimmed.
func joinRows(a, b Row) Row {
	if len(b) == 0 {
		return b
	}
	out := make(Row, len(b))
	out[0] = b[0]
	for j := 1; j < len(b); j++ {
		out[j] = strings.TrimSpace(a[j] + " " + b[j])
	}
	return out
}
