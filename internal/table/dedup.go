package table

import (
	"strconv"
	"strings"
)

// Dedup drops every row whose content repeats an earlier row's content
// exactly. The Identifier column is ignored and no normalisation is applied,
// so comparison is case and whitespace sensitive. The header is always kept
// and counts as the first occurrence of its content, which removes reprinted
// header rows. Order is preserved. It returns the filtered table and the
// number of rows dropped.
func Dedup(t Table) (Table, int) {
	if t.Len() == 0 {
		return Table{}, 0
	}

	out := Table{
		Rows:  make([]Row, 0, t.Len()),
		Pages: make([]int, 0, t.Len()),
	}
	seen := make(map[string]struct{}, t.Len())
	dropped := 0

	for i, r := range t.Rows {
		key := contentKey(r)
		if _, dup := seen[key]; dup && i > 0 {
			dropped++
			continue
		}
		seen[key] = struct{}{}
		out.append(r, t.Pages[i])
	}

	return out, dropped
}

// contentKey encodes a row's content cells so that two rows share a key only
// when their cells are identical. Each cell is length-prefixed.
func contentKey(r Row) string {
	var b strings.Builder
	for _, c := range r.Content() {
		b.WriteString(strconv.Itoa(len(c)))
		b.WriteByte(':')
		b.WriteString(c)
	}
	return b.String()
}
