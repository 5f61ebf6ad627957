package extract

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/JonMunkholm/pdftable/internal/table"
)

// TextSource builds tables from glyph positions. It suits PDFs whose tables
// are drawn without ruling lines, where cells are separated by whitespace.
type TextSource struct {
	rowTolerance float64
	columnGap    float64
}

// NewTextSource returns a TextSource tuned by cfg.
func NewTextSource(cfg Config) *TextSource {
	def := DefaultConfig()
	s := &TextSource{rowTolerance: def.RowTolerance, columnGap: def.ColumnGap}
	if cfg.RowTolerance > 0 {
		s.rowTolerance = cfg.RowTolerance
	}
	if cfg.ColumnGap > 0 {
		s.columnGap = cfg.ColumnGap
	}
	return s
}

// Tables reads every page of doc and lays its glyphs out as a table.
func (s *TextSource) Tables(ctx context.Context, doc []byte) ([]table.Page, error) {
	r, err := pdf.NewReader(bytes.NewReader(doc), int64(len(doc)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPDF, err)
	}

	count := r.NumPage()
	pages := make([]table.Page, 0, count)
	for i := 1; i <= count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		out := table.Page{Number: i}
		p := r.Page(i)
		if !p.V.IsNull() {
			out.Rows = s.layout(toGlyphs(p.Content().Text))
		}
		pages = append(pages, out)
	}

	return pages, nil
}

// glyph is one positioned piece of text.
type glyph struct {
	X, Y, W  float64
	FontSize float64
	S        string
}

func toGlyphs(texts []pdf.Text) []glyph {
	out := make([]glyph, 0, len(texts))
	for _, t := range texts {
		out = append(out, glyph{X: t.X, Y: t.Y, W: t.W, FontSize: t.FontSize, S: t.S})
	}
	return out
}

// segment is a run of glyphs on one line with no column gap inside it.
type segment struct {
	X    float64
	Text string
}

// layout groups glyphs into lines, splits lines into cells at column gaps,
// and aligns the cells of every line to the columns of the widest line.
// Lines with fewer than two cells are not part of the table. It returns nil
// when fewer than two table lines are found.
func (s *TextSource) layout(glyphs []glyph) [][]string {
	var lines [][]segment
	for _, line := range groupLines(glyphs, s.rowTolerance) {
		if segs := splitSegments(line, s.columnGap); len(segs) >= 2 {
			lines = append(lines, segs)
		}
	}
	if len(lines) < 2 {
		return nil
	}

	columns := lines[0]
	for _, l := range lines[1:] {
		if len(l) > len(columns) {
			columns = l
		}
	}

	rows := make([][]string, 0, len(lines))
	for _, l := range lines {
		cells := make([]string, len(columns))
		for _, seg := range l {
			c := nearestColumn(columns, seg.X)
			if cells[c] == "" {
				cells[c] = seg.Text
			} else {
				cells[c] += " " + seg.Text
			}
		}
		rows = append(rows, cells)
	}
	return rows
}

// groupLines sorts glyphs top to bottom, left to right and groups those whose
// baselines are within tolerance of the line's first glyph.
func groupLines(glyphs []glyph, tolerance float64) [][]glyph {
	if len(glyphs) == 0 {
		return nil
	}

	sorted := make([]glyph, len(glyphs))
	copy(sorted, glyphs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if math.Abs(sorted[i].Y-sorted[j].Y) > tolerance {
			return sorted[i].Y > sorted[j].Y
		}
		return sorted[i].X < sorted[j].X
	})

	var (
		lines [][]glyph
		cur   []glyph
		baseY float64
	)
	for _, g := range sorted {
		if len(cur) > 0 && math.Abs(g.Y-baseY) > tolerance {
			lines = append(lines, cur)
			cur = nil
		}
		if len(cur) == 0 {
			baseY = g.Y
		}
		cur = append(cur, g)
	}
	if len(cur) > 0 {
		lines = append(lines, cur)
	}

	for _, l := range lines {
		sort.SliceStable(l, func(i, j int) bool { return l[i].X < l[j].X })
	}
	return lines
}

// splitSegments splits a line into cells wherever the horizontal gap between
// consecutive glyphs is at least columnGap. Smaller gaps wider than a fifth
// of the font size become a single space.
func splitSegments(line []glyph, columnGap float64) []segment {
	var (
		segs []segment
		b    strings.Builder
		segX float64
		end  float64
	)
	flush := func() {
		if t := strings.Join(strings.Fields(cleanCell(b.String())), " "); t != "" {
			segs = append(segs, segment{X: segX, Text: t})
		}
		b.Reset()
	}

	for i, g := range line {
		if i > 0 {
			gap := g.X - end
			switch {
			case gap >= columnGap:
				flush()
			case gap > g.FontSize*0.2:
				b.WriteByte(' ')
			}
		}
		if b.Len() == 0 {
			segX = g.X
		}
		b.WriteString(g.S)
		end = g.X + g.W
	}
	flush()

	return segs
}

// nearestColumn returns the index of the column whose start is closest to x.
func nearestColumn(columns []segment, x float64) int {
	best, bestDist := 0, math.Inf(1)
	for i, c := range columns {
		if d := math.Abs(c.X - x); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}
