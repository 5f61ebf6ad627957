package extract

import (
	"context"
	"fmt"
	"os"

	"github.com/tsawler/tabula/model"
	"github.com/tsawler/tabula/reader"
	"github.com/tsawler/tabula/tables"
	"github.com/tsawler/tabula/text"

	"github.com/JonMunkholm/pdftable/internal/table"
)

// TabulaSource detects tables with tabula's geometric detector.
type TabulaSource struct {
	config tables.Config
}

// NewTabulaSource returns a TabulaSource tuned by cfg.
func NewTabulaSource(cfg Config) *TabulaSource {
	tc := tables.DefaultConfig()
	if cfg.MinConfidence > 0 {
		tc.MinConfidence = cfg.MinConfidence
	}
	return &TabulaSource{config: tc}
}

// Tables reads every page of doc and returns the largest detected table of
// each. The tabula reader works on files, so doc is spooled to a temporary
// file for the duration of the call.
func (s *TabulaSource) Tables(ctx context.Context, doc []byte) ([]table.Page, error) {
	f, err := os.CreateTemp("", "pdftable-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(doc); err != nil {
		f.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}

	r, err := reader.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %w", ErrInvalidPDF, err)
	}
	defer r.Close()

	count, err := r.PageCount()
	if err != nil {
		return nil, fmt.Errorf("page count: %w", err)
	}

	detector := tables.NewGeometricDetector()
	if err := detector.Configure(s.config); err != nil {
		return nil, fmt.Errorf("configure detector: %w", err)
	}

	pages := make([]table.Page, 0, count)
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := s.extractPage(r, detector, i)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		pages = append(pages, page)
	}

	return pages, nil
}

// extractPage detects the tables of the page at zero-based index.
func (s *TabulaSource) extractPage(r *reader.Reader, detector *tables.GeometricDetector, index int) (table.Page, error) {
	out := table.Page{Number: index + 1}

	pg, err := r.GetPage(index)
	if err != nil {
		return out, err
	}

	fragments, err := r.ExtractTextFragments(pg)
	if err != nil {
		return out, err
	}
	if len(fragments) == 0 {
		return out, nil
	}

	width, _ := pg.Width()
	height, _ := pg.Height()
	mp := model.NewPage(width, height)
	mp.Number = index + 1
	mp.RawText = toModelFragments(fragments)

	detected, err := detector.Detect(mp)
	if err != nil {
		return out, err
	}

	grids := make([][][]string, 0, len(detected))
	for _, t := range detected {
		if t.Confidence < s.config.MinConfidence {
			continue
		}
		grids = append(grids, cellText(t))
	}
	out.Rows = largest(grids)

	return out, nil
}

func toModelFragments(fragments []text.TextFragment) []model.TextFragment {
	out := make([]model.TextFragment, len(fragments))
	for i, f := range fragments {
		out[i] = model.TextFragment{
			Text:     f.Text,
			BBox:     model.BBox{X: f.X, Y: f.Y, Width: f.Width, Height: f.Height},
			FontSize: f.FontSize,
			FontName: f.FontName,
		}
	}
	return out
}

// cellText returns t's cells as strings. Empty tables yield nil.
func cellText(t *model.Table) [][]string {
	if t.RowCount() == 0 {
		return nil
	}
	rows := make([][]string, 0, t.RowCount())
	for _, r := range t.Rows {
		cells := make([]string, len(r))
		for j, c := range r {
			cells[j] = cleanCell(c.Text)
		}
		rows = append(rows, cells)
	}
	return rows
}
