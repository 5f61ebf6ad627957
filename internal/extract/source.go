// Package extract turns PDF bytes into per-page raw tables.
//
// Two backends implement Source:
//
//   - "tabula" uses the tabula PDF reader and its geometric table detector.
//   - "text" reads glyph positions with ledongthuc/pdf and lays them out into
//     lines and column-aligned cells.
//
// Both return one table.Page per PDF page in page order. A page on which no
// table is found has nil Rows. When a detector finds several tables on one
// page the one with the most cells is used, since a document is expected to
// hold a single dataset.
package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/pdftable/internal/table"
)

// Backend names accepted by New.
const (
	BackendTabula = "tabula"
	BackendText   = "text"
)

var (
	// ErrUnknownBackend is returned by New for an unrecognised backend name.
	ErrUnknownBackend = errors.New("unknown extraction backend")

	// ErrInvalidPDF is returned when the document cannot be read as a PDF.
	ErrInvalidPDF = errors.New("invalid pdf")
)

// Source yields the raw table of every page of a PDF.
type Source interface {
	Tables(ctx context.Context, doc []byte) ([]table.Page, error)
}

// Config tunes the extraction backends.
type Config struct {
	// Backend is BackendTabula or BackendText.
	Backend string

	// MinConfidence is the tabula detector's acceptance threshold (0-1).
	MinConfidence float64

	// RowTolerance is the vertical distance in points within which glyphs
	// share a line (text backend).
	RowTolerance float64

	// ColumnGap is the horizontal gap in points that separates two cells
	// (text backend).
	ColumnGap float64
}

// DefaultConfig returns the configuration used when no overrides are given.
func DefaultConfig() Config {
	return Config{
		Backend:       BackendTabula,
		MinConfidence: 0.5,
		RowTolerance:  2.0,
		ColumnGap:     8.0,
	}
}

// New returns the Source named by cfg.Backend.
func New(cfg Config) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case BackendTabula, "":
		return NewTabulaSource(cfg), nil
	case BackendText:
		return NewTextSource(cfg), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}

// Static is a Source that returns fixed pages. It is used by tests and by
// callers that already hold extracted rows.
type Static struct {
	Pages []table.Page
	Err   error
}

// Tables returns s.Pages or s.Err.
func (s *Static) Tables(ctx context.Context, _ []byte) ([]table.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Pages, nil
}

// largest returns the grid with the most cells, or nil if grids is empty.
func largest(grids [][][]string) [][]string {
	var (
		best      [][]string
		bestCells = -1
	)
	for _, g := range grids {
		cells := 0
		for _, r := range g {
			cells += len(r)
		}
		if cells > bestCells {
			best, bestCells = g, cells
		}
	}
	return best
}
