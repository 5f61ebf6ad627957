package extract

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

func init() {
	// Keep pdfcpu from creating a config directory under $HOME.
	model.ConfigPath = "disable"
}

var pdfMagic = []byte("%PDF-")

// Info describes a document before extraction.
type Info struct {
	Pages int
	Size  int
}

// Inspect checks that doc is a readable PDF and counts its pages.
// Any failure is reported as ErrInvalidPDF.
func Inspect(doc []byte) (Info, error) {
	if len(doc) == 0 {
		return Info{}, fmt.Errorf("%w: empty document", ErrInvalidPDF)
	}
	if !bytes.HasPrefix(bytes.TrimLeft(doc, " \t\r\n\x00"), pdfMagic) {
		return Info{}, fmt.Errorf("%w: missing %%PDF- header", ErrInvalidPDF)
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	n, err := api.PageCount(bytes.NewReader(doc), conf)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %w", ErrInvalidPDF, err)
	}

	return Info{Pages: n, Size: len(doc)}, nil
}
