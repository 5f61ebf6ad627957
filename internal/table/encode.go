package table

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
)

// Encode renders t as CSV without the Identifier column. The header row is
// written first, then every data row in order.
func Encode(t Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteCSV writes t to w in the format produced by Encode.
func WriteCSV(w io.Writer, t Table) error {
	if t.Len() == 0 {
		return ErrNoHeader
	}

	cw := csv.NewWriter(w)
	for i, r := range t.Rows {
		if err := cw.Write(r.Content()); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
