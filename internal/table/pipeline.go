package table

// Result is the outcome of Process.
type Result struct {
	// CSV is the encoded output.
	CSV []byte
	// Table is the final table, Identifier column included.
	Table Table
	// Extracted is the number of data rows Annotate produced.
	Extracted int
	// Merge reports what Merge did.
	Merge MergeReport
	// Duplicates is the number of rows Dedup dropped.
	Duplicates int
}

// Process runs Annotate, Merge, Dedup and Encode over one document's pages.
//
// It returns ErrNoTableFound when no page has a table and ErrEmptyAfterFilter
// when no data row is left to write.
func Process(pages []Page) (*Result, error) {
	annotated := Annotate(pages)
	if annotated.Len() == 0 {
		return nil, ErrNoTableFound
	}

	merged, report := Merge(annotated)
	final, dropped := Dedup(merged)
	if final.DataRows() == 0 {
		return nil, ErrEmptyAfterFilter
	}

	out, err := Encode(final)
	if err != nil {
		return nil, err
	}

	return &Result{
		CSV:        out,
		Table:      final,
		Extracted:  annotated.DataRows(),
		Merge:      report,
		Duplicates: dropped,
	}, nil
}
