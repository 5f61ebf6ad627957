// Package table repairs and flattens a multi-page table extracted from a PDF.
//
// A document is processed as a fixed sequence of whole-table stages:
//
//	pages -> Annotate -> Merge -> Dedup -> Encode
//
// Annotate flattens the per-page rows into one Table whose column 0 is a
// synthetic Identifier ("Identifier" for the header, "Page N" for data rows)
// and records the source page of every row.
//
// Merge repairs rows that the extractor split in two at a page break. The
// check is a shape heuristic: a complete row ends in two multi-word cells, so
// when either row of a cross-page pair does not, the pair is joined column by
// column. Rows ending in the "Unassigned" sentinel are never joined.
//
// Dedup drops rows whose content (Identifier excluded) exactly repeats an
// earlier row, and Encode renders the result as CSV without the Identifier
// column.
//
// Every stage is a pure function over data already in memory. Nothing in this
// package is shared between documents, so callers may convert any number of
// documents concurrently without synchronisation.
package table
