// Package core provides the conversion service behind the web server and
// the command line tool.
//
// A conversion runs one PDF through a fixed pipeline:
//
//  1. [extract.Inspect] checks the document and counts its pages.
//  2. An [extract.Source] returns the raw table of every page.
//  3. [table.Process] annotates rows with their page, merges rows split by
//     page breaks, drops duplicates and encodes the result as CSV.
//
// [Service.Convert] wraps the pipeline with the operational concerns:
// a size limit, a [ConversionLimiter] bounding parallel conversions, a
// per-conversion timeout and a [HistoryStore] recording each outcome.
// History keeps counts and metadata only; table content never outlives the
// request.
//
// # Error Handling
//
// Failures are returned as wrapped sentinel errors. [MapError] turns any of
// them into a [UserMessage] with a support code:
//
//   - PDF001-PDF003: document errors (no table, unreadable, extraction)
//   - FILE001-FILE005: upload errors (size, missing, empty)
//   - CONV001-CONV005: service errors (busy, cancelled, timeout, history)
//
// A document without a usable table is an expected outcome, reported as
// PDF001 "No tables found in the PDF.", not a server error.
package core
