package core

import "errors"

var (
	// ErrTooManyConversions is returned when every conversion slot stays
	// occupied for the limiter's wait time. Clients should retry shortly.
	ErrTooManyConversions = errors.New("too many conversions in progress, please try again later")

	// ErrFileTooLarge is returned for documents above the size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrEmptyFile is returned for zero-byte uploads.
	ErrEmptyFile = errors.New("empty file")

	// ErrNoFile is returned when a request carries no document at all.
	ErrNoFile = errors.New("no file provided")

	// ErrExtractionFailed wraps backend failures on an otherwise valid PDF.
	ErrExtractionFailed = errors.New("table extraction failed")

	// ErrConversionNotFound is returned by HistoryStore.Get for unknown ids.
	ErrConversionNotFound = errors.New("conversion not found")

	// ErrHistoryDisabled is returned by history lookups when no store is
	// configured.
	ErrHistoryDisabled = errors.New("conversion history is disabled")
)
