package core

// error_messages.go maps technical errors to messages a user can act on.
// Each message carries a code that can be quoted to support.
//
// # Document Errors (PDF001-PDF099)
//
//	PDF001 - No tables found in the PDF.
//	         Cause: no page yielded a table, or no data rows survived cleanup
//	PDF002 - The file is not a readable PDF
//	         Cause: extract.ErrInvalidPDF
//	PDF003 - Tables could not be extracted from this PDF
//	         Cause: ErrExtractionFailed
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File exceeds the maximum size limit
//	FILE004 - No file was selected
//	FILE005 - The uploaded file is empty
//
// # Conversion Errors (CONV001-CONV099)
//
//	CONV001 - System busy: every conversion slot is taken
//	CONV002 - Request was cancelled
//	CONV003 - Request timed out
//	CONV004 - Conversion record not found
//	CONV005 - Conversion history is disabled
//
// # Access Errors
//
//	AUTH001 - Missing or invalid credentials
//	RATE001 - Too many requests
//
// # Infrastructure Errors (DB001-DB099)
//
//	DB001 - History database unreachable
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Check the server log for the technical error.
//
// Sentinel errors are matched with errors.Is first. Errors that only carry a
// message (from libraries or middleware) are matched case-insensitively by
// substring, first match wins.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/pdftable/internal/extract"
	"github.com/JonMunkholm/pdftable/internal/table"
)

// UserMessage is an error described for the person who caused it.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Support reference
}

// NoTableMessage is shown when a document yields no usable table.
const NoTableMessage = "No tables found in the PDF."

var (
	msgNoTable = UserMessage{
		Message: NoTableMessage,
		Action:  "Check that the document contains a table with selectable text",
		Code:    "PDF001",
	}
	msgInvalidPDF = UserMessage{
		Message: "The file is not a readable PDF",
		Action:  "Upload a PDF document that opens in a PDF viewer",
		Code:    "PDF002",
	}
	msgExtraction = UserMessage{
		Message: "Tables could not be extracted from this PDF",
		Action:  "Try the text extraction backend or a different export of the document",
		Code:    "PDF003",
	}
	msgTooLarge = UserMessage{
		Message: "File exceeds the maximum size limit",
		Action:  "Split the document into smaller files",
		Code:    "FILE001",
	}
	msgNoFile = UserMessage{
		Message: "No file was selected",
		Action:  "Please select a PDF file to convert",
		Code:    "FILE004",
	}
	msgEmpty = UserMessage{
		Message: "The uploaded file is empty",
		Action:  "Please upload a PDF that contains a table",
		Code:    "FILE005",
	}
	msgBusy = UserMessage{
		Message: "System is busy converting other documents",
		Action:  "Please wait a moment and try again",
		Code:    "CONV001",
	}
	msgCancelled = UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "CONV002",
	}
	msgTimeout = UserMessage{
		Message: "Request timed out",
		Action:  "Try a smaller document or try again later",
		Code:    "CONV003",
	}
	msgNotFound = UserMessage{
		Message: "Conversion record not found",
		Action:  "The record may have expired",
		Code:    "CONV004",
	}
	msgHistoryOff = UserMessage{
		Message: "Conversion history is disabled",
		Action:  "Configure DATABASE_URL to keep conversion history",
		Code:    "CONV005",
	}
)

// sentinelMessages maps wrapped sentinel errors to user messages.
// More specific errors come first.
var sentinelMessages = []struct {
	target error
	msg    UserMessage
}{
	{table.ErrNoTableFound, msgNoTable},
	{extract.ErrInvalidPDF, msgInvalidPDF},
	{ErrExtractionFailed, msgExtraction},
	{ErrFileTooLarge, msgTooLarge},
	{ErrNoFile, msgNoFile},
	{ErrEmptyFile, msgEmpty},
	{ErrTooManyConversions, msgBusy},
	{ErrConversionNotFound, msgNotFound},
	{ErrHistoryDisabled, msgHistoryOff},
	{context.Canceled, msgCancelled},
	{context.DeadlineExceeded, msgTimeout},
}

// errorPatterns matches errors that reach MapError as plain text.
var errorPatterns = []struct {
	pattern string
	msg     UserMessage
}{
	{"no tables found", msgNoTable},
	{"file too large", msgTooLarge},
	{"request body too large", msgTooLarge},
	{"no file provided", msgNoFile},
	{"too many conversions", msgBusy},
	{"unauthorized", UserMessage{
		Message: "Missing or invalid credentials",
		Action:  "Provide a valid API key or sign in",
		Code:    "AUTH001",
	}},
	{"rate limit", UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "RATE001",
	}},
	{"connection refused", UserMessage{
		Message: "Conversion history is temporarily unavailable",
		Action:  "Please try again in a few moments",
		Code:    "DB001",
	}},
	{"context deadline exceeded", msgTimeout},
	{"context canceled", msgCancelled},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts err to a user message. Nil maps to the zero UserMessage.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.target) {
			return sm.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user message.
// Error returns the user message; Unwrap returns the technical error.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err with MapError. It returns nil for a nil err.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
