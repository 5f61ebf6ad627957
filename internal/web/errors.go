package web

// errors.go turns handler errors into responses. The technical error is
// logged with the request ID; the client gets the mapped user message,
// rendered for the kind of client that asked:
//
//   - HTMX requests get an alert fragment
//   - API and JSON clients get ErrorResponse
//   - browsers get the upload page with the alert above the form

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/pdftable/internal/core"
	"github.com/JonMunkholm/pdftable/internal/extract"
	"github.com/JonMunkholm/pdftable/internal/logging"
	"github.com/JonMunkholm/pdftable/internal/table"
	"github.com/JonMunkholm/pdftable/internal/web/templates"
)

// ErrorResponse is the JSON body of API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor picks the HTTP status for err.
func statusFor(err error) int {
	switch {
	case errors.Is(err, table.ErrNoTableFound),
		errors.Is(err, core.ErrExtractionFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, extract.ErrInvalidPDF),
		errors.Is(err, core.ErrNoFile),
		errors.Is(err, core.ErrEmptyFile):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrTooManyConversions):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrConversionNotFound),
		errors.Is(err, core.ErrHistoryDisabled):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes the user message with statusFor(err).
// Errors without a specific user message are logged at error level.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	userMsg := core.MapError(err)

	log := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
	}
	if core.IsUserFacing(err) {
		log.Info("request rejected", attrs...)
	} else {
		log.Error("request error", attrs...)
	}

	if errors.Is(err, core.ErrTooManyConversions) {
		w.Header().Set("Retry-After", "10")
	}

	switch {
	case isHTMX(r):
		renderErrorPartial(w, r, userMsg, status)
	case wantsJSON(r):
		respondErrorJSON(w, userMsg, status)
	default:
		s.renderUploadPage(w, r, userMsg, status)
	}
}

func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

func renderErrorPartial(w http.ResponseWriter, r *http.Request, msg core.UserMessage, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w)
}

// writeError writes a short error outside the core error mapping, such as
// from the rate limiter.
func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	if wantsJSON(r) {
		respondErrorJSON(w, core.MapError(errors.New(message)), status)
		return
	}
	http.Error(w, message, status)
}

// writeJSON encodes v as the response body.
func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("json encode error", "error", err)
	}
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON reports whether the client expects a JSON body.
func wantsJSON(r *http.Request) bool {
	if isAPI(r) {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
