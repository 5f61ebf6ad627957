package web

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/JonMunkholm/pdftable/internal/core"
	"github.com/JonMunkholm/pdftable/internal/logging"
	"github.com/JonMunkholm/pdftable/internal/web/templates"
)

// uploadField is the multipart field carrying the PDF.
const uploadField = "file"

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// handleIndex serves the upload page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderUploadPage(w, r, core.UserMessage{}, http.StatusOK)
}

func (s *Server) renderUploadPage(w http.ResponseWriter, r *http.Request, alert core.UserMessage, status int) {
	data := templates.UploadPageData{
		MaxFileSizeMB: s.cfg.Upload.MaxFileSize >> 20,
		Backend:       s.service.Backend(),
		Error: templates.Alert{
			Message: alert.Message,
			Action:  alert.Action,
			Code:    alert.Code,
		},
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.UploadPage(data).Render(r.Context(), w); err != nil {
		s.logRenderError(r, err)
	}
}

// handleConvertForm converts the uploaded PDF and returns the CSV as a
// download. Failures re-render the upload page with the message.
func (s *Server) handleConvertForm(w http.ResponseWriter, r *http.Request) {
	s.convert(w, r)
}

// handleConvertAPI is handleConvertForm for API clients: same CSV on
// success, ErrorResponse JSON on failure.
func (s *Server) handleConvertAPI(w http.ResponseWriter, r *http.Request) {
	s.convert(w, r)
}

func (s *Server) convert(w http.ResponseWriter, r *http.Request) {
	name, data, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	ctx := withRequestInfo(r.Context(), r)
	res, err := s.service.Convert(ctx, core.ConvertRequest{FileName: name, Data: data})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/csv; charset=utf-8")
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": res.FileName}))
	h.Set("Content-Length", strconv.Itoa(len(res.CSV)))
	h.Set("X-Conversion-ID", res.ID.String())
	h.Set("X-Output-Rows", strconv.Itoa(res.OutputRows))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.CSV)
}

// readUpload returns the name and content of the uploaded file.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, error) {
	limit := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return "", nil, fmt.Errorf("%w: request exceeds %d bytes", core.ErrFileTooLarge, tooLarge.Limit)
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			return "", nil, core.ErrNoFile
		default:
			return "", nil, fmt.Errorf("read upload: %w", err)
		}
	}
	defer file.Close()

	if header.Size > limit {
		return "", nil, fmt.Errorf("%w: %d bytes exceeds the %d byte limit", core.ErrFileTooLarge, header.Size, limit)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, fmt.Errorf("read upload: %w", err)
	}
	return header.Filename, data, nil
}

// handleListConversions returns recent conversion records, newest first.
// The optional "limit" query parameter caps the count.
func (s *Server) handleListConversions(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", defaultListLimit)
	if limit > maxListLimit {
		limit = maxListLimit
	}

	list, err := s.service.Conversions(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if list == nil {
		list = []core.Conversion{}
	}

	writeJSON(w, r, map[string]any{"conversions": list})
}

func (s *Server) handleGetConversion(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, core.ErrConversionNotFound)
		return
	}

	c, err := s.service.Conversion(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, c)
}

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	Backend        string             `json:"backend"`
	HistoryEnabled bool               `json:"history_enabled"`
	MaxFileSize    int64              `json:"max_file_size"`
	Conversions    core.LimiterStatus `json:"conversions"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, StatusResponse{
		Backend:        s.service.Backend(),
		HistoryEnabled: s.service.HistoryEnabled(),
		MaxFileSize:    s.cfg.Upload.MaxFileSize,
		Conversions:    s.service.LimiterStatus(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, map[string]string{"status": "ok"})
}

// parseIntParam parses a positive integer query parameter, falling back to
// defaultVal when it is missing or invalid.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

func (s *Server) logRenderError(r *http.Request, err error) {
	logging.FromContext(r.Context()).Error("render failed", "error", err)
}
