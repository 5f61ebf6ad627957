package web

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/pdftable/internal/config"
	"github.com/JonMunkholm/pdftable/internal/core"
	"github.com/JonMunkholm/pdftable/internal/extract"
	"github.com/JonMunkholm/pdftable/internal/table"
)

var twoPageTable = []table.Page{
	{Number: 1, Rows: [][]string{{"Id", "Qty", "Name", "Kind"}, {"1", "2", "big", "red"}}},
	{Number: 2, Rows: [][]string{{"", "", "apple", "fruit"}}},
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{RequestTimeout: 5 * time.Second},
		Upload: config.UploadConfig{MaxFileSize: 1 << 20},
		Rate:   config.RateLimitConfig{Enabled: false},
		Security: config.SecurityConfig{
			EnableCSP: true,
		},
	}
}

type testEnv struct {
	server  *Server
	history *core.MemoryHistory
}

func newTestEnv(t *testing.T, pages []table.Page, cfg *config.Config, withHistory bool) *testEnv {
	t.Helper()

	env := &testEnv{}
	opts := core.Options{
		Source:      &extract.Static{Pages: pages},
		Backend:     extract.BackendText,
		MaxFileSize: cfg.Upload.MaxFileSize,
		Inspect: func(doc []byte) (extract.Info, error) {
			return extract.Info{Pages: len(pages), Size: len(doc)}, nil
		},
	}
	if withHistory {
		env.history = core.NewMemoryHistory(10)
		opts.History = env.history
	}

	svc, err := core.NewService(opts)
	require.NoError(t, err)
	env.server = NewServer(svc, cfg)
	return env
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, path, fileName string, content []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(uploadField, fileName)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHandleIndex(t *testing.T) {
	env := newTestEnv(t, twoPageTable, testConfig(), false)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), `action="/convert"`)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestConvertForm_ReturnsCSV(t *testing.T) {
	env := newTestEnv(t, twoPageTable, testConfig(), true)

	rec := env.do(uploadRequest(t, "/convert", "statement.pdf", []byte("%PDF-1.7")))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename=statement.csv`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "1", rec.Header().Get("X-Output-Rows"))
	assert.Equal(t, "Id,Qty,Name,Kind\n1,2,big apple,red fruit\n", rec.Body.String())

	id, err := uuid.Parse(rec.Header().Get("X-Conversion-ID"))
	require.NoError(t, err)
	c, err := env.history.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, c.Status)
	assert.Equal(t, "192.0.2.1", c.ClientIP)
}

func TestConvertForm_NoTable(t *testing.T) {
	env := newTestEnv(t, []table.Page{{Number: 1}}, testConfig(), false)

	rec := env.do(uploadRequest(t, "/convert", "blank.pdf", []byte("%PDF-1.7")))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), core.NoTableMessage)
	assert.Contains(t, rec.Body.String(), "PDF001")
}

func TestConvertForm_HTMXGetsPartial(t *testing.T) {
	env := newTestEnv(t, []table.Page{{Number: 1}}, testConfig(), false)

	req := uploadRequest(t, "/convert", "blank.pdf", []byte("%PDF-1.7"))
	req.Header.Set("HX-Request", "true")
	rec := env.do(req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), core.NoTableMessage)
	assert.NotContains(t, rec.Body.String(), "<form")
}

func TestConvertForm_MissingFile(t *testing.T) {
	env := newTestEnv(t, twoPageTable, testConfig(), false)

	req := httptest.NewRequest(http.MethodPost, "/convert", nil)
	rec := env.do(req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "FILE004")
}

func TestConvertAPI_Errors(t *testing.T) {
	tests := []struct {
		name       string
		pages      []table.Page
		content    []byte
		wantStatus int
		wantCode   string
	}{
		{
			name:       "no table",
			pages:      []table.Page{{Number: 1}, {Number: 2}},
			content:    []byte("%PDF-1.7"),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "PDF001",
		},
		{
			name:       "empty file",
			pages:      twoPageTable,
			content:    []byte{},
			wantStatus: http.StatusBadRequest,
			wantCode:   "FILE005",
		},
		{
			name:       "too large",
			pages:      twoPageTable,
			content:    bytes.Repeat([]byte("x"), 2<<20),
			wantStatus: http.StatusRequestEntityTooLarge,
			wantCode:   "FILE001",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.pages, testConfig(), false)

			rec := env.do(uploadRequest(t, "/api/convert", "doc.pdf", tt.content))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestConversionsAPI(t *testing.T) {
	env := newTestEnv(t, twoPageTable, testConfig(), true)

	conv := env.do(uploadRequest(t, "/api/convert", "a.pdf", []byte("%PDF-1.7")))
	require.Equal(t, http.StatusOK, conv.Code)
	id := conv.Header().Get("X-Conversion-ID")

	t.Run("list", func(t *testing.T) {
		rec := env.do(httptest.NewRequest(http.MethodGet, "/api/conversions?limit=5", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Conversions []core.Conversion `json:"conversions"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body.Conversions, 1)
		assert.Equal(t, id, body.Conversions[0].ID.String())
		assert.Equal(t, 1, body.Conversions[0].OutputRows)
	})

	t.Run("get", func(t *testing.T) {
		rec := env.do(httptest.NewRequest(http.MethodGet, "/api/conversions/"+id, nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var c core.Conversion
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
		assert.Equal(t, "a.pdf", c.FileName)
		assert.Equal(t, extract.BackendText, c.Backend)
	})

	t.Run("unknown id", func(t *testing.T) {
		rec := env.do(httptest.NewRequest(http.MethodGet, "/api/conversions/"+uuid.NewString(), nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		rec := env.do(httptest.NewRequest(http.MethodGet, "/api/conversions/not-a-uuid", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestConversionsAPI_HistoryDisabled(t *testing.T) {
	env := newTestEnv(t, twoPageTable, testConfig(), false)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/conversions", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "CONV005", resp.Code)
}

func TestStatusAndHealth(t *testing.T) {
	env := newTestEnv(t, twoPageTable, testConfig(), true)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var status StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, extract.BackendText, status.Backend)
	assert.True(t, status.HistoryEnabled)
	assert.Equal(t, int64(1<<20), status.MaxFileSize)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAPIKeyRequired(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RequireAPIKey = true
	cfg.Security.APIKeys = []string{"secret"}
	env := newTestEnv(t, twoPageTable, cfg, false)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/status", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("X-API-Key", "wrong")
	assert.Equal(t, http.StatusForbidden, env.do(req).Code)

	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("X-API-Key", "secret")
	assert.Equal(t, http.StatusOK, env.do(req).Code)

	// Health checks stay open.
	assert.Equal(t, http.StatusOK, env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code)
}

func TestBasicAuthProtectsPages(t *testing.T) {
	cfg := testConfig()
	cfg.Security.BasicAuthUsers = []string{"alice:pw"}
	env := newTestEnv(t, twoPageTable, cfg, false)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.SetBasicAuth("alice", "pw")
	assert.Equal(t, http.StatusOK, env.do(req).Code)
}

func TestConvertRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 100, UploadLimit: 1}
	env := newTestEnv(t, twoPageTable, cfg, false)

	first := env.do(uploadRequest(t, "/api/convert", "a.pdf", []byte("%PDF-1.7")))
	require.Equal(t, http.StatusOK, first.Code)

	second := env.do(uploadRequest(t, "/api/convert", "a.pdf", []byte("%PDF-1.7")))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "60", second.Header().Get("Retry-After"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &resp))
	assert.Equal(t, "RATE001", resp.Code)
}

func TestRateLimiter_RefillsAndSweeps(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := newRateLimiter(2)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.allow("a"))
	assert.True(t, rl.allow("a"))
	assert.False(t, rl.allow("a"))
	assert.True(t, rl.allow("b"), "clients have separate buckets")

	now = now.Add(30 * time.Second)
	assert.True(t, rl.allow("a"), "one token refills every 30s")

	now = now.Add(visitorTTL + time.Second)
	rl.allow("c")
	rl.mu.Lock()
	_, kept := rl.visitors["a"]
	rl.mu.Unlock()
	assert.False(t, kept, "idle visitors are swept")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{table.ErrEmptyAfterFilter, http.StatusUnprocessableEntity},
		{extract.ErrInvalidPDF, http.StatusBadRequest},
		{core.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
		{core.ErrTooManyConversions, http.StatusServiceUnavailable},
		{core.ErrConversionNotFound, http.StatusNotFound},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{assert.AnError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), "statusFor(%v)", tt.err)
	}
}

func TestRespondError_LogLevel(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })

	env := newTestEnv(t, twoPageTable, testConfig(), false)

	tests := []struct {
		name  string
		err   error
		level string
	}{
		{"mapped client error", extract.ErrInvalidPDF, "INFO"},
		{"mapped server error", core.ErrTooManyConversions, "INFO"},
		{"unmapped", assert.AnError, "ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			req := httptest.NewRequest(http.MethodPost, "/api/convert", nil)
			env.server.respondError(httptest.NewRecorder(), req, tt.err)

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			assert.Equal(t, tt.level, entry["level"])
			assert.Equal(t, core.MapError(tt.err).Code, entry["code"])
		})
	}
}
