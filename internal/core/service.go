package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/pdftable/internal/extract"
	"github.com/JonMunkholm/pdftable/internal/logging"
	"github.com/JonMunkholm/pdftable/internal/table"
)

// historyWriteTimeout bounds recording a finished conversion. Recording
// outlives the request context so a client disconnect still leaves a record.
const historyWriteTimeout = 5 * time.Second

// Options configures a Service. Only Source is required.
type Options struct {
	// Source extracts per-page tables from a document.
	Source extract.Source

	// Backend names Source in history records.
	Backend string

	// Limiter bounds concurrent conversions. Nil means unbounded.
	Limiter *ConversionLimiter

	// History records finished conversions. Nil disables history.
	History HistoryStore

	// MaxFileSize rejects larger documents. Zero means no limit.
	MaxFileSize int64

	// Timeout bounds one conversion after it gets a slot. Zero means none.
	Timeout time.Duration

	// Inspect validates a document before extraction.
	// Defaults to extract.Inspect.
	Inspect func(doc []byte) (extract.Info, error)
}

// Service converts PDF documents into cleaned CSV tables.
type Service struct {
	source      extract.Source
	backend     string
	limiter     *ConversionLimiter
	history     HistoryStore
	maxFileSize int64
	timeout     time.Duration
	inspect     func([]byte) (extract.Info, error)
	now         func() time.Time
}

// NewService returns a Service configured by opts.
func NewService(opts Options) (*Service, error) {
	if opts.Source == nil {
		return nil, errors.New("core: Options.Source is required")
	}

	s := &Service{
		source:      opts.Source,
		backend:     opts.Backend,
		limiter:     opts.Limiter,
		history:     opts.History,
		maxFileSize: opts.MaxFileSize,
		timeout:     opts.Timeout,
		inspect:     opts.Inspect,
		now:         time.Now,
	}
	if s.inspect == nil {
		s.inspect = extract.Inspect
	}
	if s.backend == "" {
		s.backend = extract.BackendTabula
	}
	return s, nil
}

// ConvertRequest is one document to convert.
type ConvertRequest struct {
	FileName string
	Data     []byte
}

// ConvertResult is a finished conversion.
type ConvertResult struct {
	ID            uuid.UUID         `json:"id"`
	FileName      string            `json:"file_name"`
	CSV           []byte            `json:"-"`
	Pages         int               `json:"pages"`
	ExtractedRows int               `json:"extracted_rows"`
	Merge         table.MergeReport `json:"merge"`
	Duplicates    int               `json:"duplicates"`
	OutputRows    int               `json:"output_rows"`
	Duration      time.Duration     `json:"duration"`
}

// Convert runs one document through extraction and table cleanup and
// returns the CSV. A document without a usable table fails with an error
// matching table.ErrNoTableFound.
//
// Convert waits for a limiter slot first; ctx bounds that wait as well as
// extraction. Every conversion that gets a slot is recorded in history,
// whatever its outcome.
func (s *Service) Convert(ctx context.Context, req ConvertRequest) (*ConvertResult, error) {
	start := s.now()
	id := uuid.New()
	log := logging.WithFields(ctx, "conversion_id", id.String(), "file", req.FileName)

	if err := s.validate(req); err != nil {
		log.Warn("conversion rejected", "error", err, "size", len(req.Data))
		return nil, err
	}

	if s.limiter != nil {
		if err := s.limiter.Acquire(ctx); err != nil {
			log.Warn("conversion rejected", "error", err)
			return nil, err
		}
		defer s.limiter.Release()
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	sum := sha256.Sum256(req.Data)
	client := RequestInfoFromContext(ctx)
	rec := Conversion{
		ID:        id,
		FileName:  req.FileName,
		FileSize:  int64(len(req.Data)),
		SHA256:    hex.EncodeToString(sum[:]),
		Backend:   s.backend,
		ClientIP:  client.IP,
		UserAgent: client.UserAgent,
		CreatedAt: start.UTC(),
	}

	log.Info("conversion started", "size", len(req.Data), "backend", s.backend)

	res, err := s.run(ctx, req.Data, &rec)
	rec.DurationMS = s.now().Sub(start).Milliseconds()
	s.record(ctx, log, rec, err)

	if err != nil {
		if errors.Is(err, table.ErrNoTableFound) {
			log.Info("conversion found no table", "pages", rec.Pages, "extracted_rows", rec.ExtractedRows)
		} else {
			log.Error("conversion failed", "error", err, "duration_ms", rec.DurationMS)
		}
		return nil, err
	}

	res.ID = id
	res.FileName = OutputName(req.FileName)
	res.Duration = s.now().Sub(start)

	log.Info("conversion completed",
		"pages", res.Pages,
		"extracted_rows", res.ExtractedRows,
		"merged", res.Merge.Merged,
		"malformed", res.Merge.Malformed,
		"duplicates", res.Duplicates,
		"output_rows", res.OutputRows,
		"duration_ms", rec.DurationMS,
	)
	return res, nil
}

func (s *Service) validate(req ConvertRequest) error {
	if req.Data == nil {
		return ErrNoFile
	}
	if len(req.Data) == 0 {
		return ErrEmptyFile
	}
	if s.maxFileSize > 0 && int64(len(req.Data)) > s.maxFileSize {
		return fmt.Errorf("%w: %d bytes exceeds the %d byte limit", ErrFileTooLarge, len(req.Data), s.maxFileSize)
	}
	return nil
}

// run performs the conversion and fills rec's counts as it goes.
func (s *Service) run(ctx context.Context, doc []byte, rec *Conversion) (*ConvertResult, error) {
	info, err := s.inspect(doc)
	if err != nil {
		return nil, err
	}
	rec.Pages = info.Pages

	pages, err := s.source.Tables(ctx, doc)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("extract tables: %w", ctxErr)
		}
		if errors.Is(err, extract.ErrInvalidPDF) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}
	if rec.Pages == 0 {
		rec.Pages = len(pages)
	}

	out, err := table.Process(pages)
	if err != nil {
		rec.ExtractedRows = table.Annotate(pages).DataRows()
		return nil, err
	}

	rec.ExtractedRows = out.Extracted
	rec.MergedRows = out.Merge.Merged
	rec.SentinelSkips = out.Merge.SentinelSkips
	rec.MalformedRows = out.Merge.Malformed
	rec.Duplicates = out.Duplicates
	rec.OutputRows = out.Table.DataRows()

	return &ConvertResult{
		CSV:           out.CSV,
		Pages:         rec.Pages,
		ExtractedRows: out.Extracted,
		Merge:         out.Merge,
		Duplicates:    out.Duplicates,
		OutputRows:    rec.OutputRows,
	}, nil
}

// record stores rec with its outcome. Failures are logged, never returned.
func (s *Service) record(ctx context.Context, log *slog.Logger, rec Conversion, convErr error) {
	if s.history == nil {
		return
	}

	switch {
	case convErr == nil:
		rec.Status = StatusCompleted
	case errors.Is(convErr, table.ErrNoTableFound):
		rec.Status = StatusNoTable
		rec.ErrorCode = MapError(convErr).Code
	default:
		rec.Status = StatusFailed
		rec.ErrorCode = MapError(convErr).Code
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyWriteTimeout)
	defer cancel()

	if err := s.history.Record(ctx, rec); err != nil {
		log.Warn("failed to record conversion history", "error", err)
	}
}

// Conversions returns up to limit recent history records, newest first.
func (s *Service) Conversions(ctx context.Context, limit int) ([]Conversion, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	return s.history.List(ctx, limit)
}

// Conversion returns the history record with the given id.
func (s *Service) Conversion(ctx context.Context, id uuid.UUID) (Conversion, error) {
	if s.history == nil {
		return Conversion{}, ErrHistoryDisabled
	}
	return s.history.Get(ctx, id)
}

// LimiterStatus reports conversion slot usage. Without a limiter every
// field is zero.
func (s *Service) LimiterStatus() LimiterStatus {
	if s.limiter == nil {
		return LimiterStatus{}
	}
	return s.limiter.Status()
}

// Backend returns the configured extraction backend name.
func (s *Service) Backend() string {
	return s.backend
}

// HistoryEnabled reports whether conversions are recorded.
func (s *Service) HistoryEnabled() bool {
	return s.history != nil
}

// OutputName derives the CSV download name from an uploaded file name:
// the base name with its extension replaced by ".csv". Names that reduce to
// nothing become "output.csv".
func OutputName(fileName string) string {
	base := fileName
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	base = strings.TrimSuffix(base, path.Ext(base))

	base = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || r == '"' || r == ';' {
			return -1
		}
		return r
	}, base)
	base = strings.TrimSpace(base)

	if base == "" || base == "." || base == ".." {
		base = "output"
	}
	return base + ".csv"
}
