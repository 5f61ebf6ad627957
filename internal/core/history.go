package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Conversion outcomes stored in history.
const (
	StatusCompleted = "completed"
	StatusNoTable   = "no_table"
	StatusFailed    = "failed"
)

// Conversion is the history record of one conversion. It holds counts and
// metadata only, never row content.
type Conversion struct {
	ID            uuid.UUID `json:"id"`
	FileName      string    `json:"file_name"`
	FileSize      int64     `json:"file_size"`
	SHA256        string    `json:"sha256"`
	Backend       string    `json:"backend"`
	Pages         int       `json:"pages"`
	ExtractedRows int       `json:"extracted_rows"`
	MergedRows    int       `json:"merged_rows"`
	SentinelSkips int       `json:"sentinel_skips"`
	MalformedRows int       `json:"malformed_rows"`
	Duplicates    int       `json:"duplicates"`
	OutputRows    int       `json:"output_rows"`
	Status        string    `json:"status"`
	ErrorCode     string    `json:"error_code,omitempty"`
	ClientIP      string    `json:"client_ip,omitempty"`
	UserAgent     string    `json:"user_agent,omitempty"`
	DurationMS    int64     `json:"duration_ms"`
	CreatedAt     time.Time `json:"created_at"`
}

// HistoryStore persists conversion records.
type HistoryStore interface {
	Record(ctx context.Context, c Conversion) error
	// List returns up to limit records, newest first.
	List(ctx context.Context, limit int) ([]Conversion, error)
	Get(ctx context.Context, id uuid.UUID) (Conversion, error)
	// Purge deletes records created before cutoff and returns how many.
	Purge(ctx context.Context, cutoff time.Time) (int64, error)
}

// ----------------------------------------------------------------------------
// In-memory store
// ----------------------------------------------------------------------------

// DefaultMemoryHistorySize is the record cap of a MemoryHistory built with a
// non-positive size.
const DefaultMemoryHistorySize = 500

// MemoryHistory keeps the most recent records in process memory. It is used
// when no database is configured and by tests.
type MemoryHistory struct {
	mu      sync.RWMutex
	records []Conversion
	max     int
}

// NewMemoryHistory returns a store holding at most max records.
func NewMemoryHistory(max int) *MemoryHistory {
	if max <= 0 {
		max = DefaultMemoryHistorySize
	}
	return &MemoryHistory{max: max}
}

func (m *MemoryHistory) Record(_ context.Context, c Conversion) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records = append(m.records, c)
	if over := len(m.records) - m.max; over > 0 {
		m.records = append(m.records[:0:0], m.records[over:]...)
	}
	return nil
}

func (m *MemoryHistory) List(_ context.Context, limit int) ([]Conversion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Conversion, len(m.records))
	copy(out, m.records)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryHistory) Get(_ context.Context, id uuid.UUID) (Conversion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, c := range m.records {
		if c.ID == id {
			return c, nil
		}
	}
	return Conversion{}, ErrConversionNotFound
}

func (m *MemoryHistory) Purge(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.records[:0]
	for _, c := range m.records {
		if !c.CreatedAt.Before(cutoff) {
			kept = append(kept, c)
		}
	}
	purged := int64(len(m.records) - len(kept))
	m.records = kept
	return purged, nil
}

// ----------------------------------------------------------------------------
// PostgreSQL store
// ----------------------------------------------------------------------------

const historySchema = `
CREATE TABLE IF NOT EXISTS conversion_history (
	id             UUID PRIMARY KEY,
	file_name      TEXT NOT NULL,
	file_size      BIGINT NOT NULL,
	sha256         TEXT NOT NULL,
	backend        TEXT NOT NULL,
	pages          INTEGER NOT NULL,
	extracted_rows INTEGER NOT NULL,
	merged_rows    INTEGER NOT NULL,
	sentinel_skips INTEGER NOT NULL,
	malformed_rows INTEGER NOT NULL,
	duplicates     INTEGER NOT NULL,
	output_rows    INTEGER NOT NULL,
	status         TEXT NOT NULL,
	error_code     TEXT NOT NULL DEFAULT '',
	client_ip      TEXT NOT NULL DEFAULT '',
	user_agent     TEXT NOT NULL DEFAULT '',
	duration_ms    BIGINT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS conversion_history_created_at_idx
	ON conversion_history (created_at DESC);
`

const historyColumns = `id::text, file_name, file_size, sha256, backend, pages,
	extracted_rows, merged_rows, sentinel_skips, malformed_rows, duplicates,
	output_rows, status, error_code, client_ip, user_agent, duration_ms, created_at`

// PostgresHistory stores records in the conversion_history table.
type PostgresHistory struct {
	pool *pgxpool.Pool
}

// NewPostgresHistory returns a store backed by pool. Call EnsureSchema once
// before use.
func NewPostgresHistory(pool *pgxpool.Pool) *PostgresHistory {
	return &PostgresHistory{pool: pool}
}

// EnsureSchema creates the history table if it does not exist.
func (p *PostgresHistory) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, historySchema); err != nil {
		return fmt.Errorf("create conversion_history: %w", err)
	}
	return nil
}

func (p *PostgresHistory) Record(ctx context.Context, c Conversion) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO conversion_history (
			id, file_name, file_size, sha256, backend, pages,
			extracted_rows, merged_rows, sentinel_skips, malformed_rows, duplicates,
			output_rows, status, error_code, client_ip, user_agent, duration_ms, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		c.ID.String(), c.FileName, c.FileSize, c.SHA256, c.Backend, c.Pages,
		c.ExtractedRows, c.MergedRows, c.SentinelSkips, c.MalformedRows, c.Duplicates,
		c.OutputRows, c.Status, c.ErrorCode, c.ClientIP, c.UserAgent, c.DurationMS, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record conversion %s: %w", c.ID, err)
	}
	return nil
}

func (p *PostgresHistory) List(ctx context.Context, limit int) ([]Conversion, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := p.pool.Query(ctx,
		`SELECT `+historyColumns+` FROM conversion_history ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list conversions: %w", err)
	}
	defer rows.Close()

	var out []Conversion
	for rows.Next() {
		c, err := scanConversion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversion: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (p *PostgresHistory) Get(ctx context.Context, id uuid.UUID) (Conversion, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT `+historyColumns+` FROM conversion_history WHERE id = $1`, id.String())

	c, err := scanConversion(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Conversion{}, ErrConversionNotFound
	}
	if err != nil {
		return Conversion{}, fmt.Errorf("get conversion %s: %w", id, err)
	}
	return c, nil
}

func (p *PostgresHistory) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM conversion_history WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge conversions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanConversion(row pgx.Row) (Conversion, error) {
	var (
		c  Conversion
		id string
	)
	err := row.Scan(&id, &c.FileName, &c.FileSize, &c.SHA256, &c.Backend, &c.Pages,
		&c.ExtractedRows, &c.MergedRows, &c.SentinelSkips, &c.MalformedRows, &c.Duplicates,
		&c.OutputRows, &c.Status, &c.ErrorCode, &c.ClientIP, &c.UserAgent, &c.DurationMS, &c.CreatedAt)
	if err != nil {
		return Conversion{}, err
	}
	if c.ID, err = uuid.Parse(id); err != nil {
		return Conversion{}, err
	}
	return c, nil
}
