package llm

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// UsageRecord describes one completed (or failed) call.
type UsageRecord struct {
	At           time.Time
	Phase        string
	Model        string
	PromptTokens int
	OutputTokens int
	Failed       bool
}

// UsageLedger persists usage records. Implementations must be safe for
// concurrent use.
type UsageLedger interface {
	Record(ctx context.Context, rec UsageRecord) error
}

// WithUsage counts prompt and response tokens with counter and writes one
// record per call to ledger. Ledger failures are logged, never returned.
func WithUsage(ledger UsageLedger, counter TokenCounter) Middleware {
	if counter == nil {
		counter = ApproxCounter{}
	}
	return func(next LLMClient) LLMClient {
		if ledger == nil {
			return next
		}
		return &usageClient{next: next, ledger: ledger, counter: counter}
	}
}

type usageClient struct {
	next    LLMClient
	ledger  UsageLedger
	counter TokenCounter
}

func (u *usageClient) Name() string { return u.next.Name() }
func (u *usageClient) Close() error { return u.next.Close() }

func (u *usageClient) Complete(ctx context.Context, req Request) (string, error) {
	out, err := u.next.Complete(ctx, req)
	rec := UsageRecord{
		At:           time.Now().UTC(),
		Phase:        PhaseFrom(ctx),
		Model:        u.next.Name(),
		PromptTokens: u.counter.Count(req.System + "\n" + req.User),
		OutputTokens: u.counter.Count(out),
		Failed:       err != nil,
	}
	if lerr := u.ledger.Record(context.WithoutCancel(ctx), rec); lerr != nil {
		log.Printf("usage: record failed: %v", lerr)
	}
	return out, err
}

// -------- JSON file ledger --------

// FileLedger aggregates usage per UTC day and per model into a JSON file.
type FileLedger struct {
	mu   sync.Mutex
	path string
}

type usageFile struct {
	UpdatedAt string              `json:"updated_at"`
	Days      map[string]usageDay `json:"days"`
}

type usageDay struct {
	Requests     int64                `json:"requests"`
	PromptTokens int64                `json:"prompt_tokens"`
	OutputTokens int64                `json:"output_tokens"`
	Errors       int64                `json:"errors"`
	Models       map[string]usageStat `json:"models"`
}

type usageStat struct {
	Requests int64 `json:"requests"`
	Tokens   int64 `json:"tokens"`
	Errors   int64 `json:"errors"`
}

func NewFileLedger(path string) *FileLedger {
	return &FileLedger{path: path}
}

func (l *FileLedger) Record(_ context.Context, rec UsageRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f := usageFile{Days: map[string]usageDay{}}
	if b, err := os.ReadFile(l.path); err == nil {
		_ = json.Unmarshal(b, &f)
		if f.Days == nil {
			f.Days = map[string]usageDay{}
		}
	}
	at := rec.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	dayKey := at.UTC().Format("2006-01-02")

	d := f.Days[dayKey]
	if d.Models == nil {
		d.Models = map[string]usageStat{}
	}
	d.Requests++
	d.PromptTokens += int64(rec.PromptTokens)
	d.OutputTokens += int64(rec.OutputTokens)
	m := d.Models[rec.Model]
	m.Requests++
	m.Tokens += int64(rec.PromptTokens + rec.OutputTokens)
	if rec.Failed {
		d.Errors++
		m.Errors++
	}
	d.Models[rec.Model] = m
	f.Days[dayKey] = d
	f.UpdatedAt = time.Now().UTC().Format(time.RFC3339)

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, l.path)
}

// -------- Postgres ledger --------

// PostgresLedger appends one row per call to the llm_usage table.
type PostgresLedger struct {
	db         *sql.DB
	schemaOnce sync.Once
	schemaErr  error
}

// OpenPostgresLedger connects through the pgx database/sql driver.
func OpenPostgresLedger(dsn string) (*PostgresLedger, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	return NewPostgresLedger(db), nil
}

func NewPostgresLedger(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

func (l *PostgresLedger) ensureSchema(ctx context.Context) error {
	l.schemaOnce.Do(func() {
		_, l.schemaErr = l.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS llm_usage (
  id SERIAL PRIMARY KEY,
  at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
  phase TEXT NOT NULL DEFAULT '',
  model TEXT NOT NULL DEFAULT '',
  prompt_tokens INTEGER NOT NULL DEFAULT 0,
  output_tokens INTEGER NOT NULL DEFAULT 0,
  failed BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS idx_llm_usage_at ON llm_usage (at);
`)
	})
	return l.schemaErr
}

func (l *PostgresLedger) Record(ctx context.Context, rec UsageRecord) error {
	if err := l.ensureSchema(ctx); err != nil {
		return err
	}
	at := rec.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO llm_usage (at, phase, model, prompt_tokens, output_tokens, failed) VALUES ($1, $2, $3, $4, $5, $6)`,
		at, rec.Phase, rec.Model, rec.PromptTokens, rec.OutputTokens, rec.Failed,
	)
	return err
}

func (l *PostgresLedger) Close() error { return l.db.Close() }
