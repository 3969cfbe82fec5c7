package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"pdf-to-word/internal/domain"
)

// ErrNotFound is returned when no entry exists for a job ID.
var ErrNotFound = errors.New("conversion not found")

// DefaultRecentLimit caps Recent when the caller passes a non-positive limit.
const DefaultRecentLimit = 20

// Entry is one recorded conversion attempt.
type Entry struct {
	JobID       string             `json:"jobId"`
	FileName    string             `json:"fileName"`
	FileSize    int64              `json:"fileSize"`
	Status      domain.JobStatus   `json:"status"`
	Kind        domain.FailureKind `json:"kind,omitempty"`
	Message     string             `json:"message,omitempty"`
	DownloadURL string             `json:"downloadUrl,omitempty"`
	Filename    string             `json:"filename,omitempty"`
	CreatedAt   time.Time          `json:"createdAt"`
	CompletedAt *time.Time         `json:"completedAt,omitempty"`
}

// SQLiteStore keeps the conversion ledger in a local SQLite file.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (creating if needed) the ledger at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversions (
		job_id TEXT PRIMARY KEY,
		file_name TEXT NOT NULL,
		file_size INTEGER NOT NULL,
		status TEXT NOT NULL,
		failure_kind TEXT,
		message TEXT,
		download_url TEXT,
		filename TEXT,
		created_at TEXT NOT NULL,
		completed_at TEXT
	);
	CREATE INDEX IF NOT EXISTS conversions_created_at ON conversions (created_at);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// RecordStarted inserts a row for a job that was just submitted.
func (s *SQLiteStore) RecordStarted(ctx context.Context, job domain.Job) error {
	if job.ID == "" {
		return errors.New("job id is required")
	}
	var name string
	var size int64
	if job.File != nil {
		name, size = job.File.Name, job.File.Size
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversions (job_id, file_name, file_size, status, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		job.ID, name, size, string(job.Status), s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert conversion: %w", err)
	}
	return nil
}

// RecordFinished stores the terminal outcome of job.
func (s *SQLiteStore) RecordFinished(ctx context.Context, job domain.Job, outcome domain.Outcome) error {
	var downloadURL, filename *string
	if outcome.Succeeded && outcome.Download != nil {
		downloadURL = &outcome.Download.URL
		filename = &outcome.Download.Filename
	}
	var kind *string
	if outcome.Kind != domain.FailureNone {
		v := string(outcome.Kind)
		kind = &v
	}

	res, err := s.db.ExecContext(ctx, `UPDATE conversions
		SET status = ?, failure_kind = ?, message = ?, download_url = ?, filename = ?, completed_at = ?
		WHERE job_id = ?`,
		string(job.Status), kind, outcome.Message, downloadURL, filename,
		s.now().UTC().Format(time.RFC3339Nano), job.ID,
	)
	if err != nil {
		return fmt.Errorf("update conversion: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, job.ID)
	}
	return nil
}

// Get returns the entry for jobID.
func (s *SQLiteStore) Get(ctx context.Context, jobID string) (Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT job_id, file_name, file_size, status, failure_kind, message,
		download_url, filename, created_at, completed_at
		FROM conversions WHERE job_id = ?`, jobID)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}
	return entry, err
}

// Recent returns up to limit entries, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	rows, err := s.db.QueryContext(ctx, `SELECT job_id, file_name, file_size, status, failure_kind, message,
		download_url, filename, created_at, completed_at
		FROM conversions ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query conversions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversions: %w", err)
	}
	return entries, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var entry Entry
	var status string
	var kind, message, downloadURL, filename, created, completed sql.NullString

	if err := row.Scan(
		&entry.JobID,
		&entry.FileName,
		&entry.FileSize,
		&status,
		&kind,
		&message,
		&downloadURL,
		&filename,
		&created,
		&completed,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("scan conversion: %w", err)
	}

	entry.Status = domain.JobStatus(status)
	entry.Kind = domain.FailureKind(kind.String)
	entry.Message = message.String
	entry.DownloadURL = downloadURL.String
	entry.Filename = filename.String
	if created.Valid {
		if t, err := time.Parse(time.RFC3339Nano, created.String); err == nil {
			entry.CreatedAt = t
		}
	}
	if completed.Valid {
		if t, err := time.Parse(time.RFC3339Nano, completed.String); err == nil {
			entry.CompletedAt = &t
		}
	}
	return entry, nil
}
