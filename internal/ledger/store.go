// Package ledger keeps the history of package builds in SQLite.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"imfpack/internal/assembler"
)

// Build is one recorded build.
type Build struct {
	ID            int64      `json:"id"`
	PackageName   string     `json:"package"`
	PackageDir    string     `json:"dir"`
	State         string     `json:"state"`
	FailedPhase   string     `json:"failed_phase,omitempty"`
	CompositionID string     `json:"composition_id,omitempty"`
	FileCount     int        `json:"file_count"`
	ErrorKind     string     `json:"error_kind,omitempty"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}

// Duration is the wall time of a finished build, or zero.
func (b *Build) Duration() time.Duration {
	if b.FinishedAt == nil {
		return 0
	}
	return b.FinishedAt.Sub(b.StartedAt)
}

// Store is the build ledger. It implements assembler.Recorder.
type Store struct {
	db   *sql.DB
	path string
}

var _ assembler.Recorder = (*Store)(nil)

// Open initializes or connects to the ledger database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure ledger directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path is the database file.
func (s *Store) Path() string { return s.path }

// Start records a build in progress and returns its id.
func (s *Store) Start(ctx context.Context, name, dir string, startedAt time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO builds (package_name, package_dir, state, started_at) VALUES (?, ?, ?, ?)`,
		name, dir, assembler.StateInitialized.String(), formatTime(startedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("insert build: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// Finish stores the outcome of build id.
func (s *Store) Finish(ctx context.Context, id int64, outcome assembler.Outcome) error {
	finished := outcome.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE builds
         SET state = ?, failed_phase = ?, package_dir = ?, composition_id = ?, file_count = ?,
             error_kind = ?, error_message = ?, finished_at = ?
         WHERE id = ?`,
		outcome.State.String(),
		nullableString(string(outcome.Phase)),
		outcome.Dir,
		nullableString(outcome.Composition),
		outcome.Files,
		nullableString(outcome.ErrorKind),
		nullableString(outcome.ErrorMessage),
		formatTime(finished),
		id,
	)
	if err != nil {
		return fmt.Errorf("update build %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update build %d: no such build", id)
	}
	return nil
}

const buildColumns = `id, package_name, package_dir, state, failed_phase, composition_id,
    file_count, error_kind, error_message, started_at, finished_at`

// List returns the most recent builds, newest first. limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]*Build, error) {
	query := `SELECT ` + buildColumns + ` FROM builds ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list builds: %w", err)
	}
	defer rows.Close()

	var builds []*Build
	for rows.Next() {
		b, err := scanBuild(rows)
		if err != nil {
			return nil, fmt.Errorf("scan build: %w", err)
		}
		builds = append(builds, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list builds: %w", err)
	}
	return builds, nil
}

// Get fetches a build by id. A missing build returns nil, nil.
func (s *Store) Get(ctx context.Context, id int64) (*Build, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+buildColumns+` FROM builds WHERE id = ?`, id)
	b, err := scanBuild(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get build: %w", err)
	}
	return b, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBuild(row scanner) (*Build, error) {
	var (
		b                                 Build
		phase, composition, kind, message sql.NullString
		startedAt                         string
		finishedAt                        sql.NullString
	)
	if err := row.Scan(&b.ID, &b.PackageName, &b.PackageDir, &b.State, &phase, &composition,
		&b.FileCount, &kind, &message, &startedAt, &finishedAt); err != nil {
		return nil, err
	}
	b.FailedPhase = phase.String
	b.CompositionID = composition.String
	b.ErrorKind = kind.String
	b.ErrorMessage = message.String

	started, err := parseTime(startedAt)
	if err != nil {
		return nil, err
	}
	b.StartedAt = started
	if finishedAt.Valid {
		finished, err := parseTime(finishedAt.String)
		if err != nil {
			return nil, err
		}
		b.FinishedAt = &finished
	}
	return &b, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", value, err)
	}
	return t, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
