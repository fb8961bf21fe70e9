package jobstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"rigshift/internal/config"
	"rigshift/internal/services"
)

// ErrJobExists is returned by Insert when a job is already tracked.
var ErrJobExists = errors.New("a job is already tracked")

// Store manages the pending job record backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the jobs database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(context.Background(), cfg.JobsDBPath())
}

// OpenPath opens the database at dbPath.
func OpenPath(ctx context.Context, dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := store.truncate(ctx); err != nil {
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

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// truncate keeps only the first-created row.
func (s *Store) truncate(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM jobs WHERE id NOT IN (SELECT id FROM jobs ORDER BY created_at, id LIMIT 1)`)
	if err != nil {
		return 0, fmt.Errorf("truncate jobs: %w", err)
	}
	return res.RowsAffected()
}

const selectColumns = `job_id, filename, status, message, r2et_eta_seconds, student_eta_seconds,
	result_dir, model_path, created_at, updated_at`

// Current returns the tracked job, or services.ErrNotFound when none exists.
func (s *Store) Current(ctx context.Context) (*Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM jobs ORDER BY created_at, id LIMIT 1`)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "jobstore", "current", "no job tracked", nil)
	}
	if err != nil {
		return nil, fmt.Errorf("read job: %w", err)
	}
	return job, nil
}

// Insert records job when nothing is tracked yet.
func (s *Store) Insert(ctx context.Context, job *Job) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM jobs`).Scan(&count); err != nil {
		return fmt.Errorf("count jobs: %w", err)
	}
	if count > 0 {
		return ErrJobExists
	}
	if err := insertJob(ctx, tx, job); err != nil {
		return err
	}
	return tx.Commit()
}

// Replace drops any tracked job and stores job in its place.
func (s *Store) Replace(ctx context.Context, job *Job) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM jobs`); err != nil {
		return fmt.Errorf("clear jobs: %w", err)
	}
	if err := insertJob(ctx, tx, job); err != nil {
		return err
	}
	return tx.Commit()
}

func insertJob(ctx context.Context, tx *sql.Tx, job *Job) error {
	if strings.TrimSpace(job.JobID) == "" {
		return services.Wrap(services.ErrValidation, "jobstore", "insert", "job id is empty", nil)
	}
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	_, err := tx.ExecContext(ctx, `INSERT INTO jobs (job_id, filename, status, message,
		r2et_eta_seconds, student_eta_seconds, result_dir, model_path, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.JobID,
		job.Filename,
		string(job.Status),
		nullableString(job.Message),
		job.R2ETETASeconds,
		job.StudentETASeconds,
		nullableString(job.ResultDir),
		nullableString(job.ModelPath),
		job.CreatedAt.Format(time.RFC3339Nano),
		job.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// Update persists the mutable fields of job.
func (s *Store) Update(ctx context.Context, job *Job) error {
	job.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `UPDATE jobs SET filename = ?, status = ?, message = ?,
		r2et_eta_seconds = ?, student_eta_seconds = ?, result_dir = ?, model_path = ?, updated_at = ?
		WHERE job_id = ?`,
		job.Filename,
		string(job.Status),
		nullableString(job.Message),
		job.R2ETETASeconds,
		job.StudentETASeconds,
		nullableString(job.ResultDir),
		nullableString(job.ModelPath),
		job.UpdatedAt.Format(time.RFC3339Nano),
		job.JobID,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if n == 0 {
		return services.Wrap(services.ErrNotFound, "jobstore", "update", fmt.Sprintf("job %s not tracked", job.JobID), nil)
	}
	return nil
}

// Clear forgets any tracked job and reports how many rows were removed.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs`)
	if err != nil {
		return 0, fmt.Errorf("clear jobs: %w", err)
	}
	return res.RowsAffected()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	connCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.db.PingContext(connCtx); err != nil {
		return fmt.Errorf("ping jobs database: %w", err)
	}
	var result string
	if err := s.db.QueryRowContext(connCtx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if !strings.EqualFold(result, "ok") {
		return fmt.Errorf("integrity check: %s", result)
	}
	return nil
}

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		job        Job
		status     string
		message    sql.NullString
		resultDir  sql.NullString
		modelPath  sql.NullString
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(
		&job.JobID,
		&job.Filename,
		&status,
		&message,
		&job.R2ETETASeconds,
		&job.StudentETASeconds,
		&resultDir,
		&modelPath,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	job.Status = Status(status)
	job.Message = message.String
	job.ResultDir = resultDir.String
	job.ModelPath = modelPath.String
	if created, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
		job.CreatedAt = created
	}
	if updated, err := time.Parse(time.RFC3339Nano, updatedRaw); err == nil {
		job.UpdatedAt = updated
	}
	return &job, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
