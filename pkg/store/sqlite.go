package store

import (
	"context"
	stdsql "database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"

	"github.com/google/uuid"

	"github.com/hashdev89/smart-summary-insight-service/pkg/models"
)

//go:embed migrations
var migrationsFS embed.FS

// SQLiteStore is the relational backend: a single-file embedded SQL
// database with two tables, batch_jobs and batch_results. Job creation
// inserts a batch_jobs row and status transitions update it in place;
// AppendResult inserts the record's batch_results row and updates the
// batch_jobs counters within one transaction. Existing result rows are
// never rewritten.
//
// Writes are serialised by a single mutex. Reads do not take the mutex,
// but the pool is limited to one open connection, so reads and writes
// still run one at a time on that connection.
type SQLiteStore struct {
	db *stdsql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (creating if necessary) the sqlite database at
// path and applies embedded migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := stdsql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite3 driver is not safe for concurrent writers

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping sqlite: %w", err)
	}

	if err := migrateUp(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func migrateUp(db *stdsql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("store: sqlite migrate driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("store: migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("store: migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("store: apply migrations: %w", err)
	}
	return sourceDriver.Close()
}

// CreateJob implements Store.
func (s *SQLiteStore) CreateJob(ctx context.Context, total int) (string, error) {
	jobID := uuid.NewString()
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO batch_jobs (job_id, status, total_records, completed_count, failed_count, total_tokens_used, created_at, updated_at)
		 VALUES (?, ?, ?, 0, 0, 0, ?, ?)`,
		jobID, models.JobAccepted, total, now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("store: insert job: %w", err)
	}
	return jobID, nil
}

// SetProcessing implements Store.
func (s *SQLiteStore) SetProcessing(ctx context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`UPDATE batch_jobs SET status = ?, updated_at = ? WHERE job_id = ? AND status = ?`,
		models.JobProcessing, time.Now().UTC().Format(time.RFC3339Nano), jobID, models.JobAccepted,
	)
	if err != nil {
		return fmt.Errorf("store: set processing: %w", err)
	}
	return nil
}

// AppendResult implements Store. Inserts into batch_results and updates
// the batch_jobs counters inside one transaction.
func (s *SQLiteStore) AppendResult(ctx context.Context, jobID string, result models.RecordResult, tokens int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM batch_jobs WHERE job_id = ?`, jobID).Scan(&exists); err != nil {
		return fmt.Errorf("store: check job exists: %w", err)
	}
	if exists == 0 {
		return ErrJobNotFound
	}

	var responseJSON *string
	if result.Response != nil {
		payload, err := json.Marshal(result.Response)
		if err != nil {
			return fmt.Errorf("store: marshal response: %w", err)
		}
		s := string(payload)
		responseJSON = &s
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO batch_results (job_id, record_index, success, response_json, error) VALUES (?, ?, ?, ?, ?)`,
		jobID, result.Index, boolToInt(result.Success), responseJSON, result.Error,
	); err != nil {
		return fmt.Errorf("store: insert result: %w", err)
	}

	completedDelta, failedDelta := 0, 0
	if result.Success {
		completedDelta = 1
	} else {
		failedDelta = 1
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE batch_jobs
		 SET completed_count = completed_count + ?,
		     failed_count = failed_count + ?,
		     total_tokens_used = total_tokens_used + ?,
		     updated_at = ?
		 WHERE job_id = ?`,
		completedDelta, failedDelta, tokens, time.Now().UTC().Format(time.RFC3339Nano), jobID,
	); err != nil {
		return fmt.Errorf("store: update job counters: %w", err)
	}

	return tx.Commit()
}

// SetCompleted implements Store.
func (s *SQLiteStore) SetCompleted(ctx context.Context, jobID string) error {
	return s.setTerminal(ctx, jobID, models.JobCompleted, "")
}

// SetFailed implements Store.
func (s *SQLiteStore) SetFailed(ctx context.Context, jobID string, message string) error {
	return s.setTerminal(ctx, jobID, models.JobFailed, message)
}

func (s *SQLiteStore) setTerminal(ctx context.Context, jobID string, status models.JobStatus, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE batch_jobs SET status = ?, failure_message = ?, updated_at = ?
		 WHERE job_id = ? AND status NOT IN (?, ?)`,
		status, message, time.Now().UTC().Format(time.RFC3339Nano), jobID, models.JobCompleted, models.JobFailed,
	)
	if err != nil {
		return fmt.Errorf("store: set terminal: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM batch_jobs WHERE job_id = ?`, jobID).Scan(&exists); err != nil {
			return fmt.Errorf("store: check job exists: %w", err)
		}
		if exists == 0 {
			return ErrJobNotFound
		}
	}
	return nil
}

// GetStatus implements Store.
func (s *SQLiteStore) GetStatus(ctx context.Context, jobID string, cost CostEstimator) (StatusView, bool, error) {
	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return StatusView{}, false, err
	}
	if job == nil {
		return StatusView{}, false, nil
	}

	results, err := s.loadResults(ctx, jobID)
	if err != nil {
		return StatusView{}, false, err
	}
	job.Results = results

	return toStatusView(job, cost), true, nil
}

// ListJobs implements Store.
func (s *SQLiteStore) ListJobs(ctx context.Context, limit int) ([]models.JobRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT job_id, status, total_records, completed_count, failed_count, created_at, updated_at
		 FROM batch_jobs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list jobs: %w", err)
	}
	defer rows.Close()

	var out []models.JobRow
	for rows.Next() {
		var row models.JobRow
		var createdAt, updatedAt string
		if err := rows.Scan(&row.JobID, &row.Status, &row.TotalRecords, &row.CompletedCount, &row.FailedCount, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("store: scan job row: %w", err)
		}
		row.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		row.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
		out = append(out, row)
	}
	return out, rows.Err()
}

// Ready implements Store.
func (s *SQLiteStore) Ready(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) loadJob(ctx context.Context, jobID string) (*models.Job, error) {
	var job models.Job
	var createdAt, updatedAt string
	var failureMessage stdsql.NullString

	err := s.db.QueryRowContext(ctx,
		`SELECT job_id, status, total_records, completed_count, failed_count, total_tokens_used, failure_message, created_at, updated_at
		 FROM batch_jobs WHERE job_id = ?`, jobID,
	).Scan(&job.JobID, &job.Status, &job.TotalRecords, &job.CompletedCount, &job.FailedCount, &job.TotalTokensUsed, &failureMessage, &createdAt, &updatedAt)
	if err == stdsql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: load job: %w", err)
	}
	job.FailureMessage = failureMessage.String
	job.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	job.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &job, nil
}

func (s *SQLiteStore) loadResults(ctx context.Context, jobID string) ([]models.RecordResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record_index, success, response_json, error FROM batch_results WHERE job_id = ? ORDER BY id ASC`, jobID)
	if err != nil {
		return nil, fmt.Errorf("store: load results: %w", err)
	}
	defer rows.Close()

	var out []models.RecordResult
	for rows.Next() {
		var rr models.RecordResult
		var successInt int
		var responseJSON, errText stdsql.NullString
		if err := rows.Scan(&rr.Index, &successInt, &responseJSON, &errText); err != nil {
			return nil, fmt.Errorf("store: scan result row: %w", err)
		}
		rr.Success = successInt != 0
		rr.Error = errText.String
		if responseJSON.Valid && responseJSON.String != "" {
			var ar models.AnalysisResult
			if err := json.Unmarshal([]byte(responseJSON.String), &ar); err != nil {
				return nil, fmt.Errorf("store: decode response json: %w", err)
			}
			rr.Response = &ar
		}
		out = append(out, rr)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
