package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/copilot/internal/models"
)

// SQLiteStorage implements SubmissionStore using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS submissions (
		id TEXT PRIMARY KEY,
		challenge TEXT NOT NULL,
		solutions TEXT NOT NULL,
		status TEXT NOT NULL,
		submitted_at TIMESTAMP NOT NULL,
		reviewed_at TIMESTAMP,
		feedback TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_submissions_status ON submissions(status);
	CREATE INDEX IF NOT EXISTS idx_submissions_submitted_at ON submissions(submitted_at);
	`
	_, err := db.Exec(schema)
	return err
}

// SaveSubmission upserts a submission.
func (s *SQLiteStorage) SaveSubmission(ctx context.Context, sub models.Submission) error {
	challengeJSON, err := json.Marshal(sub.Challenge)
	if err != nil {
		return fmt.Errorf("failed to marshal challenge: %w", err)
	}
	solutionsJSON, err := json.Marshal(sub.Solutions)
	if err != nil {
		return fmt.Errorf("failed to marshal solutions: %w", err)
	}
	var reviewedAt sql.NullTime
	if sub.ReviewedAt != nil {
		reviewedAt = sql.NullTime{Time: *sub.ReviewedAt, Valid: true}
	}
	var feedback sql.NullString
	if sub.Feedback != nil {
		feedback = sql.NullString{String: *sub.Feedback, Valid: true}
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO submissions (id, challenge, solutions, status, submitted_at, reviewed_at, feedback)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   challenge = excluded.challenge,
		   solutions = excluded.solutions,
		   status = excluded.status,
		   reviewed_at = excluded.reviewed_at,
		   feedback = excluded.feedback`,
		sub.ID, string(challengeJSON), string(solutionsJSON), string(sub.Status), sub.SubmittedAt, reviewedAt, feedback,
	)
	return err
}

const selectSubmission = `SELECT id, challenge, solutions, status, submitted_at, reviewed_at, feedback FROM submissions`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row rowScanner) (models.Submission, error) {
	var (
		sub           models.Submission
		status        string
		challengeJSON string
		solutionsJSON string
		reviewedAt    sql.NullTime
		feedback      sql.NullString
	)
	if err := row.Scan(&sub.ID, &challengeJSON, &solutionsJSON, &status, &sub.SubmittedAt, &reviewedAt, &feedback); err != nil {
		return models.Submission{}, err
	}
	sub.Status = models.SubmissionStatus(status)
	if err := json.Unmarshal([]byte(challengeJSON), &sub.Challenge); err != nil {
		return models.Submission{}, fmt.Errorf("failed to unmarshal challenge: %w", err)
	}
	if err := json.Unmarshal([]byte(solutionsJSON), &sub.Solutions); err != nil {
		return models.Submission{}, fmt.Errorf("failed to unmarshal solutions: %w", err)
	}
	if reviewedAt.Valid {
		t := reviewedAt.Time
		sub.ReviewedAt = &t
	}
	if feedback.Valid {
		f := feedback.String
		sub.Feedback = &f
	}
	return sub, nil
}

// ListSubmissions returns all submissions ordered by submission time.
func (s *SQLiteStorage) ListSubmissions(ctx context.Context) ([]models.Submission, error) {
	rows, err := s.db.QueryContext(ctx, selectSubmission+` ORDER BY submitted_at ASC, rowid ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []models.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
