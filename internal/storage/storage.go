// Package storage persists submissions and reports on-disk footprint.
package storage

import (
	"context"

	"github.com/hyperjump/copilot/internal/models"
)

// SubmissionStore persists submissions across restarts.
type SubmissionStore interface {
	// SaveSubmission inserts or replaces a submission by id.
	SaveSubmission(ctx context.Context, sub models.Submission) error
	// ListSubmissions returns every submission oldest first.
	ListSubmissions(ctx context.Context) ([]models.Submission, error)
	Close() error
}
