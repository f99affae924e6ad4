// Package ledger tracks generated solution batches through human review.
// A submission starts pending and moves exactly once to a reviewed state.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/copilot/internal/models"
	"github.com/hyperjump/copilot/internal/storage"
	"go.uber.org/zap"
)

// ErrSubmissionNotFound is returned for unknown ids, and by Review for ids that are no longer pending.
var ErrSubmissionNotFound = errors.New("submission not found")

// Ledger holds pending and reviewed submissions. A submission is in exactly one of the two sets.
type Ledger struct {
	mu       sync.RWMutex
	pending  map[string]models.Submission
	reviewed map[string]models.Submission
	order    []string

	store  storage.SubmissionStore
	now    func() time.Time
	newID  func() string
	logger *zap.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithStore writes every change through to store.
func WithStore(s storage.SubmissionStore) Option {
	return func(l *Ledger) { l.store = s }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithIDGenerator overrides submission id generation.
func WithIDGenerator(f func() string) Option {
	return func(l *Ledger) { l.newID = f }
}

// WithLogger sets a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// New returns an empty ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		pending:  make(map[string]models.Submission),
		reviewed: make(map[string]models.Submission),
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Restore loads previously persisted submissions from the configured store.
// It is a no-op without a store.
func (l *Ledger) Restore(ctx context.Context) (int, error) {
	if l.store == nil {
		return 0, nil
	}
	subs, err := l.store.ListSubmissions(ctx)
	if err != nil {
		return 0, fmt.Errorf("restore submissions: %w", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, s := range subs {
		if _, ok := l.pending[s.ID]; ok {
			continue
		}
		if _, ok := l.reviewed[s.ID]; ok {
			continue
		}
		if s.Status == models.StatusPending {
			l.pending[s.ID] = s
		} else {
			l.reviewed[s.ID] = s
		}
		l.order = append(l.order, s.ID)
	}
	l.logger.Info("submissions restored", zap.Int("count", len(subs)))
	return len(subs), nil
}

// Create stores a new pending submission and returns its id.
func (l *Ledger) Create(ctx context.Context, challenge models.ChallengeInput, solutions []models.Solution) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.newID()
	for l.exists(id) {
		id = l.newID()
	}
	sub := models.Submission{
		ID:          id,
		Challenge:   challenge,
		Solutions:   solutions,
		SubmittedAt: l.now().UTC(),
		Status:      models.StatusPending,
	}
	if l.store != nil {
		if err := l.store.SaveSubmission(ctx, sub); err != nil {
			return "", fmt.Errorf("persist submission: %w", err)
		}
	}
	l.pending[id] = sub
	l.order = append(l.order, id)
	l.logger.Debug("submission created", zap.String("submission_id", id), zap.Int("solutions", len(solutions)))
	return id, nil
}

func (l *Ledger) exists(id string) bool {
	if _, ok := l.pending[id]; ok {
		return true
	}
	_, ok := l.reviewed[id]
	return ok
}

// Review applies action to a pending submission and moves it to the reviewed set.
// "approve" and "reject" map to approved and rejected; other actions become the status verbatim.
func (l *Ledger) Review(ctx context.Context, id, action string, feedback *string) (models.Submission, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	sub, ok := l.pending[id]
	if !ok {
		return models.Submission{}, fmt.Errorf("%w: %s is not pending", ErrSubmissionNotFound, id)
	}
	now := l.now().UTC()
	sub.Status = models.StatusForAction(action)
	sub.ReviewedAt = &now
	if feedback != nil {
		f := *feedback
		sub.Feedback = &f
	}
	if l.store != nil {
		if err := l.store.SaveSubmission(ctx, sub); err != nil {
			return models.Submission{}, fmt.Errorf("persist review: %w", err)
		}
	}
	delete(l.pending, id)
	l.reviewed[id] = sub
	l.logger.Info("submission reviewed", zap.String("submission_id", id), zap.String("status", string(sub.Status)))
	return sub, nil
}

// Get returns a submission, looking in pending first, then reviewed.
func (l *Ledger) Get(id string) (models.Submission, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if s, ok := l.pending[id]; ok {
		return s, nil
	}
	if s, ok := l.reviewed[id]; ok {
		return s, nil
	}
	return models.Submission{}, fmt.Errorf("%w: %s", ErrSubmissionNotFound, id)
}

// ListAll returns every submission in creation order with derived counts.
func (l *Ledger) ListAll() models.SubmissionList {
	l.mu.RLock()
	defer l.mu.RUnlock()
	subs := make([]models.Submission, 0, len(l.order))
	for _, id := range l.order {
		if s, ok := l.pending[id]; ok {
			subs = append(subs, s)
		} else if s, ok := l.reviewed[id]; ok {
			subs = append(subs, s)
		}
	}
	return models.NewSubmissionList(subs)
}

// ListPending returns pending submissions in creation order.
func (l *Ledger) ListPending() models.PendingList {
	l.mu.RLock()
	defer l.mu.RUnlock()
	subs := make([]models.Submission, 0, len(l.pending))
	for _, id := range l.order {
		if s, ok := l.pending[id]; ok {
			subs = append(subs, s)
		}
	}
	return models.PendingList{Count: len(subs), Submissions: subs}
}
