// Package journal manages journal entries. Saving an entry triggers two
// side effects: a best-effort AI analysis stored on the entry, and an
// asynchronous streak evaluation that never blocks or fails the save.
package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/serenitylabs/wellness_layer/internal/app/domain/journal"
	"github.com/serenitylabs/wellness_layer/internal/app/services/billing"
	"github.com/serenitylabs/wellness_layer/internal/app/services/insights"
	"github.com/serenitylabs/wellness_layer/internal/app/storage"
	"github.com/serenitylabs/wellness_layer/pkg/logger"
)

const analysisTimeout = 25 * time.Second

// QuotaGate meters AI usage per user.
type QuotaGate interface {
	ConsumeAIRequest(ctx context.Context, userID string) error
}

// Evaluator advances streak state after a saved entry.
type Evaluator interface {
	RecordEntry(ctx context.Context, userID string) error
}

// Service manages journal entries.
type Service struct {
	entries   storage.EntryStore
	provider  insights.Provider
	quota     QuotaGate
	evaluator Evaluator
	log       *logger.Logger

	// async runs the evaluator off the request path. Tests replace it to
	// run synchronously.
	async func(func())
}

// New constructs a journal service. Provider, quota, and evaluator are all
// optional; a nil provider skips analysis and a nil evaluator skips streaks.
func New(entries storage.EntryStore, provider insights.Provider, quota QuotaGate, evaluator Evaluator, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("journal")
	}
	return &Service{
		entries:   entries,
		provider:  provider,
		quota:     quota,
		evaluator: evaluator,
		log:       log,
		async:     func(fn func()) { go fn() },
	}
}

// WithSyncEvaluation makes the streak evaluation run inline. Test hook.
func (s *Service) WithSyncEvaluation() *Service {
	s.async = func(fn func()) { fn() }
	return s
}

// CreateInput carries the fields accepted when saving a new entry.
type CreateInput struct {
	Content string
	Mood    int
	Tags    []string
}

// Create saves a new entry. Analysis is attached when the provider succeeds
// within the caller's quota; the entry is saved either way. The streak
// evaluator runs afterwards in the background.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (journal.Entry, error) {
	if strings.TrimSpace(in.Content) == "" {
		return journal.Entry{}, fmt.Errorf("content is required")
	}
	if in.Mood < 1 || in.Mood > 5 {
		return journal.Entry{}, fmt.Errorf("mood must be between 1 and 5")
	}

	entry := journal.Entry{
		UserID:   userID,
		Content:  in.Content,
		Mood:     in.Mood,
		Tags:     in.Tags,
		Analysis: s.analyze(ctx, userID, in.Content, in.Mood),
	}

	entry, err := s.entries.CreateEntry(ctx, entry)
	if err != nil {
		return journal.Entry{}, err
	}

	s.async(func() {
		evalCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if s.evaluator == nil {
			return
		}
		if err := s.evaluator.RecordEntry(evalCtx, userID); err != nil {
			s.log.WithError(err).WithField("user_id", userID).Warnf("streak evaluation failed")
		}
	})

	return entry, nil
}

// UpdateInput carries optional entry changes. Nil fields are left alone.
type UpdateInput struct {
	Content *string
	Mood    *int
	Tags    *[]string
}

// Update edits an entry the user owns. Analysis is refreshed when the
// content changes; the streak evaluator never re-runs for edits.
func (s *Service) Update(ctx context.Context, userID, entryID string, in UpdateInput) (journal.Entry, error) {
	entry, err := s.Get(ctx, userID, entryID)
	if err != nil {
		return journal.Entry{}, err
	}

	contentChanged := false
	if in.Content != nil {
		if strings.TrimSpace(*in.Content) == "" {
			return journal.Entry{}, fmt.Errorf("content is required")
		}
		contentChanged = *in.Content != entry.Content
		entry.Content = *in.Content
	}
	if in.Mood != nil {
		if *in.Mood < 1 || *in.Mood > 5 {
			return journal.Entry{}, fmt.Errorf("mood must be between 1 and 5")
		}
		entry.Mood = *in.Mood
	}
	if in.Tags != nil {
		entry.Tags = *in.Tags
	}

	if contentChanged {
		entry.Analysis = s.analyze(ctx, userID, entry.Content, entry.Mood)
	}

	return s.entries.UpdateEntry(ctx, entry)
}

// Get returns one of the user's entries. Other users' entries are reported
// as missing.
func (s *Service) Get(ctx context.Context, userID, entryID string) (journal.Entry, error) {
	entry, err := s.entries.GetEntry(ctx, entryID)
	if err != nil {
		return journal.Entry{}, err
	}
	if entry.UserID != userID {
		return journal.Entry{}, fmt.Errorf("entry %s not found", entryID)
	}
	return entry, nil
}

// List returns the user's entries, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]journal.Entry, error) {
	return s.entries.ListEntries(ctx, userID)
}

// RecentMoods returns up to limit mood ratings from the newest entries.
func (s *Service) RecentMoods(ctx context.Context, userID string, limit int) ([]int, error) {
	entries, err := s.entries.ListEntries(ctx, userID)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	moods := make([]int, 0, len(entries))
	for _, e := range entries {
		moods = append(moods, e.Mood)
	}
	return moods, nil
}

// analyze calls the insights provider within the user's quota. Quota
// exhaustion leaves the entry unanalyzed; provider failures record a neutral
// analysis so the entry still shows a sentiment.
func (s *Service) analyze(ctx context.Context, userID, content string, mood int) *journal.Analysis {
	if s.provider == nil {
		return nil
	}
	if s.quota != nil {
		if err := s.quota.ConsumeAIRequest(ctx, userID); err != nil {
			if errors.Is(err, billing.ErrQuotaExceeded) {
				s.log.WithField("user_id", userID).Infof("analysis skipped: quota exhausted")
			} else {
				s.log.WithError(err).WithField("user_id", userID).Warnf("quota check failed; skipping analysis")
			}
			return nil
		}
	}

	analysisCtx, cancel := context.WithTimeout(ctx, analysisTimeout)
	defer cancel()

	analysis, err := s.provider.AnalyzeEntry(analysisCtx, content, mood)
	if err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warnf("entry analysis failed; recording neutral sentiment")
		return insights.NeutralAnalysis()
	}
	return analysis
}
