// Package affirmations serves one AI-generated affirmation per user per day,
// falling back to a stock line when generation is unavailable.
package affirmations

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/serenitylabs/wellness_layer/internal/app/domain/affirmation"
	"github.com/serenitylabs/wellness_layer/internal/app/services/billing"
	"github.com/serenitylabs/wellness_layer/internal/app/services/insights"
	"github.com/serenitylabs/wellness_layer/internal/app/storage"
	"github.com/serenitylabs/wellness_layer/pkg/logger"
)

const recentMoodWindow = 7

// QuotaGate meters AI usage per user.
type QuotaGate interface {
	ConsumeAIRequest(ctx context.Context, userID string) error
}

// Service serves daily affirmations.
type Service struct {
	store    storage.AffirmationStore
	entries  storage.EntryStore
	provider insights.Provider
	quota    QuotaGate
	log      *logger.Logger
	now      func() time.Time
}

// New constructs an affirmations service. Provider and quota are optional.
func New(store storage.AffirmationStore, entries storage.EntryStore, provider insights.Provider, quota QuotaGate, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("affirmations")
	}
	return &Service{
		store:    store,
		entries:  entries,
		provider: provider,
		quota:    quota,
		log:      log,
		now:      time.Now,
	}
}

// WithClock overrides the service clock. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Today returns the user's affirmation for the current UTC day, generating
// and storing one on first request. When generation is unavailable the stock
// fallback is returned without being stored, so a later request can still
// get a generated one.
func (s *Service) Today(ctx context.Context, userID string) (affirmation.Affirmation, error) {
	now := s.now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	if latest, err := s.store.LatestAffirmation(ctx, userID); err == nil && !latest.CreatedAt.Before(dayStart) {
		return latest, nil
	}

	content, generated := s.generate(ctx, userID)
	if !generated {
		return affirmation.Affirmation{UserID: userID, Content: content, CreatedAt: now}, nil
	}

	stored, err := s.store.CreateAffirmation(ctx, affirmation.Affirmation{UserID: userID, Content: content, CreatedAt: now})
	if err != nil {
		return affirmation.Affirmation{}, err
	}
	return stored, nil
}

func (s *Service) generate(ctx context.Context, userID string) (string, bool) {
	if s.provider == nil {
		return insights.FallbackAffirmation, false
	}
	if s.quota != nil {
		if err := s.quota.ConsumeAIRequest(ctx, userID); err != nil {
			if !errors.Is(err, billing.ErrQuotaExceeded) {
				s.log.WithError(err).WithField("user_id", userID).Warnf("quota check failed")
			}
			return insights.FallbackAffirmation, false
		}
	}

	content, err := s.provider.GenerateAffirmation(ctx, s.recentMoods(ctx, userID))
	if err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warnf("affirmation generation failed; serving fallback")
		return insights.FallbackAffirmation, false
	}
	return content, true
}

func (s *Service) recentMoods(ctx context.Context, userID string) []string {
	if s.entries == nil {
		return nil
	}
	entries, err := s.entries.ListEntries(ctx, userID)
	if err != nil {
		return nil
	}
	if len(entries) > recentMoodWindow {
		entries = entries[:recentMoodWindow]
	}
	moods := make([]string, 0, len(entries))
	for _, e := range entries {
		moods = append(moods, strconv.Itoa(e.Mood))
	}
	return moods
}
