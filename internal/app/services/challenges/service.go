// Package challenges serves one wellness challenge per user per day and
// records completions with an optional reflection note.
package challenges

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/serenitylabs/wellness_layer/internal/app/domain/challenge"
	"github.com/serenitylabs/wellness_layer/internal/app/services/billing"
	"github.com/serenitylabs/wellness_layer/internal/app/services/insights"
	"github.com/serenitylabs/wellness_layer/internal/app/storage"
	"github.com/serenitylabs/wellness_layer/pkg/logger"
)

// QuotaGate meters AI usage per user.
type QuotaGate interface {
	ConsumeAIRequest(ctx context.Context, userID string) error
}

// Service manages daily challenges.
type Service struct {
	store    storage.ChallengeStore
	provider insights.Provider
	quota    QuotaGate
	log      *logger.Logger
	now      func() time.Time
}

// New constructs a challenges service. Provider and quota are optional; with
// no provider every generated challenge is the stock one.
func New(store storage.ChallengeStore, provider insights.Provider, quota QuotaGate, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("challenges")
	}
	return &Service{
		store:    store,
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

// Today returns the user's challenge for the current UTC day, generating one
// on first request. Generated and fallback challenges are both stored so the
// user keeps a stable challenge to complete all day.
func (s *Service) Today(ctx context.Context, userID string) (challenge.Challenge, error) {
	now := s.now().UTC()
	if existing, err := s.store.GetChallengeForDay(ctx, userID, now); err == nil {
		return existing, nil
	}

	idea := s.generate(ctx, userID)
	return s.store.CreateChallenge(ctx, challenge.Challenge{
		UserID:     userID,
		Text:       idea.Text,
		Category:   idea.Category,
		Difficulty: idea.Difficulty,
		CreatedAt:  now,
	})
}

// Complete marks the user's challenge done with an optional reflection.
// Completing twice is a no-op that keeps the first completion time.
func (s *Service) Complete(ctx context.Context, userID, challengeID, reflection string) (challenge.Challenge, error) {
	c, err := s.store.GetChallenge(ctx, challengeID)
	if err != nil {
		return challenge.Challenge{}, err
	}
	if c.UserID != userID {
		return challenge.Challenge{}, fmt.Errorf("challenge %s not found", challengeID)
	}
	if c.Completed {
		return c, nil
	}

	now := s.now().UTC()
	c.Completed = true
	c.CompletedAt = &now
	c.ReflectionNote = reflection
	return s.store.UpdateChallenge(ctx, c)
}

// History returns the user's challenges, newest first.
func (s *Service) History(ctx context.Context, userID string) ([]challenge.Challenge, error) {
	return s.store.ListChallenges(ctx, userID)
}

func (s *Service) generate(ctx context.Context, userID string) insights.ChallengeIdea {
	if s.provider == nil {
		return insights.FallbackChallenge()
	}
	if s.quota != nil {
		if err := s.quota.ConsumeAIRequest(ctx, userID); err != nil {
			if !errors.Is(err, billing.ErrQuotaExceeded) {
				s.log.WithError(err).WithField("user_id", userID).Warnf("quota check failed")
			}
			return insights.FallbackChallenge()
		}
	}

	idea, err := s.provider.GenerateChallenge(ctx, "")
	if err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warnf("challenge generation failed; serving fallback")
		return insights.FallbackChallenge()
	}
	return idea
}
