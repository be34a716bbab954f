package streaks

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/serenitylabs/wellness_layer/internal/app/domain/achievement"
	"github.com/serenitylabs/wellness_layer/internal/app/metrics"
	"github.com/serenitylabs/wellness_layer/internal/app/storage"
	"github.com/serenitylabs/wellness_layer/pkg/logger"
)

// Service runs the streak evaluator after a journal entry is saved.
type Service struct {
	users        storage.UserStore
	entries      storage.EntryStore
	achievements storage.AchievementStore
	log          *logger.Logger
	now          func() time.Time
}

// New constructs a streak service.
func New(users storage.UserStore, entries storage.EntryStore, achievements storage.AchievementStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("streaks")
	}
	return &Service{
		users:        users,
		entries:      entries,
		achievements: achievements,
		log:          log,
		now:          time.Now,
	}
}

// WithClock overrides the evaluator's clock. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// RecordEntry advances the user's streak for a newly saved entry and unlocks
// any achievements the new state earns. A missing user is a no-op: the entry
// author may have been deleted between the save and this evaluation.
func (s *Service) RecordEntry(ctx context.Context, userID string) error {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		metrics.RecordStreakEvaluation("error")
		return err
	}

	now := s.now().UTC()
	current, outcome := Evaluate(u.LastEntryDate, u.CurrentStreak, now)

	// Nothing changed, so nothing new can have been earned.
	if outcome == OutcomeNoop {
		metrics.RecordStreakEvaluation(string(outcome))
		return nil
	}

	longest := u.LongestStreak
	if current > longest {
		longest = current
	}
	if u, err = s.users.UpdateStreak(ctx, userID, current, longest, midnightUTC(now)); err != nil {
		metrics.RecordStreakEvaluation("error")
		return err
	}
	s.log.WithField("user_id", userID).
		WithField("current_streak", current).
		WithField("outcome", string(outcome)).
		Infof("streak updated")

	if err := s.unlockEarned(ctx, userID, current); err != nil {
		metrics.RecordStreakEvaluation("error")
		return err
	}
	metrics.RecordStreakEvaluation(string(outcome))
	return nil
}

// unlockEarned grants every achievement the user now qualifies for but does
// not yet hold. Thresholds are checked independently so a jump past several
// of them unlocks all of them at once.
func (s *Service) unlockEarned(ctx context.Context, userID string, currentStreak int) error {
	earned := make(map[string]bool, len(achievement.StreakThresholds)+1)
	for name, days := range achievement.StreakThresholds {
		if currentStreak >= days {
			earned[name] = true
		}
	}

	count, err := s.entries.CountEntries(ctx, userID)
	if err != nil {
		return err
	}
	if count == 1 {
		earned[achievement.NameFirstStep] = true
	}
	if len(earned) == 0 {
		return nil
	}

	catalog, err := s.achievements.ListAchievements(ctx)
	if err != nil {
		return err
	}
	unlocks, err := s.achievements.ListUnlocks(ctx, userID)
	if err != nil {
		return err
	}
	held := make(map[string]bool, len(unlocks))
	for _, unlock := range unlocks {
		held[unlock.AchievementID] = true
	}

	for _, a := range catalog {
		if !earned[a.Name] || held[a.ID] {
			continue
		}
		_, err := s.achievements.CreateUnlock(ctx, achievement.Unlock{
			UserID:        userID,
			AchievementID: a.ID,
		})
		if err != nil {
			// A concurrent evaluation may have won the race; the unique
			// constraint makes the unlock exactly-once either way.
			if isDuplicate(err) {
				continue
			}
			return err
		}
		metrics.RecordAchievementUnlock()
		s.log.WithField("user_id", userID).
			WithField("achievement", a.Name).
			Infof("achievement unlocked")
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || strings.Contains(err.Error(), "not found")
}

func isDuplicate(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "already unlocked")
}
