// Package achievements exposes the achievement catalog and per-user unlock
// state. Unlocking itself is driven by the streak evaluator.
package achievements

import (
	"context"
	"fmt"
	"time"

	"github.com/serenitylabs/wellness_layer/internal/app/domain/achievement"
	"github.com/serenitylabs/wellness_layer/internal/app/storage"
	"github.com/serenitylabs/wellness_layer/pkg/logger"
)

// Service reads achievement state.
type Service struct {
	store storage.AchievementStore
	log   *logger.Logger
}

// New constructs an achievements service.
func New(store storage.AchievementStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("achievements")
	}
	return &Service{store: store, log: log}
}

// EnsureCatalog seeds the built-in achievements, skipping any that exist.
func (s *Service) EnsureCatalog(ctx context.Context) error {
	existing, err := s.store.ListAchievements(ctx)
	if err != nil {
		return err
	}
	present := make(map[string]bool, len(existing))
	for _, a := range existing {
		present[a.Name] = true
	}

	for _, a := range achievement.Catalog() {
		if present[a.Name] {
			continue
		}
		if _, err := s.store.CreateAchievement(ctx, a); err != nil {
			return fmt.Errorf("seed achievement %s: %w", a.Name, err)
		}
	}
	return nil
}

// UserAchievement is a catalog row annotated with the user's unlock state.
type UserAchievement struct {
	achievement.Achievement
	Unlocked   bool
	UnlockedAt *time.Time
}

// ListForUser returns the full catalog with the user's unlocks marked.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]UserAchievement, error) {
	catalog, err := s.store.ListAchievements(ctx)
	if err != nil {
		return nil, err
	}
	unlocks, err := s.store.ListUnlocks(ctx, userID)
	if err != nil {
		return nil, err
	}

	unlockedAt := make(map[string]time.Time, len(unlocks))
	for _, u := range unlocks {
		unlockedAt[u.AchievementID] = u.UnlockedAt
	}

	result := make([]UserAchievement, 0, len(catalog))
	for _, a := range catalog {
		ua := UserAchievement{Achievement: a}
		if at, ok := unlockedAt[a.ID]; ok {
			ua.Unlocked = true
			t := at
			ua.UnlockedAt = &t
		}
		result = append(result, ua)
	}
	return result, nil
}
