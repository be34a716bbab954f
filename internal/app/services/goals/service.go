// Package goals manages wellness goals and their progress log. A goal
// completes automatically once logged progress reaches its target.
package goals

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/serenitylabs/wellness_layer/internal/app/domain/goal"
	"github.com/serenitylabs/wellness_layer/internal/app/storage"
	"github.com/serenitylabs/wellness_layer/pkg/logger"
)

// Service manages wellness goals.
type Service struct {
	store storage.GoalStore
	log   *logger.Logger
	now   func() time.Time
}

// New constructs a goals service.
func New(store storage.GoalStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("goals")
	}
	return &Service{store: store, log: log, now: time.Now}
}

// CreateInput carries the fields accepted when creating a goal.
type CreateInput struct {
	Title       string
	Description string
	Category    string
	TargetValue int
	Frequency   string
	StartDate   *time.Time
	EndDate     *time.Time
}

// Create starts a new goal for the user.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (goal.Goal, error) {
	if strings.TrimSpace(in.Title) == "" {
		return goal.Goal{}, fmt.Errorf("title is required")
	}
	if in.TargetValue <= 0 {
		return goal.Goal{}, fmt.Errorf("target_value must be positive")
	}

	start := s.now().UTC()
	if in.StartDate != nil {
		start = in.StartDate.UTC()
	}
	if in.EndDate != nil && in.EndDate.Before(start) {
		return goal.Goal{}, fmt.Errorf("end_date must be after start_date")
	}

	return s.store.CreateGoal(ctx, goal.Goal{
		UserID:      userID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Category:    in.Category,
		TargetValue: in.TargetValue,
		Frequency:   in.Frequency,
		StartDate:   start,
		EndDate:     in.EndDate,
	})
}

// UpdateInput carries optional goal changes. Nil fields are left alone.
type UpdateInput struct {
	Title       *string
	Description *string
	Category    *string
	TargetValue *int
	Frequency   *string
	EndDate     *time.Time
}

// Update edits a goal the user owns.
func (s *Service) Update(ctx context.Context, userID, goalID string, in UpdateInput) (goal.Goal, error) {
	g, err := s.Get(ctx, userID, goalID)
	if err != nil {
		return goal.Goal{}, err
	}

	if in.Title != nil {
		if strings.TrimSpace(*in.Title) == "" {
			return goal.Goal{}, fmt.Errorf("title is required")
		}
		g.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		g.Description = *in.Description
	}
	if in.Category != nil {
		g.Category = *in.Category
	}
	if in.TargetValue != nil {
		if *in.TargetValue <= 0 {
			return goal.Goal{}, fmt.Errorf("target_value must be positive")
		}
		g.TargetValue = *in.TargetValue
		g.Completed = g.CurrentValue >= g.TargetValue
	}
	if in.Frequency != nil {
		g.Frequency = *in.Frequency
	}
	if in.EndDate != nil {
		g.EndDate = in.EndDate
	}

	return s.store.UpdateGoal(ctx, g)
}

// Get returns one of the user's goals. Other users' goals are reported as
// missing.
func (s *Service) Get(ctx context.Context, userID, goalID string) (goal.Goal, error) {
	g, err := s.store.GetGoal(ctx, goalID)
	if err != nil {
		return goal.Goal{}, err
	}
	if g.UserID != userID {
		return goal.Goal{}, fmt.Errorf("goal %s not found", goalID)
	}
	return g, nil
}

// List returns the user's goals.
func (s *Service) List(ctx context.Context, userID string) ([]goal.Goal, error) {
	return s.store.ListGoals(ctx, userID)
}

// Delete removes a goal the user owns, along with its progress log.
func (s *Service) Delete(ctx context.Context, userID, goalID string) error {
	if _, err := s.Get(ctx, userID, goalID); err != nil {
		return err
	}
	return s.store.DeleteGoal(ctx, goalID)
}

// AddProgress logs progress against a goal and completes it when the total
// reaches the target.
func (s *Service) AddProgress(ctx context.Context, userID, goalID string, value int, note string) (goal.Goal, error) {
	if value <= 0 {
		return goal.Goal{}, fmt.Errorf("value must be positive")
	}
	g, err := s.Get(ctx, userID, goalID)
	if err != nil {
		return goal.Goal{}, err
	}

	if _, err := s.store.CreateProgress(ctx, goal.Progress{GoalID: goalID, Value: value, Note: note}); err != nil {
		return goal.Goal{}, err
	}

	g.CurrentValue += value
	if !g.Completed && g.CurrentValue >= g.TargetValue {
		g.Completed = true
		s.log.WithField("user_id", userID).WithField("goal_id", goalID).Infof("goal completed")
	}
	return s.store.UpdateGoal(ctx, g)
}

// Progress returns the progress log for a goal the user owns.
func (s *Service) Progress(ctx context.Context, userID, goalID string) ([]goal.Progress, error) {
	if _, err := s.Get(ctx, userID, goalID); err != nil {
		return nil, err
	}
	return s.store.ListProgress(ctx, goalID)
}
