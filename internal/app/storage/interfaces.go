package storage

import (
	"context"
	"time"

	"github.com/serenitylabs/wellness_layer/internal/app/domain/achievement"
	"github.com/serenitylabs/wellness_layer/internal/app/domain/affirmation"
	"github.com/serenitylabs/wellness_layer/internal/app/domain/billing"
	"github.com/serenitylabs/wellness_layer/internal/app/domain/challenge"
	"github.com/serenitylabs/wellness_layer/internal/app/domain/goal"
	"github.com/serenitylabs/wellness_layer/internal/app/domain/journal"
	"github.com/serenitylabs/wellness_layer/internal/app/domain/support"
	"github.com/serenitylabs/wellness_layer/internal/app/domain/user"
)

// UserStore persists user records and their derived streak state.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	UpdateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, id string) (user.User, error)
	GetUserByUsername(ctx context.Context, username string) (user.User, error)
	ListUsers(ctx context.Context) ([]user.User, error)

	// UpdateStreak persists the streak fields and last-entry date in a
	// single statement.
	UpdateStreak(ctx context.Context, id string, current, longest int, lastEntry time.Time) (user.User, error)
	UpdateAIQuota(ctx context.Context, id string, count int, resetAt *time.Time) error
}

// EntryStore persists journal entries.
type EntryStore interface {
	CreateEntry(ctx context.Context, e journal.Entry) (journal.Entry, error)
	UpdateEntry(ctx context.Context, e journal.Entry) (journal.Entry, error)
	GetEntry(ctx context.Context, id string) (journal.Entry, error)
	ListEntries(ctx context.Context, userID string) ([]journal.Entry, error)
	CountEntries(ctx context.Context, userID string) (int, error)
}

// AchievementStore persists the achievement catalog and unlock rows.
type AchievementStore interface {
	CreateAchievement(ctx context.Context, a achievement.Achievement) (achievement.Achievement, error)
	ListAchievements(ctx context.Context) ([]achievement.Achievement, error)

	CreateUnlock(ctx context.Context, u achievement.Unlock) (achievement.Unlock, error)
	ListUnlocks(ctx context.Context, userID string) ([]achievement.Unlock, error)
}

// GoalStore persists wellness goals and their progress entries.
type GoalStore interface {
	CreateGoal(ctx context.Context, g goal.Goal) (goal.Goal, error)
	UpdateGoal(ctx context.Context, g goal.Goal) (goal.Goal, error)
	GetGoal(ctx context.Context, id string) (goal.Goal, error)
	ListGoals(ctx context.Context, userID string) ([]goal.Goal, error)
	DeleteGoal(ctx context.Context, id string) error

	CreateProgress(ctx context.Context, p goal.Progress) (goal.Progress, error)
	ListProgress(ctx context.Context, goalID string) ([]goal.Progress, error)
}

// ChallengeStore persists daily challenges.
type ChallengeStore interface {
	CreateChallenge(ctx context.Context, c challenge.Challenge) (challenge.Challenge, error)
	UpdateChallenge(ctx context.Context, c challenge.Challenge) (challenge.Challenge, error)
	GetChallenge(ctx context.Context, id string) (challenge.Challenge, error)
	ListChallenges(ctx context.Context, userID string) ([]challenge.Challenge, error)

	// GetChallengeForDay returns the challenge issued to the user on the
	// given calendar day, if any.
	GetChallengeForDay(ctx context.Context, userID string, day time.Time) (challenge.Challenge, error)
}

// AffirmationStore persists generated affirmations.
type AffirmationStore interface {
	CreateAffirmation(ctx context.Context, a affirmation.Affirmation) (affirmation.Affirmation, error)
	LatestAffirmation(ctx context.Context, userID string) (affirmation.Affirmation, error)
}

// SupportStore persists support topics, groups, memberships and messages.
type SupportStore interface {
	CreateTopic(ctx context.Context, t support.Topic) (support.Topic, error)
	ListTopics(ctx context.Context) ([]support.Topic, error)

	CreateGroup(ctx context.Context, g support.Group) (support.Group, error)
	GetGroup(ctx context.Context, id string) (support.Group, error)
	GetGroupByInviteCode(ctx context.Context, code string) (support.Group, error)
	ListGroups(ctx context.Context) ([]support.Group, error)

	CreateMembership(ctx context.Context, m support.Membership) (support.Membership, error)
	ListGroupMemberships(ctx context.Context, groupID string) ([]support.Membership, error)
	ListUserMemberships(ctx context.Context, userID string) ([]support.Membership, error)

	CreateMessage(ctx context.Context, m support.Message) (support.Message, error)
	ListMessages(ctx context.Context, groupID string) ([]support.Message, error)
}

// BillingStore persists subscription plans and mirrored subscriptions.
type BillingStore interface {
	CreatePlan(ctx context.Context, p billing.Plan) (billing.Plan, error)
	ListPlans(ctx context.Context) ([]billing.Plan, error)
	GetPlanByName(ctx context.Context, name string) (billing.Plan, error)

	CreateSubscription(ctx context.Context, s billing.Subscription) (billing.Subscription, error)
	UpdateSubscription(ctx context.Context, s billing.Subscription) (billing.Subscription, error)
	GetSubscriptionByUser(ctx context.Context, userID string) (billing.Subscription, error)
	GetSubscriptionByProviderID(ctx context.Context, providerID string) (billing.Subscription, error)
}
