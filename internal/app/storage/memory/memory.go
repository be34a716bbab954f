package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/serenitylabs/wellness_layer/internal/app/domain/achievement"
	"github.com/serenitylabs/wellness_layer/internal/app/domain/affirmation"
	"github.com/serenitylabs/wellness_layer/internal/app/domain/billing"
	"github.com/serenitylabs/wellness_layer/internal/app/domain/challenge"
	"github.com/serenitylabs/wellness_layer/internal/app/domain/goal"
	"github.com/serenitylabs/wellness_layer/internal/app/domain/journal"
	"github.com/serenitylabs/wellness_layer/internal/app/domain/support"
	"github.com/serenitylabs/wellness_layer/internal/app/domain/user"
	"github.com/serenitylabs/wellness_layer/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local development.
type Store struct {
	mu               sync.RWMutex
	nextID           int64
	users            map[string]user.User
	usersByUsername  map[string]string
	entries          map[string]journal.Entry
	achievements     map[string]achievement.Achievement
	unlocks          map[string][]achievement.Unlock
	goals            map[string]goal.Goal
	goalProgress     map[string][]goal.Progress
	challenges       map[string]challenge.Challenge
	affirmations     map[string][]affirmation.Affirmation
	topics           map[string]support.Topic
	groups           map[string]support.Group
	groupsByInvite   map[string]string
	memberships      map[string]support.Membership
	messages         map[string][]support.Message
	plans            map[string]billing.Plan
	subscriptions    map[string]billing.Subscription
	subsByProviderID map[string]string
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.EntryStore = (*Store)(nil)
var _ storage.AchievementStore = (*Store)(nil)
var _ storage.GoalStore = (*Store)(nil)
var _ storage.ChallengeStore = (*Store)(nil)
var _ storage.AffirmationStore = (*Store)(nil)
var _ storage.SupportStore = (*Store)(nil)
var _ storage.BillingStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:           1,
		users:            make(map[string]user.User),
		usersByUsername:  make(map[string]string),
		entries:          make(map[string]journal.Entry),
		achievements:     make(map[string]achievement.Achievement),
		unlocks:          make(map[string][]achievement.Unlock),
		goals:            make(map[string]goal.Goal),
		goalProgress:     make(map[string][]goal.Progress),
		challenges:       make(map[string]challenge.Challenge),
		affirmations:     make(map[string][]affirmation.Affirmation),
		topics:           make(map[string]support.Topic),
		groups:           make(map[string]support.Group),
		groupsByInvite:   make(map[string]string),
		memberships:      make(map[string]support.Membership),
		messages:         make(map[string][]support.Message),
		plans:            make(map[string]billing.Plan),
		subscriptions:    make(map[string]billing.Subscription),
		subsByProviderID: make(map[string]string),
	}
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

// UserStore implementation ----------------------------------------------------

func (s *Store) CreateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(u.Username)
	if _, exists := s.usersByUsername[key]; exists {
		return user.User{}, fmt.Errorf("username %s already taken", u.Username)
	}
	if u.ID == "" {
		u.ID = s.nextIDLocked()
	} else if _, exists := s.users[u.ID]; exists {
		return user.User{}, fmt.Errorf("user %s already exists", u.ID)
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.SubscriptionTier == "" {
		u.SubscriptionTier = user.TierBasic
	}

	s.users[u.ID] = u
	s.usersByUsername[key] = u.ID
	return u, nil
}

func (s *Store) UpdateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.users[u.ID]
	if !ok {
		return user.User{}, fmt.Errorf("user %s not found", u.ID)
	}

	u.Username = original.Username
	u.CreatedAt = original.CreatedAt
	u.UpdatedAt = time.Now().UTC()
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, fmt.Errorf("user %s not found", id)
	}
	return u, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByUsername[strings.ToLower(username)]
	if !ok {
		return user.User{}, fmt.Errorf("user %s not found", username)
	}
	return s.users[id], nil
}

func (s *Store) ListUsers(_ context.Context) ([]user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]user.User, 0, len(s.users))
	for _, u := range s.users {
		result = append(result, u)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) UpdateStreak(_ context.Context, id string, current, longest int, lastEntry time.Time) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, fmt.Errorf("user %s not found", id)
	}
	u.CurrentStreak = current
	u.LongestStreak = longest
	le := lastEntry.UTC()
	u.LastEntryDate = &le
	u.UpdatedAt = time.Now().UTC()
	s.users[id] = u
	return u, nil
}

func (s *Store) UpdateAIQuota(_ context.Context, id string, count int, resetAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return fmt.Errorf("user %s not found", id)
	}
	u.AIRequestsCount = count
	if resetAt != nil {
		r := resetAt.UTC()
		u.AIRequestsResetAt = &r
	}
	u.UpdatedAt = time.Now().UTC()
	s.users[id] = u
	return nil
}

// EntryStore implementation ---------------------------------------------------

func (s *Store) CreateEntry(_ context.Context, e journal.Entry) (journal.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = s.nextIDLocked()
	}
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now
	e.Tags = cloneStrings(e.Tags)
	s.entries[e.ID] = e
	return e, nil
}

func (s *Store) UpdateEntry(_ context.Context, e journal.Entry) (journal.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.entries[e.ID]
	if !ok {
		return journal.Entry{}, fmt.Errorf("entry %s not found", e.ID)
	}
	e.UserID = original.UserID
	e.CreatedAt = original.CreatedAt
	e.UpdatedAt = time.Now().UTC()
	e.Tags = cloneStrings(e.Tags)
	s.entries[e.ID] = e
	return e, nil
}

func (s *Store) GetEntry(_ context.Context, id string) (journal.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return journal.Entry{}, fmt.Errorf("entry %s not found", id)
	}
	return e, nil
}

func (s *Store) ListEntries(_ context.Context, userID string) ([]journal.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []journal.Entry
	for _, e := range s.entries {
		if e.UserID == userID {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) CountEntries(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, e := range s.entries {
		if e.UserID == userID {
			count++
		}
	}
	return count, nil
}

// AchievementStore implementation ---------------------------------------------

func (s *Store) CreateAchievement(_ context.Context, a achievement.Achievement) (achievement.Achievement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.achievements {
		if existing.Name == a.Name {
			return achievement.Achievement{}, fmt.Errorf("achievement %s already exists", a.Name)
		}
	}
	if a.ID == "" {
		a.ID = s.nextIDLocked()
	}
	s.achievements[a.ID] = a
	return a, nil
}

func (s *Store) ListAchievements(_ context.Context) ([]achievement.Achievement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]achievement.Achievement, 0, len(s.achievements))
	for _, a := range s.achievements {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Level != result[j].Level {
			return result[i].Level < result[j].Level
		}
		return result[i].Name < result[j].Name
	})
	return result, nil
}

func (s *Store) CreateUnlock(_ context.Context, u achievement.Unlock) (achievement.Unlock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.unlocks[u.UserID] {
		if existing.AchievementID == u.AchievementID {
			return achievement.Unlock{}, fmt.Errorf("achievement %s already unlocked for user %s", u.AchievementID, u.UserID)
		}
	}
	if u.ID == "" {
		u.ID = s.nextIDLocked()
	}
	if u.UnlockedAt.IsZero() {
		u.UnlockedAt = time.Now().UTC()
	}
	s.unlocks[u.UserID] = append(s.unlocks[u.UserID], u)
	return u, nil
}

func (s *Store) ListUnlocks(_ context.Context, userID string) ([]achievement.Unlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]achievement.Unlock, len(s.unlocks[userID]))
	copy(result, s.unlocks[userID])
	return result, nil
}

// GoalStore implementation ----------------------------------------------------

func (s *Store) CreateGoal(_ context.Context, g goal.Goal) (goal.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if g.ID == "" {
		g.ID = s.nextIDLocked()
	}
	now := time.Now().UTC()
	g.CreatedAt = now
	g.UpdatedAt = now
	s.goals[g.ID] = g
	return g, nil
}

func (s *Store) UpdateGoal(_ context.Context, g goal.Goal) (goal.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.goals[g.ID]
	if !ok {
		return goal.Goal{}, fmt.Errorf("goal %s not found", g.ID)
	}
	g.UserID = original.UserID
	g.CreatedAt = original.CreatedAt
	g.UpdatedAt = time.Now().UTC()
	s.goals[g.ID] = g
	return g, nil
}

func (s *Store) GetGoal(_ context.Context, id string) (goal.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.goals[id]
	if !ok {
		return goal.Goal{}, fmt.Errorf("goal %s not found", id)
	}
	return g, nil
}

func (s *Store) ListGoals(_ context.Context, userID string) ([]goal.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []goal.Goal
	for _, g := range s.goals {
		if g.UserID == userID {
			result = append(result, g)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) DeleteGoal(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.goals[id]; !ok {
		return fmt.Errorf("goal %s not found", id)
	}
	delete(s.goals, id)
	delete(s.goalProgress, id)
	return nil
}

func (s *Store) CreateProgress(_ context.Context, p goal.Progress) (goal.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.goals[p.GoalID]; !ok {
		return goal.Progress{}, fmt.Errorf("goal %s not found", p.GoalID)
	}
	if p.ID == "" {
		p.ID = s.nextIDLocked()
	}
	p.CreatedAt = time.Now().UTC()
	s.goalProgress[p.GoalID] = append(s.goalProgress[p.GoalID], p)
	return p, nil
}

func (s *Store) ListProgress(_ context.Context, goalID string) ([]goal.Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]goal.Progress, len(s.goalProgress[goalID]))
	copy(result, s.goalProgress[goalID])
	return result, nil
}

// ChallengeStore implementation -----------------------------------------------

func (s *Store) CreateChallenge(_ context.Context, c challenge.Challenge) (challenge.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = s.nextIDLocked()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	s.challenges[c.ID] = c
	return c, nil
}

func (s *Store) UpdateChallenge(_ context.Context, c challenge.Challenge) (challenge.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.challenges[c.ID]
	if !ok {
		return challenge.Challenge{}, fmt.Errorf("challenge %s not found", c.ID)
	}
	c.UserID = original.UserID
	c.CreatedAt = original.CreatedAt
	s.challenges[c.ID] = c
	return c, nil
}

func (s *Store) GetChallenge(_ context.Context, id string) (challenge.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.challenges[id]
	if !ok {
		return challenge.Challenge{}, fmt.Errorf("challenge %s not found", id)
	}
	return c, nil
}

func (s *Store) ListChallenges(_ context.Context, userID string) ([]challenge.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []challenge.Challenge
	for _, c := range s.challenges {
		if c.UserID == userID {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) GetChallengeForDay(_ context.Context, userID string, day time.Time) (challenge.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dayStart := day.UTC().Truncate(24 * time.Hour)
	for _, c := range s.challenges {
		if c.UserID == userID && c.CreatedAt.UTC().Truncate(24*time.Hour).Equal(dayStart) {
			return c, nil
		}
	}
	return challenge.Challenge{}, fmt.Errorf("no challenge for user %s on %s", userID, dayStart.Format("2006-01-02"))
}

// AffirmationStore implementation ---------------------------------------------

func (s *Store) CreateAffirmation(_ context.Context, a affirmation.Affirmation) (affirmation.Affirmation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == "" {
		a.ID = s.nextIDLocked()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	s.affirmations[a.UserID] = append(s.affirmations[a.UserID], a)
	return a, nil
}

func (s *Store) LatestAffirmation(_ context.Context, userID string) (affirmation.Affirmation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.affirmations[userID]
	if len(list) == 0 {
		return affirmation.Affirmation{}, fmt.Errorf("no affirmations for user %s", userID)
	}
	return list[len(list)-1], nil
}

// SupportStore implementation -------------------------------------------------

func (s *Store) CreateTopic(_ context.Context, t support.Topic) (support.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.topics {
		if existing.Name == t.Name {
			return support.Topic{}, fmt.Errorf("topic %s already exists", t.Name)
		}
	}
	if t.ID == "" {
		t.ID = s.nextIDLocked()
	}
	t.CreatedAt = time.Now().UTC()
	s.topics[t.ID] = t
	return t, nil
}

func (s *Store) ListTopics(_ context.Context) ([]support.Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]support.Topic, 0, len(s.topics))
	for _, t := range s.topics {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s *Store) CreateGroup(_ context.Context, g support.Group) (support.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if g.InviteCode != "" {
		if _, exists := s.groupsByInvite[g.InviteCode]; exists {
			return support.Group{}, fmt.Errorf("invite code collision")
		}
	}
	if g.ID == "" {
		g.ID = s.nextIDLocked()
	}
	now := time.Now().UTC()
	g.CreatedAt = now
	g.UpdatedAt = now
	s.groups[g.ID] = g
	if g.InviteCode != "" {
		s.groupsByInvite[g.InviteCode] = g.ID
	}
	return g, nil
}

func (s *Store) GetGroup(_ context.Context, id string) (support.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[id]
	if !ok {
		return support.Group{}, fmt.Errorf("group %s not found", id)
	}
	return g, nil
}

func (s *Store) GetGroupByInviteCode(_ context.Context, code string) (support.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.groupsByInvite[code]
	if !ok {
		return support.Group{}, fmt.Errorf("invite code not recognised")
	}
	return s.groups[id], nil
}

func (s *Store) ListGroups(_ context.Context) ([]support.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]support.Group, 0, len(s.groups))
	for _, g := range s.groups {
		result = append(result, g)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) CreateMembership(_ context.Context, m support.Membership) (support.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[m.GroupID]; !ok {
		return support.Membership{}, fmt.Errorf("group %s not found", m.GroupID)
	}
	for _, existing := range s.memberships {
		if existing.GroupID == m.GroupID && existing.UserID == m.UserID {
			return support.Membership{}, fmt.Errorf("user %s already a member of group %s", m.UserID, m.GroupID)
		}
	}
	if m.ID == "" {
		m.ID = s.nextIDLocked()
	}
	m.JoinedAt = time.Now().UTC()
	s.memberships[m.ID] = m
	return m, nil
}

func (s *Store) ListGroupMemberships(_ context.Context, groupID string) ([]support.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []support.Membership
	for _, m := range s.memberships {
		if m.GroupID == groupID {
			result = append(result, m)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].JoinedAt.Before(result[j].JoinedAt) })
	return result, nil
}

func (s *Store) ListUserMemberships(_ context.Context, userID string) ([]support.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []support.Membership
	for _, m := range s.memberships {
		if m.UserID == userID {
			result = append(result, m)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].JoinedAt.Before(result[j].JoinedAt) })
	return result, nil
}

func (s *Store) CreateMessage(_ context.Context, m support.Message) (support.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[m.GroupID]; !ok {
		return support.Message{}, fmt.Errorf("group %s not found", m.GroupID)
	}
	if m.ID == "" {
		m.ID = s.nextIDLocked()
	}
	m.CreatedAt = time.Now().UTC()
	s.messages[m.GroupID] = append(s.messages[m.GroupID], m)
	return m, nil
}

func (s *Store) ListMessages(_ context.Context, groupID string) ([]support.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]support.Message, len(s.messages[groupID]))
	copy(result, s.messages[groupID])
	return result, nil
}

// BillingStore implementation -------------------------------------------------

func (s *Store) CreatePlan(_ context.Context, p billing.Plan) (billing.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.plans {
		if existing.Name == p.Name {
			return billing.Plan{}, fmt.Errorf("plan %s already exists", p.Name)
		}
	}
	if p.ID == "" {
		p.ID = s.nextIDLocked()
	}
	p.CreatedAt = time.Now().UTC()
	p.Features = cloneStrings(p.Features)
	s.plans[p.ID] = p
	return p, nil
}

func (s *Store) ListPlans(_ context.Context) ([]billing.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]billing.Plan, 0, len(s.plans))
	for _, p := range s.plans {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) GetPlanByName(_ context.Context, name string) (billing.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.plans {
		if p.Name == name {
			return p, nil
		}
	}
	return billing.Plan{}, fmt.Errorf("plan %s not found", name)
}

func (s *Store) CreateSubscription(_ context.Context, sub billing.Subscription) (billing.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sub.ID == "" {
		sub.ID = s.nextIDLocked()
	}
	sub.CreatedAt = time.Now().UTC()
	s.subscriptions[sub.ID] = sub
	if sub.ProviderSubscriptionID != "" {
		s.subsByProviderID[sub.ProviderSubscriptionID] = sub.ID
	}
	return sub, nil
}

func (s *Store) UpdateSubscription(_ context.Context, sub billing.Subscription) (billing.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.subscriptions[sub.ID]
	if !ok {
		return billing.Subscription{}, fmt.Errorf("subscription %s not found", sub.ID)
	}
	sub.UserID = original.UserID
	sub.CreatedAt = original.CreatedAt
	s.subscriptions[sub.ID] = sub
	return sub, nil
}

func (s *Store) GetSubscriptionByUser(_ context.Context, userID string) (billing.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *billing.Subscription
	for id := range s.subscriptions {
		sub := s.subscriptions[id]
		if sub.UserID != userID {
			continue
		}
		if latest == nil || sub.CreatedAt.After(latest.CreatedAt) {
			latest = &sub
		}
	}
	if latest == nil {
		return billing.Subscription{}, fmt.Errorf("subscription for user %s not found", userID)
	}
	return *latest, nil
}

func (s *Store) GetSubscriptionByProviderID(_ context.Context, providerID string) (billing.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.subsByProviderID[providerID]
	if !ok {
		return billing.Subscription{}, fmt.Errorf("subscription %s not found", providerID)
	}
	return s.subscriptions[id], nil
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
