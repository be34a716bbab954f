package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

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

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.EntryStore = (*Store)(nil)
var _ storage.AchievementStore = (*Store)(nil)
var _ storage.GoalStore = (*Store)(nil)
var _ storage.ChallengeStore = (*Store)(nil)
var _ storage.AffirmationStore = (*Store)(nil)
var _ storage.SupportStore = (*Store)(nil)
var _ storage.BillingStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// --- UserStore --------------------------------------------------------------

const userColumns = `id, username, email, password_hash, first_name, last_name,
	email_notifications, current_streak, longest_streak, last_entry_date,
	subscription_tier, payment_customer_id, ai_requests_count, ai_requests_reset_at,
	created_at, updated_at`

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.SubscriptionTier == "" {
		u.SubscriptionTier = user.TierBasic
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, first_name, last_name,
			email_notifications, current_streak, longest_streak, last_entry_date,
			subscription_tier, payment_customer_id, ai_requests_count, ai_requests_reset_at,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`, u.ID, u.Username, u.Email, u.PasswordHash, u.FirstName, u.LastName,
		u.EmailNotifications, u.CurrentStreak, u.LongestStreak, toNullTimePtr(u.LastEntryDate),
		u.SubscriptionTier, u.PaymentCustomerID, u.AIRequestsCount, toNullTimePtr(u.AIRequestsResetAt),
		u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return user.User{}, err
	}
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u user.User) (user.User, error) {
	existing, err := s.GetUser(ctx, u.ID)
	if err != nil {
		return user.User{}, err
	}

	u.Username = existing.Username
	u.CreatedAt = existing.CreatedAt
	u.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET email = $2, password_hash = $3, first_name = $4, last_name = $5,
			email_notifications = $6, subscription_tier = $7, payment_customer_id = $8,
			updated_at = $9
		WHERE id = $1
	`, u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName,
		u.EmailNotifications, u.SubscriptionTier, u.PaymentCustomerID, u.UpdatedAt)
	if err != nil {
		return user.User{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return user.User{}, sql.ErrNoRows
	}
	return s.GetUser(ctx, u.ID)
}

func (s *Store) GetUser(ctx context.Context, id string) (user.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE lower(username) = lower($1)`, username)
	return scanUser(row)
}

func (s *Store) ListUsers(ctx context.Context) ([]user.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

func (s *Store) UpdateStreak(ctx context.Context, id string, current, longest int, lastEntry time.Time) (user.User, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET current_streak = $2, longest_streak = $3, last_entry_date = $4, updated_at = $5
		WHERE id = $1
	`, id, current, longest, lastEntry.UTC(), time.Now().UTC())
	if err != nil {
		return user.User{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return user.User{}, sql.ErrNoRows
	}
	return s.GetUser(ctx, id)
}

func (s *Store) UpdateAIQuota(ctx context.Context, id string, count int, resetAt *time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET ai_requests_count = $2,
			ai_requests_reset_at = COALESCE($3, ai_requests_reset_at),
			updated_at = $4
		WHERE id = $1
	`, id, count, toNullTimePtr(resetAt), time.Now().UTC())
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (user.User, error) {
	var (
		u         user.User
		lastEntry sql.NullTime
		resetAt   sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&u.EmailNotifications, &u.CurrentStreak, &u.LongestStreak, &lastEntry,
		&u.SubscriptionTier, &u.PaymentCustomerID, &u.AIRequestsCount, &resetAt,
		&u.CreatedAt, &u.UpdatedAt); err != nil {
		return user.User{}, err
	}
	u.LastEntryDate = fromNullTime(lastEntry)
	u.AIRequestsResetAt = fromNullTime(resetAt)
	return u, nil
}

// --- EntryStore -------------------------------------------------------------

func (s *Store) CreateEntry(ctx context.Context, e journal.Entry) (journal.Entry, error) {
	if e.UserID == "" {
		return journal.Entry{}, errors.New("user_id required")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now

	tagsJSON, err := json.Marshal(e.Tags)
	if err != nil {
		return journal.Entry{}, err
	}
	analysisJSON, err := marshalNullable(e.Analysis)
	if err != nil {
		return journal.Entry{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO entries (id, user_id, content, mood, tags, analysis, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, e.ID, e.UserID, e.Content, e.Mood, tagsJSON, analysisJSON, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return journal.Entry{}, err
	}
	return e, nil
}

func (s *Store) UpdateEntry(ctx context.Context, e journal.Entry) (journal.Entry, error) {
	existing, err := s.GetEntry(ctx, e.ID)
	if err != nil {
		return journal.Entry{}, err
	}

	e.UserID = existing.UserID
	e.CreatedAt = existing.CreatedAt
	e.UpdatedAt = time.Now().UTC()

	tagsJSON, err := json.Marshal(e.Tags)
	if err != nil {
		return journal.Entry{}, err
	}
	analysisJSON, err := marshalNullable(e.Analysis)
	if err != nil {
		return journal.Entry{}, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE entries
		SET content = $2, mood = $3, tags = $4, analysis = $5, updated_at = $6
		WHERE id = $1
	`, e.ID, e.Content, e.Mood, tagsJSON, analysisJSON, e.UpdatedAt)
	if err != nil {
		return journal.Entry{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return journal.Entry{}, sql.ErrNoRows
	}
	return e, nil
}

func (s *Store) GetEntry(ctx context.Context, id string) (journal.Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, content, mood, tags, analysis, created_at, updated_at
		FROM entries
		WHERE id = $1
	`, id)
	return scanEntry(row)
}

func (s *Store) ListEntries(ctx context.Context, userID string) ([]journal.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, content, mood, tags, analysis, created_at, updated_at
		FROM entries
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []journal.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func (s *Store) CountEntries(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries WHERE user_id = $1`, userID).Scan(&count)
	return count, err
}

func scanEntry(row rowScanner) (journal.Entry, error) {
	var (
		e           journal.Entry
		tagsRaw     []byte
		analysisRaw []byte
	)
	if err := row.Scan(&e.ID, &e.UserID, &e.Content, &e.Mood, &tagsRaw, &analysisRaw, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return journal.Entry{}, err
	}
	if len(tagsRaw) > 0 {
		_ = json.Unmarshal(tagsRaw, &e.Tags)
	}
	if len(analysisRaw) > 0 {
		var analysis journal.Analysis
		if err := json.Unmarshal(analysisRaw, &analysis); err == nil {
			e.Analysis = &analysis
		}
	}
	return e, nil
}

// --- AchievementStore -------------------------------------------------------

func (s *Store) CreateAchievement(ctx context.Context, a achievement.Achievement) (achievement.Achievement, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO achievements (id, name, description, icon, requirement, level)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, a.ID, a.Name, a.Description, a.Icon, a.Requirement, a.Level)
	if err != nil {
		return achievement.Achievement{}, err
	}
	return a, nil
}

func (s *Store) ListAchievements(ctx context.Context) ([]achievement.Achievement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, icon, requirement, level
		FROM achievements
		ORDER BY level, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []achievement.Achievement
	for rows.Next() {
		var a achievement.Achievement
		if err := rows.Scan(&a.ID, &a.Name, &a.Description, &a.Icon, &a.Requirement, &a.Level); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (s *Store) CreateUnlock(ctx context.Context, u achievement.Unlock) (achievement.Unlock, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.UnlockedAt.IsZero() {
		u.UnlockedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_achievements (id, user_id, achievement_id, unlocked_at)
		VALUES ($1, $2, $3, $4)
	`, u.ID, u.UserID, u.AchievementID, u.UnlockedAt)
	if err != nil {
		return achievement.Unlock{}, err
	}
	return u, nil
}

func (s *Store) ListUnlocks(ctx context.Context, userID string) ([]achievement.Unlock, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, achievement_id, unlocked_at
		FROM user_achievements
		WHERE user_id = $1
		ORDER BY unlocked_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []achievement.Unlock
	for rows.Next() {
		var u achievement.Unlock
		if err := rows.Scan(&u.ID, &u.UserID, &u.AchievementID, &u.UnlockedAt); err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

// --- GoalStore --------------------------------------------------------------

func (s *Store) CreateGoal(ctx context.Context, g goal.Goal) (goal.Goal, error) {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	g.CreatedAt = now
	g.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO wellness_goals (id, user_id, title, description, category, target_value,
			current_value, frequency, start_date, end_date, is_completed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, g.ID, g.UserID, g.Title, g.Description, g.Category, g.TargetValue,
		g.CurrentValue, g.Frequency, g.StartDate.UTC(), toNullTimePtr(g.EndDate), g.Completed, g.CreatedAt, g.UpdatedAt)
	if err != nil {
		return goal.Goal{}, err
	}
	return g, nil
}

func (s *Store) UpdateGoal(ctx context.Context, g goal.Goal) (goal.Goal, error) {
	existing, err := s.GetGoal(ctx, g.ID)
	if err != nil {
		return goal.Goal{}, err
	}

	g.UserID = existing.UserID
	g.CreatedAt = existing.CreatedAt
	g.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE wellness_goals
		SET title = $2, description = $3, category = $4, target_value = $5,
			current_value = $6, frequency = $7, end_date = $8, is_completed = $9, updated_at = $10
		WHERE id = $1
	`, g.ID, g.Title, g.Description, g.Category, g.TargetValue,
		g.CurrentValue, g.Frequency, toNullTimePtr(g.EndDate), g.Completed, g.UpdatedAt)
	if err != nil {
		return goal.Goal{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return goal.Goal{}, sql.ErrNoRows
	}
	return g, nil
}

func (s *Store) GetGoal(ctx context.Context, id string) (goal.Goal, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, description, category, target_value, current_value,
			frequency, start_date, end_date, is_completed, created_at, updated_at
		FROM wellness_goals
		WHERE id = $1
	`, id)
	return scanGoal(row)
}

func (s *Store) ListGoals(ctx context.Context, userID string) ([]goal.Goal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, description, category, target_value, current_value,
			frequency, start_date, end_date, is_completed, created_at, updated_at
		FROM wellness_goals
		WHERE user_id = $1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []goal.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, g)
	}
	return result, rows.Err()
}

func (s *Store) DeleteGoal(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM goal_progress WHERE goal_id = $1`, id); err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, `DELETE FROM wellness_goals WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *Store) CreateProgress(ctx context.Context, p goal.Progress) (goal.Progress, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO goal_progress (id, goal_id, value, note, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, p.ID, p.GoalID, p.Value, p.Note, p.CreatedAt)
	if err != nil {
		return goal.Progress{}, err
	}
	return p, nil
}

func (s *Store) ListProgress(ctx context.Context, goalID string) ([]goal.Progress, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, goal_id, value, note, created_at
		FROM goal_progress
		WHERE goal_id = $1
		ORDER BY created_at
	`, goalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []goal.Progress
	for rows.Next() {
		var p goal.Progress
		if err := rows.Scan(&p.ID, &p.GoalID, &p.Value, &p.Note, &p.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func scanGoal(row rowScanner) (goal.Goal, error) {
	var (
		g       goal.Goal
		endDate sql.NullTime
	)
	if err := row.Scan(&g.ID, &g.UserID, &g.Title, &g.Description, &g.Category, &g.TargetValue,
		&g.CurrentValue, &g.Frequency, &g.StartDate, &endDate, &g.Completed, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return goal.Goal{}, err
	}
	g.EndDate = fromNullTime(endDate)
	return g, nil
}

// --- ChallengeStore ---------------------------------------------------------

func (s *Store) CreateChallenge(ctx context.Context, c challenge.Challenge) (challenge.Challenge, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO daily_challenges (id, user_id, challenge, category, difficulty,
			completed, completed_at, reflection_note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, c.ID, c.UserID, c.Text, c.Category, c.Difficulty,
		c.Completed, toNullTimePtr(c.CompletedAt), c.ReflectionNote, c.CreatedAt)
	if err != nil {
		return challenge.Challenge{}, err
	}
	return c, nil
}

func (s *Store) UpdateChallenge(ctx context.Context, c challenge.Challenge) (challenge.Challenge, error) {
	existing, err := s.GetChallenge(ctx, c.ID)
	if err != nil {
		return challenge.Challenge{}, err
	}
	c.UserID = existing.UserID
	c.CreatedAt = existing.CreatedAt

	result, err := s.db.ExecContext(ctx, `
		UPDATE daily_challenges
		SET challenge = $2, category = $3, difficulty = $4, completed = $5,
			completed_at = $6, reflection_note = $7
		WHERE id = $1
	`, c.ID, c.Text, c.Category, c.Difficulty, c.Completed,
		toNullTimePtr(c.CompletedAt), c.ReflectionNote)
	if err != nil {
		return challenge.Challenge{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return challenge.Challenge{}, sql.ErrNoRows
	}
	return c, nil
}

func (s *Store) GetChallenge(ctx context.Context, id string) (challenge.Challenge, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, challenge, category, difficulty, completed, completed_at, reflection_note, created_at
		FROM daily_challenges
		WHERE id = $1
	`, id)
	return scanChallenge(row)
}

func (s *Store) ListChallenges(ctx context.Context, userID string) ([]challenge.Challenge, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, challenge, category, difficulty, completed, completed_at, reflection_note, created_at
		FROM daily_challenges
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []challenge.Challenge
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (s *Store) GetChallengeForDay(ctx context.Context, userID string, day time.Time) (challenge.Challenge, error) {
	dayStart := day.UTC().Truncate(24 * time.Hour)
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, challenge, category, difficulty, completed, completed_at, reflection_note, created_at
		FROM daily_challenges
		WHERE user_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at DESC
		LIMIT 1
	`, userID, dayStart, dayStart.Add(24*time.Hour))
	return scanChallenge(row)
}

func scanChallenge(row rowScanner) (challenge.Challenge, error) {
	var (
		c           challenge.Challenge
		completedAt sql.NullTime
	)
	if err := row.Scan(&c.ID, &c.UserID, &c.Text, &c.Category, &c.Difficulty,
		&c.Completed, &completedAt, &c.ReflectionNote, &c.CreatedAt); err != nil {
		return challenge.Challenge{}, err
	}
	c.CompletedAt = fromNullTime(completedAt)
	return c, nil
}

// --- AffirmationStore -------------------------------------------------------

func (s *Store) CreateAffirmation(ctx context.Context, a affirmation.Affirmation) (affirmation.Affirmation, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO affirmations (id, user_id, content, created_at)
		VALUES ($1, $2, $3, $4)
	`, a.ID, a.UserID, a.Content, a.CreatedAt)
	if err != nil {
		return affirmation.Affirmation{}, err
	}
	return a, nil
}

func (s *Store) LatestAffirmation(ctx context.Context, userID string) (affirmation.Affirmation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, content, created_at
		FROM affirmations
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, userID)

	var a affirmation.Affirmation
	if err := row.Scan(&a.ID, &a.UserID, &a.Content, &a.CreatedAt); err != nil {
		return affirmation.Affirmation{}, err
	}
	return a, nil
}

// --- SupportStore -----------------------------------------------------------

func (s *Store) CreateTopic(ctx context.Context, t support.Topic) (support.Topic, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO support_topics (id, name, description, icon, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, t.ID, t.Name, t.Description, t.Icon, t.CreatedAt)
	if err != nil {
		return support.Topic{}, err
	}
	return t, nil
}

func (s *Store) ListTopics(ctx context.Context) ([]support.Topic, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, icon, created_at
		FROM support_topics
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []support.Topic
	for rows.Next() {
		var t support.Topic
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.Icon, &t.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func (s *Store) CreateGroup(ctx context.Context, g support.Group) (support.Group, error) {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	g.CreatedAt = now
	g.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO support_groups (id, name, description, topic_id, is_private, max_members,
			invite_code, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, g.ID, g.Name, g.Description, g.TopicID, g.Private, g.MaxMembers,
		g.InviteCode, g.CreatedAt, g.UpdatedAt)
	if err != nil {
		return support.Group{}, err
	}
	return g, nil
}

func (s *Store) GetGroup(ctx context.Context, id string) (support.Group, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, topic_id, is_private, max_members, invite_code, created_at, updated_at
		FROM support_groups
		WHERE id = $1
	`, id)
	return scanGroup(row)
}

func (s *Store) GetGroupByInviteCode(ctx context.Context, code string) (support.Group, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, topic_id, is_private, max_members, invite_code, created_at, updated_at
		FROM support_groups
		WHERE invite_code = $1
	`, code)
	return scanGroup(row)
}

func (s *Store) ListGroups(ctx context.Context) ([]support.Group, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, topic_id, is_private, max_members, invite_code, created_at, updated_at
		FROM support_groups
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []support.Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, g)
	}
	return result, rows.Err()
}

func scanGroup(row rowScanner) (support.Group, error) {
	var g support.Group
	if err := row.Scan(&g.ID, &g.Name, &g.Description, &g.TopicID, &g.Private, &g.MaxMembers,
		&g.InviteCode, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return support.Group{}, err
	}
	return g, nil
}

func (s *Store) CreateMembership(ctx context.Context, m support.Membership) (support.Membership, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.JoinedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO group_memberships (id, user_id, group_id, anonymous_name, role, is_admin, joined_at, last_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, m.ID, m.UserID, m.GroupID, m.AnonymousName, m.Role, m.Admin, m.JoinedAt, toNullTimePtr(m.LastActive))
	if err != nil {
		return support.Membership{}, err
	}
	return m, nil
}

func (s *Store) ListGroupMemberships(ctx context.Context, groupID string) ([]support.Membership, error) {
	return s.listMemberships(ctx, `group_id`, groupID)
}

func (s *Store) ListUserMemberships(ctx context.Context, userID string) ([]support.Membership, error) {
	return s.listMemberships(ctx, `user_id`, userID)
}

func (s *Store) listMemberships(ctx context.Context, column, value string) ([]support.Membership, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, group_id, anonymous_name, role, is_admin, joined_at, last_active
		FROM group_memberships
		WHERE `+column+` = $1
		ORDER BY joined_at
	`, value)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []support.Membership
	for rows.Next() {
		var (
			m          support.Membership
			lastActive sql.NullTime
		)
		if err := rows.Scan(&m.ID, &m.UserID, &m.GroupID, &m.AnonymousName, &m.Role, &m.Admin, &m.JoinedAt, &lastActive); err != nil {
			return nil, err
		}
		m.LastActive = fromNullTime(lastActive)
		result = append(result, m)
	}
	return result, rows.Err()
}

func (s *Store) CreateMessage(ctx context.Context, m support.Message) (support.Message, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.CreatedAt = time.Now().UTC()

	sentimentJSON, err := marshalNullable(m.Sentiment)
	if err != nil {
		return support.Message{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO support_messages (id, group_id, membership_id, content, is_anonymous, sentiment, created_at, edited_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, m.ID, m.GroupID, m.MembershipID, m.Content, m.Anonymous, sentimentJSON, m.CreatedAt, toNullTimePtr(m.EditedAt))
	if err != nil {
		return support.Message{}, err
	}
	return m, nil
}

func (s *Store) ListMessages(ctx context.Context, groupID string) ([]support.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, group_id, membership_id, content, is_anonymous, sentiment, created_at, edited_at
		FROM support_messages
		WHERE group_id = $1
		ORDER BY created_at
	`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []support.Message
	for rows.Next() {
		var (
			m            support.Message
			sentimentRaw []byte
			editedAt     sql.NullTime
		)
		if err := rows.Scan(&m.ID, &m.GroupID, &m.MembershipID, &m.Content, &m.Anonymous, &sentimentRaw, &m.CreatedAt, &editedAt); err != nil {
			return nil, err
		}
		if len(sentimentRaw) > 0 {
			var sentiment support.MessageSentiment
			if err := json.Unmarshal(sentimentRaw, &sentiment); err == nil {
				m.Sentiment = &sentiment
			}
		}
		m.EditedAt = fromNullTime(editedAt)
		result = append(result, m)
	}
	return result, rows.Err()
}

// --- BillingStore -----------------------------------------------------------

func (s *Store) CreatePlan(ctx context.Context, p billing.Plan) (billing.Plan, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = time.Now().UTC()

	featuresJSON, err := json.Marshal(p.Features)
	if err != nil {
		return billing.Plan{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO subscription_plans (id, name, price, price_id, features, ai_requests_limit, group_limit, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, p.ID, p.Name, p.Price, p.PriceID, featuresJSON, p.AIRequestsLimit, p.GroupLimit, p.CreatedAt)
	if err != nil {
		return billing.Plan{}, err
	}
	return p, nil
}

func (s *Store) ListPlans(ctx context.Context) ([]billing.Plan, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, price, price_id, features, ai_requests_limit, group_limit, created_at
		FROM subscription_plans
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []billing.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (s *Store) GetPlanByName(ctx context.Context, name string) (billing.Plan, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, price, price_id, features, ai_requests_limit, group_limit, created_at
		FROM subscription_plans
		WHERE name = $1
	`, name)
	return scanPlan(row)
}

func scanPlan(row rowScanner) (billing.Plan, error) {
	var (
		p           billing.Plan
		featuresRaw []byte
		aiLimit     sql.NullInt64
		groupLimit  sql.NullInt64
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Price, &p.PriceID, &featuresRaw, &aiLimit, &groupLimit, &p.CreatedAt); err != nil {
		return billing.Plan{}, err
	}
	if len(featuresRaw) > 0 {
		_ = json.Unmarshal(featuresRaw, &p.Features)
	}
	if aiLimit.Valid {
		v := int(aiLimit.Int64)
		p.AIRequestsLimit = &v
	}
	if groupLimit.Valid {
		v := int(groupLimit.Int64)
		p.GroupLimit = &v
	}
	return p, nil
}

func (s *Store) CreateSubscription(ctx context.Context, sub billing.Subscription) (billing.Subscription, error) {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	sub.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subscriptions (id, user_id, plan_id, provider_subscription_id, status,
			start_date, end_date, cancelled_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, sub.ID, sub.UserID, sub.PlanID, sub.ProviderSubscriptionID, sub.Status,
		sub.StartDate.UTC(), toNullTimePtr(sub.EndDate), toNullTimePtr(sub.CancelledAt), sub.CreatedAt)
	if err != nil {
		return billing.Subscription{}, err
	}
	return sub, nil
}

func (s *Store) UpdateSubscription(ctx context.Context, sub billing.Subscription) (billing.Subscription, error) {
	existing, err := s.getSubscription(ctx, `id`, sub.ID)
	if err != nil {
		return billing.Subscription{}, err
	}
	sub.UserID = existing.UserID
	sub.CreatedAt = existing.CreatedAt

	result, err := s.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET plan_id = $2, status = $3, start_date = $4, end_date = $5, cancelled_at = $6
		WHERE id = $1
	`, sub.ID, sub.PlanID, sub.Status, sub.StartDate.UTC(), toNullTimePtr(sub.EndDate), toNullTimePtr(sub.CancelledAt))
	if err != nil {
		return billing.Subscription{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return billing.Subscription{}, sql.ErrNoRows
	}
	return sub, nil
}

func (s *Store) GetSubscriptionByUser(ctx context.Context, userID string) (billing.Subscription, error) {
	return s.getSubscription(ctx, `user_id`, userID)
}

func (s *Store) GetSubscriptionByProviderID(ctx context.Context, providerID string) (billing.Subscription, error) {
	return s.getSubscription(ctx, `provider_subscription_id`, providerID)
}

func (s *Store) getSubscription(ctx context.Context, column, value string) (billing.Subscription, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, plan_id, provider_subscription_id, status, start_date, end_date, cancelled_at, created_at
		FROM subscriptions
		WHERE `+column+` = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, value)

	var (
		sub         billing.Subscription
		endDate     sql.NullTime
		cancelledAt sql.NullTime
	)
	if err := row.Scan(&sub.ID, &sub.UserID, &sub.PlanID, &sub.ProviderSubscriptionID, &sub.Status,
		&sub.StartDate, &endDate, &cancelledAt, &sub.CreatedAt); err != nil {
		return billing.Subscription{}, err
	}
	sub.EndDate = fromNullTime(endDate)
	sub.CancelledAt = fromNullTime(cancelledAt)
	return sub, nil
}

// --- helpers ----------------------------------------------------------------

func marshalNullable(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	switch typed := v.(type) {
	case *journal.Analysis:
		if typed == nil {
			return nil, nil
		}
	case *support.MessageSentiment:
		if typed == nil {
			return nil, nil
		}
	}
	return json.Marshal(v)
}

func toNullTimePtr(t *time.Time) sql.NullTime {
	if t == nil || t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func fromNullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}
