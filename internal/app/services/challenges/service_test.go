package challenges

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/serenitylabs/wellness_layer/internal/app/domain/journal"
	"github.com/serenitylabs/wellness_layer/internal/app/domain/support"
	"github.com/serenitylabs/wellness_layer/internal/app/domain/user"
	"github.com/serenitylabs/wellness_layer/internal/app/services/insights"
	"github.com/serenitylabs/wellness_layer/internal/app/storage/memory"
)

type stubProvider struct {
	idea  insights.ChallengeIdea
	err   error
	calls int
}

func (p *stubProvider) AnalyzeEntry(ctx context.Context, content string, mood int) (*journal.Analysis, error) {
	return nil, errors.New("not implemented")
}

func (p *stubProvider) GenerateAffirmation(ctx context.Context, recentMoods []string) (string, error) {
	return "", errors.New("not implemented")
}

func (p *stubProvider) GenerateChallenge(ctx context.Context, category string) (insights.ChallengeIdea, error) {
	p.calls++
	if p.err != nil {
		return insights.ChallengeIdea{}, p.err
	}
	return p.idea, nil
}

func (p *stubProvider) AnalyzeMessageTone(ctx context.Context, content string) (*support.MessageSentiment, error) {
	return nil, errors.New("not implemented")
}

func newChallengeFixture(t *testing.T, provider insights.Provider) (*memory.Store, *Service, user.User) {
	t.Helper()
	store := memory.New()
	svc := New(store, provider, nil, nil)

	u, err := store.CreateUser(context.Background(), user.User{Username: "doer", Email: "d@example.com", PasswordHash: "x"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return store, svc, u
}

func TestTodayGeneratesOncePerDay(t *testing.T) {
	provider := &stubProvider{idea: insights.ChallengeIdea{Text: "Call a friend.", Category: "connection", Difficulty: "easy"}}
	_, svc, u := newChallengeFixture(t, provider)
	ctx := context.Background()

	svc.WithClock(func() time.Time { return time.Date(2025, 5, 2, 8, 0, 0, 0, time.UTC) })

	first, err := svc.Today(ctx, u.ID)
	if err != nil {
		t.Fatalf("first today: %v", err)
	}
	second, err := svc.Today(ctx, u.ID)
	if err != nil {
		t.Fatalf("second today: %v", err)
	}
	if first.ID != second.ID {
		t.Fatal("same-day request created a second challenge")
	}
	if provider.calls != 1 {
		t.Fatalf("provider called %d times, want 1", provider.calls)
	}
}

func TestTodayStoresFallbackOnProviderError(t *testing.T) {
	provider := &stubProvider{err: errors.New("down")}
	store, svc, u := newChallengeFixture(t, provider)
	ctx := context.Background()

	c, err := svc.Today(ctx, u.ID)
	if err != nil {
		t.Fatalf("today: %v", err)
	}
	if c.Text != insights.FallbackChallenge().Text {
		t.Fatalf("expected fallback challenge, got %q", c.Text)
	}

	// The fallback is persisted so the user keeps one challenge all day.
	stored, err := store.GetChallengeForDay(ctx, u.ID, time.Now().UTC())
	if err != nil {
		t.Fatalf("challenge not stored: %v", err)
	}
	if stored.ID != c.ID {
		t.Fatal("stored challenge differs from returned one")
	}
}

func TestCompleteSetsReflectionOnce(t *testing.T) {
	_, svc, u := newChallengeFixture(t, nil)
	ctx := context.Background()

	c, err := svc.Today(ctx, u.ID)
	if err != nil {
		t.Fatalf("today: %v", err)
	}

	done, err := svc.Complete(ctx, u.ID, c.ID, "Felt good.")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !done.Completed || done.CompletedAt == nil || done.ReflectionNote != "Felt good." {
		t.Fatalf("completion not recorded: %+v", done)
	}

	again, err := svc.Complete(ctx, u.ID, c.ID, "Changed my mind.")
	if err != nil {
		t.Fatalf("second complete: %v", err)
	}
	if again.ReflectionNote != "Felt good." || !again.CompletedAt.Equal(*done.CompletedAt) {
		t.Fatalf("repeat completion overwrote the first: %+v", again)
	}
}

func TestCompleteHidesOtherUsersChallenges(t *testing.T) {
	store, svc, u := newChallengeFixture(t, nil)
	ctx := context.Background()

	other, err := store.CreateUser(ctx, user.User{Username: "other", Email: "o@example.com", PasswordHash: "x"})
	if err != nil {
		t.Fatalf("create other: %v", err)
	}
	c, err := svc.Today(ctx, other.ID)
	if err != nil {
		t.Fatalf("today: %v", err)
	}

	if _, err := svc.Complete(ctx, u.ID, c.ID, ""); err == nil {
		t.Fatal("expected other user's challenge to be hidden")
	}
}

func TestNewDayGetsNewChallenge(t *testing.T) {
	provider := &stubProvider{idea: insights.ChallengeIdea{Text: "Stretch.", Category: "movement", Difficulty: "easy"}}
	_, svc, u := newChallengeFixture(t, provider)
	ctx := context.Background()

	svc.WithClock(func() time.Time { return time.Date(2025, 5, 2, 8, 0, 0, 0, time.UTC) })
	first, err := svc.Today(ctx, u.ID)
	if err != nil {
		t.Fatalf("day one: %v", err)
	}

	svc.WithClock(func() time.Time { return time.Date(2025, 5, 3, 8, 0, 0, 0, time.UTC) })
	second, err := svc.Today(ctx, u.ID)
	if err != nil {
		t.Fatalf("day two: %v", err)
	}
	if first.ID == second.ID {
		t.Fatal("new day reused the previous challenge")
	}
}
