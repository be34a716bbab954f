package affirmations

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/serenitylabs/wellness_layer/internal/app/domain/journal"
	"github.com/serenitylabs/wellness_layer/internal/app/domain/support"
	"github.com/serenitylabs/wellness_layer/internal/app/domain/user"
	"github.com/serenitylabs/wellness_layer/internal/app/services/billing"
	"github.com/serenitylabs/wellness_layer/internal/app/services/insights"
	"github.com/serenitylabs/wellness_layer/internal/app/storage/memory"
)

type stubProvider struct {
	text  string
	err   error
	calls int
}

func (p *stubProvider) AnalyzeEntry(ctx context.Context, content string, mood int) (*journal.Analysis, error) {
	return nil, errors.New("not implemented")
}

func (p *stubProvider) GenerateAffirmation(ctx context.Context, recentMoods []string) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	return p.text, nil
}

func (p *stubProvider) GenerateChallenge(ctx context.Context, category string) (insights.ChallengeIdea, error) {
	return insights.ChallengeIdea{}, errors.New("not implemented")
}

func (p *stubProvider) AnalyzeMessageTone(ctx context.Context, content string) (*support.MessageSentiment, error) {
	return nil, errors.New("not implemented")
}

type stubQuota struct{ err error }

func (q *stubQuota) ConsumeAIRequest(ctx context.Context, userID string) error { return q.err }

func newAffirmationFixture(t *testing.T, provider insights.Provider, quota QuotaGate) (*memory.Store, *Service, user.User) {
	t.Helper()
	store := memory.New()
	svc := New(store, store, provider, quota, nil)

	u, err := store.CreateUser(context.Background(), user.User{Username: "seeker", Email: "s@example.com", PasswordHash: "x"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return store, svc, u
}

func TestTodayGeneratesOncePerDay(t *testing.T) {
	provider := &stubProvider{text: "I grow a little every day."}
	_, svc, u := newAffirmationFixture(t, provider, &stubQuota{})
	ctx := context.Background()

	svc.WithClock(func() time.Time { return time.Date(2025, 5, 2, 9, 0, 0, 0, time.UTC) })

	first, err := svc.Today(ctx, u.ID)
	if err != nil {
		t.Fatalf("first today: %v", err)
	}
	if first.Content != "I grow a little every day." {
		t.Fatalf("unexpected content %q", first.Content)
	}

	second, err := svc.Today(ctx, u.ID)
	if err != nil {
		t.Fatalf("second today: %v", err)
	}
	if second.ID != first.ID {
		t.Fatal("same-day request generated a new affirmation")
	}
	if provider.calls != 1 {
		t.Fatalf("provider called %d times, want 1", provider.calls)
	}
}

func TestTodayUsesRecentMoods(t *testing.T) {
	provider := &stubProvider{text: "ok"}
	store, svc, u := newAffirmationFixture(t, provider, &stubQuota{})
	ctx := context.Background()

	if _, err := store.CreateEntry(ctx, journal.Entry{UserID: u.ID, Content: "x", Mood: 2}); err != nil {
		t.Fatalf("create entry: %v", err)
	}
	if _, err := svc.Today(ctx, u.ID); err != nil {
		t.Fatalf("today: %v", err)
	}
	if provider.calls != 1 {
		t.Fatalf("provider not called")
	}
}

func TestTodayFallsBackOnProviderError(t *testing.T) {
	provider := &stubProvider{err: errors.New("down")}
	store, svc, u := newAffirmationFixture(t, provider, &stubQuota{})
	ctx := context.Background()

	a, err := svc.Today(ctx, u.ID)
	if err != nil {
		t.Fatalf("today: %v", err)
	}
	if a.Content != insights.FallbackAffirmation {
		t.Fatalf("expected fallback, got %q", a.Content)
	}

	// Fallbacks are not stored; the next request retries generation.
	if _, err := store.LatestAffirmation(ctx, u.ID); err == nil {
		t.Fatal("fallback affirmation should not be persisted")
	}
}

func TestTodayFallsBackWhenQuotaExhausted(t *testing.T) {
	provider := &stubProvider{text: "never served"}
	_, svc, u := newAffirmationFixture(t, provider, &stubQuota{err: billing.ErrQuotaExceeded})

	a, err := svc.Today(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("today: %v", err)
	}
	if a.Content != insights.FallbackAffirmation {
		t.Fatalf("expected fallback, got %q", a.Content)
	}
	if provider.calls != 0 {
		t.Fatal("provider called past quota")
	}
}

func TestTodayGeneratesNewOnNextDay(t *testing.T) {
	provider := &stubProvider{text: "fresh"}
	_, svc, u := newAffirmationFixture(t, provider, &stubQuota{})
	ctx := context.Background()

	svc.WithClock(func() time.Time { return time.Date(2025, 5, 2, 9, 0, 0, 0, time.UTC) })
	if _, err := svc.Today(ctx, u.ID); err != nil {
		t.Fatalf("day one: %v", err)
	}

	svc.WithClock(func() time.Time { return time.Date(2025, 5, 3, 9, 0, 0, 0, time.UTC) })
	if _, err := svc.Today(ctx, u.ID); err != nil {
		t.Fatalf("day two: %v", err)
	}
	if provider.calls != 2 {
		t.Fatalf("expected 2 generations across days, got %d", provider.calls)
	}
}
