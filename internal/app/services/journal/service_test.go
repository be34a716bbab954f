package journal

import (
	"context"
	"errors"
	"testing"

	"github.com/serenitylabs/wellness_layer/internal/app/domain/journal"
	"github.com/serenitylabs/wellness_layer/internal/app/domain/support"
	"github.com/serenitylabs/wellness_layer/internal/app/domain/user"
	"github.com/serenitylabs/wellness_layer/internal/app/services/billing"
	"github.com/serenitylabs/wellness_layer/internal/app/services/insights"
	"github.com/serenitylabs/wellness_layer/internal/app/storage/memory"
)

type stubProvider struct {
	analysis *journal.Analysis
	err      error
	calls    int
}

func (p *stubProvider) AnalyzeEntry(ctx context.Context, content string, mood int) (*journal.Analysis, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.analysis, nil
}

func (p *stubProvider) GenerateAffirmation(ctx context.Context, recentMoods []string) (string, error) {
	return "", errors.New("not implemented")
}

func (p *stubProvider) GenerateChallenge(ctx context.Context, category string) (insights.ChallengeIdea, error) {
	return insights.ChallengeIdea{}, errors.New("not implemented")
}

func (p *stubProvider) AnalyzeMessageTone(ctx context.Context, content string) (*support.MessageSentiment, error) {
	return nil, errors.New("not implemented")
}

type stubQuota struct {
	err error
}

func (q *stubQuota) ConsumeAIRequest(ctx context.Context, userID string) error { return q.err }

type stubEvaluator struct {
	users []string
	err   error
}

func (e *stubEvaluator) RecordEntry(ctx context.Context, userID string) error {
	e.users = append(e.users, userID)
	return e.err
}

func newJournalFixture(t *testing.T, provider insights.Provider, quota QuotaGate, evaluator Evaluator) (*memory.Store, *Service, user.User) {
	t.Helper()
	store := memory.New()
	svc := New(store, provider, quota, evaluator, nil).WithSyncEvaluation()

	u, err := store.CreateUser(context.Background(), user.User{Username: "writer", Email: "w@example.com", PasswordHash: "x"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return store, svc, u
}

func TestCreateAttachesAnalysisAndRunsEvaluator(t *testing.T) {
	provider := &stubProvider{analysis: &journal.Analysis{Sentiment: journal.Sentiment{Score: 4, Label: "positive"}}}
	evaluator := &stubEvaluator{}
	_, svc, u := newJournalFixture(t, provider, &stubQuota{}, evaluator)

	entry, err := svc.Create(context.Background(), u.ID, CreateInput{Content: "Good day.", Mood: 4})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if entry.Analysis == nil || entry.Analysis.Sentiment.Label != "positive" {
		t.Fatalf("analysis missing: %+v", entry.Analysis)
	}
	if len(evaluator.users) != 1 || evaluator.users[0] != u.ID {
		t.Fatalf("evaluator not invoked: %v", evaluator.users)
	}
}

func TestCreateSurvivesProviderFailure(t *testing.T) {
	provider := &stubProvider{err: errors.New("provider down")}
	_, svc, u := newJournalFixture(t, provider, &stubQuota{}, &stubEvaluator{})

	entry, err := svc.Create(context.Background(), u.ID, CreateInput{Content: "Rough day.", Mood: 2})
	if err != nil {
		t.Fatalf("create should not fail on provider error: %v", err)
	}
	if entry.Analysis == nil || entry.Analysis.Sentiment.Label != "neutral" {
		t.Fatalf("expected neutral fallback analysis, got %+v", entry.Analysis)
	}
}

func TestCreateSkipsAnalysisWhenQuotaExhausted(t *testing.T) {
	provider := &stubProvider{analysis: insights.NeutralAnalysis()}
	_, svc, u := newJournalFixture(t, provider, &stubQuota{err: billing.ErrQuotaExceeded}, &stubEvaluator{})

	entry, err := svc.Create(context.Background(), u.ID, CreateInput{Content: "Over quota.", Mood: 3})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if entry.Analysis != nil {
		t.Fatalf("expected no analysis past quota, got %+v", entry.Analysis)
	}
	if provider.calls != 0 {
		t.Fatalf("provider called despite exhausted quota")
	}
}

func TestCreateSurvivesEvaluatorFailure(t *testing.T) {
	evaluator := &stubEvaluator{err: errors.New("evaluator broke")}
	_, svc, u := newJournalFixture(t, nil, nil, evaluator)

	if _, err := svc.Create(context.Background(), u.ID, CreateInput{Content: "Entry.", Mood: 3}); err != nil {
		t.Fatalf("create should not surface evaluator errors: %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	_, svc, u := newJournalFixture(t, nil, nil, nil)
	ctx := context.Background()

	if _, err := svc.Create(ctx, u.ID, CreateInput{Content: "  ", Mood: 3}); err == nil {
		t.Fatal("expected empty content to fail")
	}
	if _, err := svc.Create(ctx, u.ID, CreateInput{Content: "x", Mood: 0}); err == nil {
		t.Fatal("expected mood 0 to fail")
	}
	if _, err := svc.Create(ctx, u.ID, CreateInput{Content: "x", Mood: 6}); err == nil {
		t.Fatal("expected mood 6 to fail")
	}
}

func TestUpdateReanalyzesButNeverReevaluates(t *testing.T) {
	provider := &stubProvider{analysis: &journal.Analysis{Sentiment: journal.Sentiment{Score: 3, Label: "neutral"}}}
	evaluator := &stubEvaluator{}
	_, svc, u := newJournalFixture(t, provider, &stubQuota{}, evaluator)
	ctx := context.Background()

	entry, err := svc.Create(ctx, u.ID, CreateInput{Content: "Before.", Mood: 3})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	callsAfterCreate := provider.calls

	content := "After."
	if _, err := svc.Update(ctx, u.ID, entry.ID, UpdateInput{Content: &content}); err != nil {
		t.Fatalf("update: %v", err)
	}

	if provider.calls != callsAfterCreate+1 {
		t.Fatalf("expected one re-analysis, got %d calls", provider.calls-callsAfterCreate)
	}
	if len(evaluator.users) != 1 {
		t.Fatalf("evaluator re-ran on update: %v", evaluator.users)
	}
}

func TestUpdateSameContentSkipsReanalysis(t *testing.T) {
	provider := &stubProvider{analysis: insights.NeutralAnalysis()}
	_, svc, u := newJournalFixture(t, provider, &stubQuota{}, nil)
	ctx := context.Background()

	entry, err := svc.Create(ctx, u.ID, CreateInput{Content: "Same.", Mood: 3})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	callsAfterCreate := provider.calls

	mood := 5
	if _, err := svc.Update(ctx, u.ID, entry.ID, UpdateInput{Mood: &mood}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if provider.calls != callsAfterCreate {
		t.Fatal("mood-only update should not re-analyze")
	}
}

func TestGetHidesOtherUsersEntries(t *testing.T) {
	store, svc, u := newJournalFixture(t, nil, nil, nil)
	ctx := context.Background()

	other, err := store.CreateUser(ctx, user.User{Username: "other", Email: "o@example.com", PasswordHash: "x"})
	if err != nil {
		t.Fatalf("create other user: %v", err)
	}
	entry, err := svc.Create(ctx, other.ID, CreateInput{Content: "Private.", Mood: 3})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Get(ctx, u.ID, entry.ID); err == nil {
		t.Fatal("expected other user's entry to be hidden")
	}
}
