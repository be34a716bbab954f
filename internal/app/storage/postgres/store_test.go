package postgres

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"

	"github.com/serenitylabs/wellness_layer/internal/app/domain/journal"
	"github.com/serenitylabs/wellness_layer/internal/app/domain/user"
)

func TestStoreIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	store := New(db)

	ctx := context.Background()
	u, err := store.CreateUser(ctx, user.User{
		Username:     "integration-user",
		Email:        "integration@example.com",
		PasswordHash: "hash",
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.SubscriptionTier != user.TierBasic {
		t.Fatalf("expected basic tier default, got %q", u.SubscriptionTier)
	}

	entry, err := store.CreateEntry(ctx, journal.Entry{
		UserID:  u.ID,
		Content: "Felt calm after a long walk.",
		Mood:    4,
		Tags:    []string{"outdoors"},
	})
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}

	fetched, err := store.GetEntry(ctx, entry.ID)
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if fetched.Content != entry.Content {
		t.Fatalf("expected content %q, got %q", entry.Content, fetched.Content)
	}
	if fetched.Mood != 4 {
		t.Fatalf("expected mood 4, got %d", fetched.Mood)
	}

	day := time.Now().UTC()
	updated, err := store.UpdateStreak(ctx, u.ID, 1, 1, day)
	if err != nil {
		t.Fatalf("update streak: %v", err)
	}
	if updated.CurrentStreak != 1 || updated.LastEntryDate == nil {
		t.Fatalf("streak not persisted: %+v", updated)
	}
}
