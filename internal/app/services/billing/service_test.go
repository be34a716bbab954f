package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/serenitylabs/wellness_layer/internal/app/domain/billing"
	"github.com/serenitylabs/wellness_layer/internal/app/domain/user"
	"github.com/serenitylabs/wellness_layer/internal/app/storage/memory"
)

type fakeProvider struct {
	created   int
	cancelled []string
	status    string
}

func (f *fakeProvider) CreateSubscription(ctx context.Context, customerID, customerEmail, priceID string) (ProviderSubscription, error) {
	f.created++
	status := f.status
	if status == "" {
		status = billing.StatusActive
	}
	return ProviderSubscription{
		ID:               fmt.Sprintf("sub_%d", f.created),
		CustomerID:       "cus_1",
		Status:           status,
		CurrentPeriodEnd: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}, nil
}

func (f *fakeProvider) CancelSubscription(ctx context.Context, providerSubID string) error {
	f.cancelled = append(f.cancelled, providerSubID)
	return nil
}

func newBillingFixture(t *testing.T) (*memory.Store, *Service, user.User) {
	t.Helper()
	store := memory.New()
	svc := New(store, store, &fakeProvider{}, "price_premium", "price_pro", nil)

	ctx := context.Background()
	if err := svc.EnsurePlans(ctx); err != nil {
		t.Fatalf("ensure plans: %v", err)
	}
	u, err := store.CreateUser(ctx, user.User{Username: "payer", Email: "p@example.com", PasswordHash: "x", SubscriptionTier: user.TierBasic})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return store, svc, u
}

func TestEnsurePlansSeedsOnce(t *testing.T) {
	store, svc, _ := newBillingFixture(t)
	ctx := context.Background()

	if err := svc.EnsurePlans(ctx); err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	plans, err := store.ListPlans(ctx)
	if err != nil {
		t.Fatalf("list plans: %v", err)
	}
	if len(plans) != 3 {
		t.Fatalf("expected 3 plans, got %d", len(plans))
	}

	basic, err := store.GetPlanByName(ctx, user.TierBasic)
	if err != nil {
		t.Fatalf("get basic: %v", err)
	}
	if basic.AIRequestsLimit == nil || *basic.AIRequestsLimit != 20 {
		t.Fatalf("basic AI limit wrong: %v", basic.AIRequestsLimit)
	}
	if basic.GroupLimit == nil || *basic.GroupLimit != 2 {
		t.Fatalf("basic group limit wrong: %v", basic.GroupLimit)
	}
}

func TestSubscribeUpgradesTier(t *testing.T) {
	store, svc, u := newBillingFixture(t)
	ctx := context.Background()

	sub, err := svc.Subscribe(ctx, u.ID, user.TierPremium)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if sub.Status != billing.StatusActive {
		t.Fatalf("unexpected status %q", sub.Status)
	}

	updated, _ := store.GetUser(ctx, u.ID)
	if updated.SubscriptionTier != user.TierPremium {
		t.Fatalf("tier not upgraded: %q", updated.SubscriptionTier)
	}
	if updated.PaymentCustomerID != "cus_1" {
		t.Fatalf("customer id not stored: %q", updated.PaymentCustomerID)
	}
}

func TestSubscribeRejectsBasicPlan(t *testing.T) {
	_, svc, u := newBillingFixture(t)
	if _, err := svc.Subscribe(context.Background(), u.ID, user.TierBasic); err == nil {
		t.Fatal("expected basic subscription to be rejected")
	}
}

func TestCancelKeepsTierUntilWebhook(t *testing.T) {
	store, svc, u := newBillingFixture(t)
	ctx := context.Background()

	if _, err := svc.Subscribe(ctx, u.ID, user.TierPremium); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	sub, err := svc.Cancel(ctx, u.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if sub.CancelledAt == nil {
		t.Fatal("cancelled_at not set")
	}

	updated, _ := store.GetUser(ctx, u.ID)
	if updated.SubscriptionTier != user.TierPremium {
		t.Fatalf("tier downgraded before period end: %q", updated.SubscriptionTier)
	}
}

func TestConsumeAIRequestEnforcesBasicQuota(t *testing.T) {
	store, svc, u := newBillingFixture(t)
	ctx := context.Background()

	now := time.Date(2025, 5, 10, 12, 0, 0, 0, time.UTC)
	svc.WithClock(func() time.Time { return now })

	for i := 0; i < 20; i++ {
		if err := svc.ConsumeAIRequest(ctx, u.ID); err != nil {
			t.Fatalf("request %d: %v", i+1, err)
		}
	}
	if err := svc.ConsumeAIRequest(ctx, u.ID); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected quota error, got %v", err)
	}

	// New month resets the counter.
	svc.WithClock(func() time.Time { return time.Date(2025, 6, 1, 0, 30, 0, 0, time.UTC) })
	if err := svc.ConsumeAIRequest(ctx, u.ID); err != nil {
		t.Fatalf("request after reset: %v", err)
	}

	updated, _ := store.GetUser(ctx, u.ID)
	if updated.AIRequestsCount != 1 {
		t.Fatalf("expected count 1 after reset, got %d", updated.AIRequestsCount)
	}
}

func TestConsumeAIRequestUnmeteredForPaidTiers(t *testing.T) {
	store, svc, u := newBillingFixture(t)
	ctx := context.Background()

	u.SubscriptionTier = user.TierPremium
	if _, err := store.UpdateUser(ctx, u); err != nil {
		t.Fatalf("update user: %v", err)
	}

	for i := 0; i < 50; i++ {
		if err := svc.ConsumeAIRequest(ctx, u.ID); err != nil {
			t.Fatalf("premium request %d: %v", i+1, err)
		}
	}
}

func TestCheckGroupLimit(t *testing.T) {
	_, svc, u := newBillingFixture(t)
	ctx := context.Background()

	if err := svc.CheckGroupLimit(ctx, u.ID, 1); err != nil {
		t.Fatalf("under limit: %v", err)
	}
	if err := svc.CheckGroupLimit(ctx, u.ID, 2); !errors.Is(err, ErrGroupLimit) {
		t.Fatalf("expected group limit error, got %v", err)
	}
}

func signPayload(payload []byte, timestamp, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	return "t=" + timestamp + ",v1=" + hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"type":"invoice.payment_succeeded"}`)
	header := signPayload(payload, "1714000000", "whsec_test")

	if err := VerifySignature(payload, header, "whsec_test"); err != nil {
		t.Fatalf("valid signature rejected: %v", err)
	}
	if err := VerifySignature(payload, header, "other-secret"); err == nil {
		t.Fatal("wrong secret accepted")
	}
	if err := VerifySignature([]byte("tampered"), header, "whsec_test"); err == nil {
		t.Fatal("tampered payload accepted")
	}
}

func TestWebhookSubscriptionDeletedDowngrades(t *testing.T) {
	store, svc, u := newBillingFixture(t)
	ctx := context.Background()

	if _, err := svc.Subscribe(ctx, u.ID, user.TierPremium); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	payload := []byte(`{"type":"customer.subscription.deleted","data":{"object":{"id":"sub_1"}}}`)
	if err := svc.HandleWebhook(ctx, payload); err != nil {
		t.Fatalf("handle webhook: %v", err)
	}

	sub, err := store.GetSubscriptionByProviderID(ctx, "sub_1")
	if err != nil {
		t.Fatalf("get subscription: %v", err)
	}
	if sub.Status != billing.StatusCancelled {
		t.Fatalf("status not cancelled: %q", sub.Status)
	}

	updated, _ := store.GetUser(ctx, u.ID)
	if updated.SubscriptionTier != user.TierBasic {
		t.Fatalf("tier not downgraded: %q", updated.SubscriptionTier)
	}
}

func TestWebhookPaymentFailedMarksPastDue(t *testing.T) {
	store, svc, u := newBillingFixture(t)
	ctx := context.Background()

	if _, err := svc.Subscribe(ctx, u.ID, user.TierPremium); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	payload := []byte(`{"type":"invoice.payment_failed","data":{"object":{"subscription":"sub_1"}}}`)
	if err := svc.HandleWebhook(ctx, payload); err != nil {
		t.Fatalf("handle webhook: %v", err)
	}

	sub, _ := store.GetSubscriptionByProviderID(ctx, "sub_1")
	if sub.Status != billing.StatusPastDue {
		t.Fatalf("status not past_due: %q", sub.Status)
	}
}

func TestWebhookUnknownSubscriptionIgnored(t *testing.T) {
	_, svc, _ := newBillingFixture(t)
	payload := []byte(`{"type":"invoice.payment_succeeded","data":{"object":{"subscription":"sub_missing"}}}`)
	if err := svc.HandleWebhook(context.Background(), payload); err != nil {
		t.Fatalf("unknown subscription should be ignored, got %v", err)
	}
}
