// Package billing manages subscription plans, tier changes, usage quotas,
// and payment provider webhooks.
package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/serenitylabs/wellness_layer/internal/app/domain/billing"
	"github.com/serenitylabs/wellness_layer/internal/app/domain/user"
	"github.com/serenitylabs/wellness_layer/internal/app/storage"
	"github.com/serenitylabs/wellness_layer/pkg/logger"
)

// ErrQuotaExceeded is returned when a basic-tier user has spent this month's
// AI request allowance.
var ErrQuotaExceeded = errors.New("monthly AI request limit reached")

// ErrGroupLimit is returned when a basic-tier user is already in the maximum
// number of support groups.
var ErrGroupLimit = errors.New("support group limit reached for current plan")

const (
	basicAIRequestsPerMonth = 20
	basicGroupLimit         = 2
)

// Service manages plans, subscriptions, and plan-derived limits.
type Service struct {
	users    storage.UserStore
	store    storage.BillingStore
	provider Provider
	log      *logger.Logger
	now      func() time.Time

	premiumPriceID string
	proPriceID     string
}

// New constructs a billing service. The provider may be nil, in which case
// subscription changes are rejected but quota checks still work.
func New(users storage.UserStore, store storage.BillingStore, provider Provider, premiumPriceID, proPriceID string, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("billing")
	}
	return &Service{
		users:          users,
		store:          store,
		provider:       provider,
		log:            log,
		now:            time.Now,
		premiumPriceID: premiumPriceID,
		proPriceID:     proPriceID,
	}
}

// WithClock overrides the service clock. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// EnsurePlans seeds the plan catalog. Existing plans are left untouched.
func (s *Service) EnsurePlans(ctx context.Context) error {
	aiLimit := basicAIRequestsPerMonth
	groupLimit := basicGroupLimit
	plans := []billing.Plan{
		{
			Name:            user.TierBasic,
			Price:           "0",
			Features:        []string{"Journaling and mood tracking", "Streaks and achievements", "Limited AI insights", "Join up to 2 support groups"},
			AIRequestsLimit: &aiLimit,
			GroupLimit:      &groupLimit,
		},
		{
			Name:     user.TierPremium,
			Price:    "14.99",
			PriceID:  s.premiumPriceID,
			Features: []string{"Unlimited AI insights", "Unlimited support groups", "Daily AI challenges", "Personalized affirmations"},
		},
		{
			Name:     user.TierProfessional,
			Price:    "29.99",
			PriceID:  s.proPriceID,
			Features: []string{"Everything in premium", "Priority support", "Wellness goal coaching"},
		},
	}

	for _, p := range plans {
		if _, err := s.store.GetPlanByName(ctx, p.Name); err == nil {
			continue
		}
		if _, err := s.store.CreatePlan(ctx, p); err != nil {
			return fmt.Errorf("seed plan %s: %w", p.Name, err)
		}
	}
	return nil
}

// Plans lists the plan catalog.
func (s *Service) Plans(ctx context.Context) ([]billing.Plan, error) {
	return s.store.ListPlans(ctx)
}

// Current returns the user's latest subscription record.
func (s *Service) Current(ctx context.Context, userID string) (billing.Subscription, error) {
	return s.store.GetSubscriptionByUser(ctx, userID)
}

// Subscribe upgrades the user to the named paid plan through the payment
// provider, records the subscription, and flips the user's tier.
func (s *Service) Subscribe(ctx context.Context, userID, planName string) (billing.Subscription, error) {
	planName = strings.ToLower(strings.TrimSpace(planName))
	if planName == user.TierBasic {
		return billing.Subscription{}, fmt.Errorf("the basic plan needs no subscription")
	}
	if s.provider == nil {
		return billing.Subscription{}, fmt.Errorf("payments are not configured")
	}

	plan, err := s.store.GetPlanByName(ctx, planName)
	if err != nil {
		return billing.Subscription{}, fmt.Errorf("unknown plan %q", planName)
	}
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return billing.Subscription{}, err
	}
	if u.SubscriptionTier == planName {
		return billing.Subscription{}, fmt.Errorf("already subscribed to %s", planName)
	}

	providerSub, err := s.provider.CreateSubscription(ctx, u.PaymentCustomerID, u.Email, plan.PriceID)
	if err != nil {
		return billing.Subscription{}, fmt.Errorf("create provider subscription: %w", err)
	}

	sub, err := s.store.CreateSubscription(ctx, billing.Subscription{
		UserID:                 userID,
		PlanID:                 plan.ID,
		ProviderSubscriptionID: providerSub.ID,
		Status:                 normalizeStatus(providerSub.Status),
		StartDate:              s.now().UTC(),
		EndDate:                nonZeroTime(providerSub.CurrentPeriodEnd),
	})
	if err != nil {
		return billing.Subscription{}, err
	}

	u.SubscriptionTier = planName
	if providerSub.CustomerID != "" {
		u.PaymentCustomerID = providerSub.CustomerID
	}
	if _, err := s.users.UpdateUser(ctx, u); err != nil {
		return billing.Subscription{}, err
	}

	s.log.WithField("user_id", userID).WithField("plan", planName).Infof("subscription created")
	return sub, nil
}

// Cancel asks the provider to stop renewing and marks the subscription
// cancelled locally. The paid tier stays active until the period ends; the
// provider webhook performs the final downgrade.
func (s *Service) Cancel(ctx context.Context, userID string) (billing.Subscription, error) {
	sub, err := s.store.GetSubscriptionByUser(ctx, userID)
	if err != nil {
		return billing.Subscription{}, err
	}
	if sub.CancelledAt != nil {
		return sub, nil
	}

	if s.provider != nil && sub.ProviderSubscriptionID != "" {
		if err := s.provider.CancelSubscription(ctx, sub.ProviderSubscriptionID); err != nil {
			return billing.Subscription{}, fmt.Errorf("cancel provider subscription: %w", err)
		}
	}

	now := s.now().UTC()
	sub.CancelledAt = &now
	sub, err = s.store.UpdateSubscription(ctx, sub)
	if err != nil {
		return billing.Subscription{}, err
	}

	s.log.WithField("user_id", userID).Infof("subscription cancelled")
	return sub, nil
}

// ConsumeAIRequest spends one unit of the user's monthly AI allowance.
// Paid tiers are unmetered. The counter resets on the first use in a new
// month.
func (s *Service) ConsumeAIRequest(ctx context.Context, userID string) error {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if u.SubscriptionTier != user.TierBasic {
		return nil
	}

	now := s.now().UTC()
	count := u.AIRequestsCount
	resetAt := u.AIRequestsResetAt
	if resetAt == nil || !now.Before(*resetAt) {
		count = 0
		next := startOfNextMonth(now)
		resetAt = &next
	}

	if count >= basicAIRequestsPerMonth {
		return ErrQuotaExceeded
	}
	return s.users.UpdateAIQuota(ctx, userID, count+1, resetAt)
}

// CheckGroupLimit rejects a join when the user's plan caps group memberships
// and the cap is already met. currentGroups is the user's active membership
// count.
func (s *Service) CheckGroupLimit(ctx context.Context, userID string, currentGroups int) error {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if u.SubscriptionTier != user.TierBasic {
		return nil
	}
	if currentGroups >= basicGroupLimit {
		return ErrGroupLimit
	}
	return nil
}

func startOfNextMonth(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
}

func nonZeroTime(t time.Time) *time.Time {
	if t.IsZero() || t.Unix() == 0 {
		return nil
	}
	utc := t.UTC()
	return &utc
}

func normalizeStatus(status string) string {
	switch status {
	case billing.StatusActive, billing.StatusPastDue, billing.StatusCancelled, billing.StatusIncomplete:
		return status
	case "canceled":
		return billing.StatusCancelled
	case "":
		return billing.StatusIncomplete
	default:
		return status
	}
}
