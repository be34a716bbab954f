package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/serenitylabs/wellness_layer/internal/app/domain/billing"
	"github.com/serenitylabs/wellness_layer/internal/app/domain/user"
)

// Webhook event types handled by the billing service.
const (
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
	EventPaymentSucceeded    = "invoice.payment_succeeded"
	EventPaymentFailed       = "invoice.payment_failed"
)

// WebhookEvent is the provider notification envelope.
type WebhookEvent struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID               string `json:"id"`
			Subscription     string `json:"subscription"`
			Status           string `json:"status"`
			CurrentPeriodEnd int64  `json:"current_period_end"`
		} `json:"object"`
	} `json:"data"`
}

// VerifySignature checks the provider's signature header against the raw
// payload. The header carries a timestamp and an HMAC-SHA256 of
// "<timestamp>.<payload>" keyed with the webhook secret.
func VerifySignature(payload []byte, header, secret string) error {
	if secret == "" {
		return fmt.Errorf("webhook secret not configured")
	}

	var timestamp, signature string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp = kv[1]
		case "v1":
			signature = kv[1]
		}
	}
	if timestamp == "" || signature == "" {
		return fmt.Errorf("malformed signature header")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}

// HandleWebhook applies a verified provider event to local state. Events for
// unknown subscriptions are ignored: the provider retries webhooks and may
// deliver them out of order with subscription creation.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte) error {
	var event WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("decode webhook event: %w", err)
	}

	providerSubID := event.Data.Object.Subscription
	if providerSubID == "" {
		providerSubID = event.Data.Object.ID
	}
	if providerSubID == "" {
		return fmt.Errorf("webhook event has no subscription id")
	}

	sub, err := s.store.GetSubscriptionByProviderID(ctx, providerSubID)
	if err != nil {
		s.log.WithField("provider_subscription_id", providerSubID).
			WithField("event", event.Type).
			Warnf("webhook for unknown subscription ignored")
		return nil
	}

	switch event.Type {
	case EventSubscriptionUpdated:
		sub.Status = normalizeStatus(event.Data.Object.Status)
		if event.Data.Object.CurrentPeriodEnd > 0 {
			end := time.Unix(event.Data.Object.CurrentPeriodEnd, 0).UTC()
			sub.EndDate = &end
		}
	case EventSubscriptionDeleted:
		sub.Status = billing.StatusCancelled
		if sub.CancelledAt == nil {
			now := s.now().UTC()
			sub.CancelledAt = &now
		}
	case EventPaymentSucceeded:
		sub.Status = billing.StatusActive
	case EventPaymentFailed:
		sub.Status = billing.StatusPastDue
	default:
		s.log.WithField("event", event.Type).Infof("webhook event ignored")
		return nil
	}

	if _, err := s.store.UpdateSubscription(ctx, sub); err != nil {
		return err
	}

	if event.Type == EventSubscriptionDeleted {
		if err := s.downgradeToBasic(ctx, sub.UserID); err != nil {
			return err
		}
	}

	s.log.WithField("event", event.Type).
		WithField("subscription_id", sub.ID).
		WithField("status", sub.Status).
		Infof("webhook applied")
	return nil
}

func (s *Service) downgradeToBasic(ctx context.Context, userID string) error {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if u.SubscriptionTier == user.TierBasic {
		return nil
	}
	u.SubscriptionTier = user.TierBasic
	_, err = s.users.UpdateUser(ctx, u)
	return err
}
