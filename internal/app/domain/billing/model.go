package billing

import "time"

// Subscription statuses mirrored from the payment provider.
const (
	StatusActive     = "active"
	StatusPastDue    = "past_due"
	StatusCancelled  = "cancelled"
	StatusIncomplete = "incomplete"
)

// Plan is a subscription plan definition, seeded once at startup. A nil
// AIRequestsLimit or GroupLimit means unlimited.
type Plan struct {
	ID              string
	Name            string
	Price           string
	PriceID         string
	Features        []string
	AIRequestsLimit *int
	GroupLimit      *int
	CreatedAt       time.Time
}

// Subscription mirrors the provider-side subscription state for a user.
type Subscription struct {
	ID                     string
	UserID                 string
	PlanID                 string
	ProviderSubscriptionID string
	Status                 string
	StartDate              time.Time
	EndDate                *time.Time
	CancelledAt            *time.Time
	CreatedAt              time.Time
}
