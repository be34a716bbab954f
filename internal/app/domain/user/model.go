package user

import "time"

// Tier names mirror the plan catalog.
const (
	TierBasic        = "basic"
	TierPremium      = "premium"
	TierProfessional = "professional"
)

// User represents a registered member together with the derived wellness
// state maintained by the streak evaluator. LastEntryDate is nil until the
// first journal entry is recorded.
type User struct {
	ID                 string
	Username           string
	Email              string
	PasswordHash       string `json:"-"`
	FirstName          string
	LastName           string
	EmailNotifications bool
	CurrentStreak      int
	LongestStreak      int
	LastEntryDate      *time.Time
	SubscriptionTier   string
	PaymentCustomerID  string
	AIRequestsCount    int
	AIRequestsResetAt  *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
