package affirmation

import "time"

// Affirmation is a generated daily affirmation for a user.
type Affirmation struct {
	ID        string
	UserID    string
	Content   string
	CreatedAt time.Time
}
