package achievement

import "time"

// Achievement is a static catalog definition, seeded once at startup and
// never mutated afterwards.
type Achievement struct {
	ID          string
	Name        string
	Description string
	Icon        string
	Requirement string
	Level       int
}

// Unlock asserts that a user has earned a catalog achievement. At most one
// unlock exists per (user, achievement) pair.
type Unlock struct {
	ID            string
	UserID        string
	AchievementID string
	UnlockedAt    time.Time
}
