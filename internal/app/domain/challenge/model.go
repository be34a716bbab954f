package challenge

import "time"

// Challenge is a per-user daily wellness challenge. One challenge is issued
// per user per calendar day.
type Challenge struct {
	ID             string
	UserID         string
	Text           string
	Category       string
	Difficulty     string
	Completed      bool
	CompletedAt    *time.Time
	ReflectionNote string
	CreatedAt      time.Time
}
