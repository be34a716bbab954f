package goal

import "time"

// Goal is a user-defined wellness goal tracked against a numeric target.
type Goal struct {
	ID           string
	UserID       string
	Title        string
	Description  string
	Category     string
	TargetValue  int
	CurrentValue int
	Frequency    string
	StartDate    time.Time
	EndDate      *time.Time
	Completed    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Progress is a single recorded increment toward a goal.
type Progress struct {
	ID        string
	GoalID    string
	Value     int
	Note      string
	CreatedAt time.Time
}
