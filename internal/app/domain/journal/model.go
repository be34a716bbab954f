package journal

import "time"

// Sentiment is the provider-assigned score for an entry. Score runs 1-5.
type Sentiment struct {
	Score int    `json:"score"`
	Label string `json:"label"`
}

// Recommendation is a suggested activity returned by the insights provider.
type Recommendation struct {
	Activity string `json:"activity"`
	Reason   string `json:"reason"`
	Duration string `json:"duration"`
	Benefit  string `json:"benefit"`
}

// Analysis is the AI-derived payload stored alongside an entry. It is
// best-effort: entries persist whether or not analysis succeeded.
type Analysis struct {
	Sentiment       Sentiment        `json:"sentiment"`
	Themes          []string         `json:"themes"`
	Insights        string           `json:"insights"`
	Recommendations []Recommendation `json:"recommendations"`
}

// Entry is a user-authored journal entry with a mood rating of 1-5.
type Entry struct {
	ID        string
	UserID    string
	Content   string
	Mood      int
	Tags      []string
	Analysis  *Analysis
	CreatedAt time.Time
	UpdatedAt time.Time
}
