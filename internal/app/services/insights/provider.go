// Package insights talks to the AI provider that powers journal analysis,
// affirmations, daily challenges, and message tone checks. Every call has a
// static fallback so provider outages never block the calling feature.
package insights

import (
	"context"

	"github.com/serenitylabs/wellness_layer/internal/app/domain/journal"
	"github.com/serenitylabs/wellness_layer/internal/app/domain/support"
)

// Provider produces AI-generated wellness content.
type Provider interface {
	AnalyzeEntry(ctx context.Context, content string, mood int) (*journal.Analysis, error)
	GenerateAffirmation(ctx context.Context, recentMoods []string) (string, error)
	GenerateChallenge(ctx context.Context, category string) (ChallengeIdea, error)
	AnalyzeMessageTone(ctx context.Context, content string) (*support.MessageSentiment, error)
}

// ChallengeIdea is a generated daily challenge before persistence.
type ChallengeIdea struct {
	Text       string `json:"challenge"`
	Category   string `json:"category"`
	Difficulty string `json:"difficulty"`
}

// FallbackAffirmation is served when the provider is unavailable.
const FallbackAffirmation = "I am worthy of peace and happiness."

// NeutralAnalysis is the analysis recorded when the provider cannot be
// reached or returns malformed output.
func NeutralAnalysis() *journal.Analysis {
	return &journal.Analysis{
		Sentiment: journal.Sentiment{Score: 3, Label: "neutral"},
	}
}

// FallbackChallenge is the challenge of last resort.
func FallbackChallenge() ChallengeIdea {
	return ChallengeIdea{
		Text:       "Take five slow, deep breaths and notice how your body feels.",
		Category:   "mindfulness",
		Difficulty: "easy",
	}
}
