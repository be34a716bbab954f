package insights

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/serenitylabs/wellness_layer/internal/app/domain/journal"
	"github.com/serenitylabs/wellness_layer/internal/app/domain/support"
	"github.com/serenitylabs/wellness_layer/internal/app/metrics"
	"github.com/serenitylabs/wellness_layer/pkg/logger"
)

// HTTPProvider calls an OpenAI-compatible chat completions endpoint.
type HTTPProvider struct {
	client      *http.Client
	endpoint    string
	apiKey      string
	model       string
	temperature float64
	log         *logger.Logger
}

// NewHTTPProvider constructs a provider for the given endpoint. The endpoint
// is the API base (for example https://api.openai.com/v1).
func NewHTTPProvider(client *http.Client, endpoint, apiKey, model string, temperature float64, log *logger.Logger) (*HTTPProvider, error) {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return nil, fmt.Errorf("insights endpoint required")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("insights api key required")
	}
	if model == "" {
		model = "gpt-4o"
	}
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if log == nil {
		log = logger.NewDefault("insights")
	}
	return &HTTPProvider{
		client:      client,
		endpoint:    endpoint,
		apiKey:      apiKey,
		model:       model,
		temperature: temperature,
		log:         log,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature,omitempty"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// complete sends one chat completion and returns the assistant text.
func (p *HTTPProvider) complete(ctx context.Context, operation, system, user string, jsonMode bool) (string, error) {
	payload := chatRequest{
		Model:       p.model,
		Temperature: p.temperature,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}
	if jsonMode {
		payload.ResponseFormat = &struct {
			Type string `json:"type"`
		}{Type: "json_object"}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	start := time.Now()
	resp, err := p.client.Do(req)
	duration := time.Since(start)
	if err != nil {
		metrics.RecordInsightRequest(operation, "error", duration)
		return "", fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.RecordInsightRequest(operation, fmt.Sprintf("http_%d", resp.StatusCode), duration)
		return "", fmt.Errorf("chat status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		metrics.RecordInsightRequest(operation, "decode_error", duration)
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		metrics.RecordInsightRequest(operation, "empty", duration)
		return "", fmt.Errorf("chat response has no choices")
	}

	metrics.RecordInsightRequest(operation, "ok", duration)
	return parsed.Choices[0].Message.Content, nil
}

const analyzeSystemPrompt = `You are a compassionate mental wellness assistant. Analyze the journal entry and respond with JSON using exactly these keys:
{"sentiment": {"score": <integer 1 (very negative) to 5 (very positive)>, "label": "<negative|neutral|positive>"},
"themes": ["<theme>", ...],
"insights": "<one supportive paragraph>",
"recommendations": [{"activity": "...", "reason": "...", "duration": "...", "benefit": "..."}]}`

func (p *HTTPProvider) AnalyzeEntry(ctx context.Context, content string, mood int) (*journal.Analysis, error) {
	user := fmt.Sprintf("Mood rating: %d of 5\n\nEntry:\n%s", mood, content)
	text, err := p.complete(ctx, "analyze_entry", analyzeSystemPrompt, user, true)
	if err != nil {
		return nil, err
	}

	var analysis journal.Analysis
	if err := json.Unmarshal([]byte(extractJSON(text)), &analysis); err != nil {
		return nil, fmt.Errorf("parse analysis: %w", err)
	}
	if analysis.Sentiment.Label == "" {
		analysis.Sentiment.Label = "neutral"
	}
	return &analysis, nil
}

func (p *HTTPProvider) GenerateAffirmation(ctx context.Context, recentMoods []string) (string, error) {
	system := "You write short, personal daily affirmations. Respond with the affirmation text only, one sentence, first person."
	user := "Write today's affirmation."
	if len(recentMoods) > 0 {
		user = fmt.Sprintf("The person's recent moods were: %s. Write today's affirmation.", strings.Join(recentMoods, ", "))
	}

	text, err := p.complete(ctx, "affirmation", system, user, false)
	if err != nil {
		return "", err
	}
	affirmation := strings.Trim(strings.TrimSpace(text), `"`)
	if affirmation == "" {
		return "", fmt.Errorf("empty affirmation")
	}
	return affirmation, nil
}

const challengeSystemPrompt = `You create small daily wellness challenges. Respond with JSON using exactly these keys:
{"challenge": "<one actionable sentence>", "category": "<mindfulness|movement|gratitude|connection|rest>", "difficulty": "<easy|medium|hard>"}`

func (p *HTTPProvider) GenerateChallenge(ctx context.Context, category string) (ChallengeIdea, error) {
	user := "Create today's challenge."
	if category != "" {
		user = fmt.Sprintf("Create today's challenge in the %q category.", category)
	}

	text, err := p.complete(ctx, "challenge", challengeSystemPrompt, user, true)
	if err != nil {
		return ChallengeIdea{}, err
	}

	var idea ChallengeIdea
	if err := json.Unmarshal([]byte(extractJSON(text)), &idea); err != nil {
		return ChallengeIdea{}, fmt.Errorf("parse challenge: %w", err)
	}
	if strings.TrimSpace(idea.Text) == "" {
		return ChallengeIdea{}, fmt.Errorf("empty challenge text")
	}
	return idea, nil
}

const toneSystemPrompt = `You moderate a peer support chat. Rate the message and respond with JSON using exactly these keys:
{"score": <integer 1 (very negative) to 5 (very positive)>, "tone": "<negative|neutral|positive>"}`

func (p *HTTPProvider) AnalyzeMessageTone(ctx context.Context, content string) (*support.MessageSentiment, error) {
	text, err := p.complete(ctx, "message_tone", toneSystemPrompt, content, true)
	if err != nil {
		return nil, err
	}

	var sentiment support.MessageSentiment
	if err := json.Unmarshal([]byte(extractJSON(text)), &sentiment); err != nil {
		return nil, fmt.Errorf("parse tone: %w", err)
	}
	if sentiment.Tone == "" {
		sentiment.Tone = "neutral"
	}
	return &sentiment, nil
}

// extractJSON strips markdown code fences some models wrap around JSON.
func extractJSON(text string) string {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	}
	return strings.TrimSpace(trimmed)
}
