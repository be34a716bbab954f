package insights

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func chatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestAnalyzeEntryParsesProviderJSON(t *testing.T) {
	srv := chatServer(t, `{"sentiment":{"score":4,"label":"positive"},"themes":["gratitude"],"insights":"You are noticing the good.","recommendations":[{"activity":"walk","reason":"movement lifts mood","duration":"20m","benefit":"clarity"}]}`)
	defer srv.Close()

	p, err := NewHTTPProvider(srv.Client(), srv.URL, "test-key", "gpt-4o", 0.7, nil)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	analysis, err := p.AnalyzeEntry(context.Background(), "Grateful for a quiet morning.", 4)
	if err != nil {
		t.Fatalf("analyze entry: %v", err)
	}
	if analysis.Sentiment.Score != 4 || analysis.Sentiment.Label != "positive" {
		t.Fatalf("unexpected sentiment: %+v", analysis.Sentiment)
	}
	if len(analysis.Recommendations) != 1 || analysis.Recommendations[0].Activity != "walk" {
		t.Fatalf("unexpected recommendations: %+v", analysis.Recommendations)
	}
}

func TestAnalyzeEntryStripsCodeFences(t *testing.T) {
	srv := chatServer(t, "```json\n{\"sentiment\":{\"score\":2,\"label\":\"negative\"}}\n```")
	defer srv.Close()

	p, err := NewHTTPProvider(srv.Client(), srv.URL, "test-key", "", 0, nil)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	analysis, err := p.AnalyzeEntry(context.Background(), "Rough day.", 2)
	if err != nil {
		t.Fatalf("analyze entry: %v", err)
	}
	if analysis.Sentiment.Score != 2 {
		t.Fatalf("unexpected score: %d", analysis.Sentiment.Score)
	}
}

func TestGenerateAffirmationTrimsQuotes(t *testing.T) {
	srv := chatServer(t, `"I meet today with calm attention."`)
	defer srv.Close()

	p, err := NewHTTPProvider(srv.Client(), srv.URL, "test-key", "gpt-4o", 0.7, nil)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	text, err := p.GenerateAffirmation(context.Background(), []string{"calm", "tired"})
	if err != nil {
		t.Fatalf("generate affirmation: %v", err)
	}
	if text != "I meet today with calm attention." {
		t.Fatalf("unexpected affirmation %q", text)
	}
}

func TestGenerateChallengeRejectsEmptyText(t *testing.T) {
	srv := chatServer(t, `{"challenge":"","category":"movement","difficulty":"easy"}`)
	defer srv.Close()

	p, err := NewHTTPProvider(srv.Client(), srv.URL, "test-key", "gpt-4o", 0.7, nil)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	if _, err := p.GenerateChallenge(context.Background(), "movement"); err == nil {
		t.Fatal("expected error for empty challenge text")
	}
}

func TestProviderErrorOnBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p, err := NewHTTPProvider(srv.Client(), srv.URL, "test-key", "gpt-4o", 0.7, nil)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	if _, err := p.AnalyzeMessageTone(context.Background(), "hello"); err == nil {
		t.Fatal("expected error on 429 status")
	}
}
