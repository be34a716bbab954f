package httpapi

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/serenitylabs/wellness_layer/internal/app"
	"github.com/serenitylabs/wellness_layer/internal/app/domain/journal"
	"github.com/serenitylabs/wellness_layer/internal/app/domain/support"
	"github.com/serenitylabs/wellness_layer/internal/app/services/billing"
	"github.com/serenitylabs/wellness_layer/internal/app/services/insights"
)

const testWebhookSecret = "whsec_test"

type stubInsights struct{}

func (stubInsights) AnalyzeEntry(ctx context.Context, content string, mood int) (*journal.Analysis, error) {
	return &journal.Analysis{
		Sentiment: journal.Sentiment{Score: 4, Label: "positive"},
		Themes:    []string{"gratitude"},
		Insights:  "You sound upbeat today.",
	}, nil
}

func (stubInsights) GenerateAffirmation(ctx context.Context, recentMoods []string) (string, error) {
	return "I grow a little every day.", nil
}

func (stubInsights) GenerateChallenge(ctx context.Context, category string) (insights.ChallengeIdea, error) {
	return insights.ChallengeIdea{Text: "Take a ten minute walk outside.", Category: "movement", Difficulty: "easy"}, nil
}

func (stubInsights) AnalyzeMessageTone(ctx context.Context, content string) (*support.MessageSentiment, error) {
	return &support.MessageSentiment{Score: 4, Tone: "supportive"}, nil
}

type stubPayments struct{}

func (stubPayments) CreateSubscription(ctx context.Context, customerID, customerEmail, priceID string) (billing.ProviderSubscription, error) {
	return billing.ProviderSubscription{
		ID:               "sub_test_1",
		CustomerID:       "cus_test_1",
		Status:           "active",
		CurrentPeriodEnd: time.Now().UTC().Add(30 * 24 * time.Hour),
	}, nil
}

func (stubPayments) CancelSubscription(ctx context.Context, providerSubID string) error {
	return nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	application, err := app.New(app.Stores{}, app.Options{
		Insights:            stubInsights{},
		Payments:            stubPayments{},
		PremiumPriceID:      "price_premium",
		ProfessionalPriceID: "price_pro",
	}, nil)
	require.NoError(t, err)
	require.NoError(t, application.Seed(context.Background()))
	application.Journal.WithSyncEvaluation()

	h, err := NewHandler(application, Config{
		JWTSecret:      "test-secret",
		TokenTTL:       time.Hour,
		WebhookSecret:  testWebhookSecret,
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
	})
	require.NoError(t, err)

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, srv *httptest.Server, method, path, token string, body interface{}, out interface{}) int {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func registerUser(t *testing.T, srv *httptest.Server, username string) string {
	t.Helper()

	var created struct {
		Token string `json:"token"`
	}
	status := doJSON(t, srv, http.MethodPost, "/api/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "correct horse",
	}, &created)
	require.Equal(t, http.StatusCreated, status)
	require.NotEmpty(t, created.Token)
	return created.Token
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t)

	status := doJSON(t, srv, http.MethodGet, "/api/entries", "", nil, nil)
	require.Equal(t, http.StatusUnauthorized, status)

	status = doJSON(t, srv, http.MethodGet, "/api/entries", "not-a-token", nil, nil)
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestRegisterLoginAndProfile(t *testing.T) {
	srv := newTestServer(t)
	registerUser(t, srv, "maya")

	var login struct {
		Token string `json:"token"`
		User  struct {
			Username         string `json:"Username"`
			SubscriptionTier string `json:"SubscriptionTier"`
		} `json:"user"`
	}
	status := doJSON(t, srv, http.MethodPost, "/api/login", "", map[string]string{
		"username": "maya",
		"password": "correct horse",
	}, &login)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "maya", login.User.Username)
	require.Equal(t, "basic", login.User.SubscriptionTier)

	status = doJSON(t, srv, http.MethodPost, "/api/login", "", map[string]string{
		"username": "maya",
		"password": "wrong password",
	}, nil)
	require.Equal(t, http.StatusUnauthorized, status)

	first := "Maya"
	var updated struct {
		FirstName string `json:"FirstName"`
	}
	status = doJSON(t, srv, http.MethodPut, "/api/user", login.Token, map[string]*string{
		"first_name": &first,
	}, &updated)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "Maya", updated.FirstName)
}

func TestEntryLifecycleUnlocksFirstStep(t *testing.T) {
	srv := newTestServer(t)
	token := registerUser(t, srv, "jordan")

	var entry struct {
		ID       string            `json:"ID"`
		Mood     int               `json:"Mood"`
		Analysis *journal.Analysis `json:"Analysis"`
	}
	status := doJSON(t, srv, http.MethodPost, "/api/entries", token, map[string]interface{}{
		"content": "Grateful for a calm morning.",
		"mood":    4,
		"tags":    []string{"gratitude"},
	}, &entry)
	require.Equal(t, http.StatusCreated, status)
	require.NotNil(t, entry.Analysis)
	require.Equal(t, 4, entry.Analysis.Sentiment.Score)

	var achievements []struct {
		Name     string `json:"Name"`
		Unlocked bool   `json:"Unlocked"`
	}
	status = doJSON(t, srv, http.MethodGet, "/api/achievements", token, nil, &achievements)
	require.Equal(t, http.StatusOK, status)

	unlocked := map[string]bool{}
	for _, a := range achievements {
		unlocked[a.Name] = a.Unlocked
	}
	require.True(t, unlocked["First Step"])
	require.False(t, unlocked["Week Warrior"])

	var profile struct {
		CurrentStreak int `json:"CurrentStreak"`
	}
	status = doJSON(t, srv, http.MethodGet, "/api/user", token, nil, &profile)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 1, profile.CurrentStreak)

	status = doJSON(t, srv, http.MethodGet, "/api/entries/"+entry.ID, token, nil, nil)
	require.Equal(t, http.StatusOK, status)

	other := registerUser(t, srv, "sam")
	status = doJSON(t, srv, http.MethodGet, "/api/entries/"+entry.ID, other, nil, nil)
	require.Equal(t, http.StatusNotFound, status)
}

func TestAffirmationAndChallenge(t *testing.T) {
	srv := newTestServer(t)
	token := registerUser(t, srv, "ren")

	var affirmation struct {
		Content string `json:"Content"`
	}
	status := doJSON(t, srv, http.MethodGet, "/api/affirmations/today", token, nil, &affirmation)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "I grow a little every day.", affirmation.Content)

	var challenge struct {
		ID          string     `json:"ID"`
		Text        string     `json:"Text"`
		CompletedAt *time.Time `json:"CompletedAt"`
	}
	status = doJSON(t, srv, http.MethodGet, "/api/challenges/today", token, nil, &challenge)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, challenge.ID)

	var done struct {
		CompletedAt *time.Time `json:"CompletedAt"`
	}
	status = doJSON(t, srv, http.MethodPost, "/api/challenges/"+challenge.ID+"/complete", token, map[string]string{
		"reflection": "Felt good to move.",
	}, &done)
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, done.CompletedAt)

	var history []struct {
		ID string `json:"ID"`
	}
	status = doJSON(t, srv, http.MethodGet, "/api/challenges", token, nil, &history)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, history, 1)
}

func TestGoalProgressFlow(t *testing.T) {
	srv := newTestServer(t)
	token := registerUser(t, srv, "alex")

	var g struct {
		ID string `json:"ID"`
	}
	status := doJSON(t, srv, http.MethodPost, "/api/goals", token, map[string]interface{}{
		"title":        "Meditate",
		"target_value": 10,
		"frequency":    "weekly",
	}, &g)
	require.Equal(t, http.StatusCreated, status)

	var after struct {
		CurrentValue int  `json:"CurrentValue"`
		Completed    bool `json:"Completed"`
	}
	status = doJSON(t, srv, http.MethodPost, "/api/goals/"+g.ID+"/progress", token, map[string]interface{}{
		"value": 10,
		"note":  "full session",
	}, &after)
	require.Equal(t, http.StatusCreated, status)
	require.Equal(t, 10, after.CurrentValue)
	require.True(t, after.Completed)

	var progress []struct {
		Value int `json:"Value"`
	}
	status = doJSON(t, srv, http.MethodGet, "/api/goals/"+g.ID+"/progress", token, nil, &progress)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, progress, 1)

	status = doJSON(t, srv, http.MethodDelete, "/api/goals/"+g.ID, token, nil, nil)
	require.Equal(t, http.StatusOK, status)
	status = doJSON(t, srv, http.MethodGet, "/api/goals/"+g.ID, token, nil, nil)
	require.Equal(t, http.StatusNotFound, status)
}

func TestSupportGroupChat(t *testing.T) {
	srv := newTestServer(t)
	founder := registerUser(t, srv, "casey")
	member := registerUser(t, srv, "drew")

	var topics []struct {
		ID   string `json:"ID"`
		Name string `json:"Name"`
	}
	status := doJSON(t, srv, http.MethodGet, "/api/support/topics", founder, nil, &topics)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, topics)

	var group struct {
		ID string `json:"ID"`
	}
	status = doJSON(t, srv, http.MethodPost, "/api/support/groups", founder, map[string]interface{}{
		"name":     "Morning Calm",
		"topic_id": topics[0].ID,
	}, &group)
	require.Equal(t, http.StatusCreated, status)

	status = doJSON(t, srv, http.MethodGet, "/api/support/groups/"+group.ID+"/messages", member, nil, nil)
	require.Equal(t, http.StatusForbidden, status)

	status = doJSON(t, srv, http.MethodPost, "/api/support/groups/"+group.ID+"/join", member, nil, nil)
	require.Equal(t, http.StatusCreated, status)

	status = doJSON(t, srv, http.MethodPost, "/api/support/groups/"+group.ID+"/messages", member, map[string]interface{}{
		"content":   "Glad to be here.",
		"anonymous": false,
	}, nil)
	require.Equal(t, http.StatusCreated, status)

	var messages []struct {
		AuthorName string `json:"AuthorName"`
	}
	status = doJSON(t, srv, http.MethodGet, "/api/support/groups/"+group.ID+"/messages", founder, nil, &messages)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, messages, 1)
	require.Equal(t, "drew", messages[0].AuthorName)
}

func TestPrivateGroupInviteJoin(t *testing.T) {
	srv := newTestServer(t)
	founder := registerUser(t, srv, "harper")
	invitee := registerUser(t, srv, "iris")

	var topics []struct {
		ID string `json:"ID"`
	}
	status := doJSON(t, srv, http.MethodGet, "/api/support/topics", founder, nil, &topics)
	require.Equal(t, http.StatusOK, status)

	var group struct {
		ID         string `json:"ID"`
		InviteCode string `json:"InviteCode"`
	}
	status = doJSON(t, srv, http.MethodPost, "/api/support/groups", founder, map[string]interface{}{
		"name":     "Quiet Corner",
		"topic_id": topics[0].ID,
		"private":  true,
	}, &group)
	require.Equal(t, http.StatusCreated, status)
	require.Len(t, group.InviteCode, 8)

	status = doJSON(t, srv, http.MethodPost, "/api/support/groups/"+group.ID+"/join", invitee, nil, nil)
	require.Equal(t, http.StatusBadRequest, status)

	status = doJSON(t, srv, http.MethodPost, "/api/support/groups/join", invitee, map[string]string{
		"invite_code": group.InviteCode,
	}, nil)
	require.Equal(t, http.StatusCreated, status)
}

func TestSubscriptionAndWebhook(t *testing.T) {
	srv := newTestServer(t)
	token := registerUser(t, srv, "quinn")

	status := doJSON(t, srv, http.MethodGet, "/api/subscription", token, nil, nil)
	require.Equal(t, http.StatusNotFound, status)

	var plans []struct {
		Name string `json:"Name"`
	}
	status = doJSON(t, srv, http.MethodGet, "/api/subscription/plans", token, nil, &plans)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, plans, 3)

	var sub struct {
		ProviderSubscriptionID string `json:"ProviderSubscriptionID"`
		Status                 string `json:"Status"`
	}
	status = doJSON(t, srv, http.MethodPost, "/api/subscription", token, map[string]string{
		"plan": "premium",
	}, &sub)
	require.Equal(t, http.StatusCreated, status)
	require.Equal(t, "active", sub.Status)

	var profile struct {
		SubscriptionTier string `json:"SubscriptionTier"`
	}
	status = doJSON(t, srv, http.MethodGet, "/api/user", token, nil, &profile)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "premium", profile.SubscriptionTier)

	payload := fmt.Sprintf(`{"type":"customer.subscription.deleted","data":{"object":{"id":%q}}}`, sub.ProviderSubscriptionID)

	status = postWebhook(t, srv, payload, "wrong-secret")
	require.Equal(t, http.StatusUnauthorized, status)

	status = postWebhook(t, srv, payload, testWebhookSecret)
	require.Equal(t, http.StatusOK, status)

	status = doJSON(t, srv, http.MethodGet, "/api/user", token, nil, &profile)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "basic", profile.SubscriptionTier)
}

func postWebhook(t *testing.T, srv *httptest.Server, payload, secret string) int {
	t.Helper()

	ts := fmt.Sprintf("%d", time.Now().Unix())
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts + "." + payload))
	header := fmt.Sprintf("t=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/webhooks/payments", bytes.NewBufferString(payload))
	require.NoError(t, err)
	req.Header.Set("Payment-Signature", header)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp.StatusCode
}

func TestAuditTrail(t *testing.T) {
	srv := newTestServer(t)
	token := registerUser(t, srv, "robin")

	status := doJSON(t, srv, http.MethodGet, "/api/entries", token, nil, nil)
	require.Equal(t, http.StatusOK, status)

	var entries []auditEntry
	status = doJSON(t, srv, http.MethodGet, "/api/audit", token, nil, &entries)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, entries)
	require.Equal(t, "/api/entries", entries[0].Path)
}

func TestRateLimit(t *testing.T) {
	application, err := app.New(app.Stores{}, app.Options{}, nil)
	require.NoError(t, err)
	h, err := NewHandler(application, Config{
		JWTSecret:      "test-secret",
		RateLimitRPS:   1,
		RateLimitBurst: 2,
	})
	require.NoError(t, err)
	limited := httptest.NewServer(h)
	defer limited.Close()

	var last int
	for i := 0; i < 5; i++ {
		resp, err := limited.Client().Post(limited.URL+"/api/login", "application/json",
			bytes.NewBufferString(`{"username":"x","password":"y"}`))
		require.NoError(t, err)
		last = resp.StatusCode
		resp.Body.Close()
	}
	require.Equal(t, http.StatusTooManyRequests, last)
}
