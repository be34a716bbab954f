package httpapi

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/serenitylabs/wellness_layer/internal/app"
	"github.com/serenitylabs/wellness_layer/internal/app/metrics"
	"github.com/serenitylabs/wellness_layer/internal/app/services/accounts"
	"github.com/serenitylabs/wellness_layer/internal/app/services/achievements"
	"github.com/serenitylabs/wellness_layer/internal/app/services/billing"
	"github.com/serenitylabs/wellness_layer/internal/app/services/goals"
	"github.com/serenitylabs/wellness_layer/internal/app/services/journal"
	"github.com/serenitylabs/wellness_layer/internal/app/services/supportgroups"
	"github.com/serenitylabs/wellness_layer/pkg/logger"
)

const maxBodyBytes = 1 << 20

// Config carries the settings the HTTP layer needs beyond the application
// services themselves.
type Config struct {
	JWTSecret      string
	TokenTTL       time.Duration
	WebhookSecret  string
	RateLimitRPS   float64
	RateLimitBurst int
	AuditFile      string
	Log            *logger.Logger
}

type handler struct {
	app           *app.Application
	sessions      *Sessions
	limiter       *rateLimiter
	audit         *auditLog
	webhookSecret string
	log           *logger.Logger
}

// NewHandler builds the API surface over the application services.
func NewHandler(application *app.Application, cfg Config) (http.Handler, error) {
	sessions, err := NewSessions(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return nil, err
	}
	log := cfg.Log
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	var sink auditSink
	if cfg.AuditFile != "" {
		sink = newFileAuditSink(cfg.AuditFile)
	}
	h := &handler{
		app:           application,
		sessions:      sessions,
		limiter:       newRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		audit:         newAuditLog(sink),
		webhookSecret: cfg.WebhookSecret,
		log:           log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.health)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/api/register", h.public(h.register))
	mux.HandleFunc("/api/login", h.public(h.login))
	mux.HandleFunc("/api/webhooks/payments", h.public(h.paymentWebhook))
	mux.HandleFunc("/api/user", h.authed(h.userProfile))
	mux.HandleFunc("/api/entries", h.authed(h.entries))
	mux.HandleFunc("/api/entries/", h.authed(h.entryResource))
	mux.HandleFunc("/api/achievements", h.authed(h.achievements))
	mux.HandleFunc("/api/achievements/unlocked", h.authed(h.achievementsUnlocked))
	mux.HandleFunc("/api/affirmations/today", h.authed(h.affirmationToday))
	mux.HandleFunc("/api/challenges", h.authed(h.challenges))
	mux.HandleFunc("/api/challenges/", h.authed(h.challengeResource))
	mux.HandleFunc("/api/goals", h.authed(h.goals))
	mux.HandleFunc("/api/goals/", h.authed(h.goalResource))
	mux.HandleFunc("/api/support/topics", h.authed(h.supportTopics))
	mux.HandleFunc("/api/support/groups", h.authed(h.supportGroups))
	mux.HandleFunc("/api/support/groups/", h.authed(h.supportGroupResource))
	mux.HandleFunc("/api/subscription", h.authed(h.subscription))
	mux.HandleFunc("/api/subscription/plans", h.authed(h.subscriptionPlans))
	mux.HandleFunc("/api/audit", h.authed(h.auditRecent))
	return metrics.InstrumentHandler(mux), nil
}

// public wraps unauthenticated endpoints with rate limiting and auditing.
func (h *handler) public(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.serve(w, r, "", next)
	}
}

// authed requires a valid bearer token and passes the user ID through.
func (h *handler) authed(next func(w http.ResponseWriter, r *http.Request, userID string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := h.bearerUser(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}
		h.serve(w, r, userID, func(w http.ResponseWriter, r *http.Request) {
			next(w, r, userID)
		})
	}
}

func (h *handler) serve(w http.ResponseWriter, r *http.Request, userID string, next http.HandlerFunc) {
	if !h.limiter.Allow(clientKey(r, userID)) {
		writeError(w, http.StatusTooManyRequests, fmt.Errorf("rate limit exceeded"))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
	start := time.Now()
	next(rec, r)
	h.audit.Record(auditEntry{
		Time:       start.UTC(),
		UserID:     userID,
		Method:     r.Method,
		Path:       r.URL.Path,
		Status:     rec.status,
		RemoteAddr: r.RemoteAddr,
		DurationMS: time.Since(start).Milliseconds(),
	})
}

func (h *handler) bearerUser(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", fmt.Errorf("authorization required")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", fmt.Errorf("authorization header must be a bearer token")
	}
	return h.sessions.Verify(parts[1])
}

type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- auth ---

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var payload struct {
		Username  string `json:"username"`
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	u, err := h.app.Accounts.Register(r.Context(), accounts.RegisterInput{
		Username:  payload.Username,
		Email:     payload.Email,
		Password:  payload.Password,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
	})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	token, err := h.sessions.Issue(u.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"token": token, "user": u})
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	u, err := h.app.Accounts.Authenticate(r.Context(), payload.Username, payload.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}
	token, err := h.sessions.Issue(u.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"token": token, "user": u})
}

func (h *handler) userProfile(w http.ResponseWriter, r *http.Request, userID string) {
	switch r.Method {
	case http.MethodGet:
		u, err := h.app.Accounts.Get(r.Context(), userID)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	case http.MethodPut:
		var payload struct {
			Email              *string `json:"email"`
			FirstName          *string `json:"first_name"`
			LastName           *string `json:"last_name"`
			EmailNotifications *bool   `json:"email_notifications"`
			Password           *string `json:"password"`
		}
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		u, err := h.app.Accounts.Update(r.Context(), userID, accounts.UpdateInput{
			Email:              payload.Email,
			FirstName:          payload.FirstName,
			LastName:           payload.LastName,
			EmailNotifications: payload.EmailNotifications,
			Password:           payload.Password,
		})
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	default:
		methodNotAllowed(w)
	}
}

// --- journal ---

func (h *handler) entries(w http.ResponseWriter, r *http.Request, userID string) {
	switch r.Method {
	case http.MethodGet:
		list, err := h.app.Journal.List(r.Context(), userID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	case http.MethodPost:
		var payload struct {
			Content string   `json:"content"`
			Mood    int      `json:"mood"`
			Tags    []string `json:"tags"`
		}
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		entry, err := h.app.Journal.Create(r.Context(), userID, journal.CreateInput{
			Content: payload.Content,
			Mood:    payload.Mood,
			Tags:    payload.Tags,
		})
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusCreated, entry)
	default:
		methodNotAllowed(w)
	}
}

func (h *handler) entryResource(w http.ResponseWriter, r *http.Request, userID string) {
	entryID := strings.TrimPrefix(r.URL.Path, "/api/entries/")
	if entryID == "" || strings.Contains(entryID, "/") {
		writeError(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	switch r.Method {
	case http.MethodGet:
		entry, err := h.app.Journal.Get(r.Context(), userID, entryID)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, entry)
	case http.MethodPut:
		var payload struct {
			Content *string   `json:"content"`
			Mood    *int      `json:"mood"`
			Tags    *[]string `json:"tags"`
		}
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		entry, err := h.app.Journal.Update(r.Context(), userID, entryID, journal.UpdateInput{
			Content: payload.Content,
			Mood:    payload.Mood,
			Tags:    payload.Tags,
		})
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, entry)
	default:
		methodNotAllowed(w)
	}
}

// --- achievements, affirmations, challenges ---

func (h *handler) achievements(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	list, err := h.app.Achievements.ListForUser(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handler) achievementsUnlocked(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	list, err := h.app.Achievements.ListForUser(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	unlocked := make([]achievements.UserAchievement, 0, len(list))
	for _, a := range list {
		if a.Unlocked {
			unlocked = append(unlocked, a)
		}
	}
	writeJSON(w, http.StatusOK, unlocked)
}

func (h *handler) affirmationToday(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	a, err := h.app.Affirmations.Today(r.Context(), userID)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *handler) challenges(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	list, err := h.app.Challenges.History(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handler) challengeResource(w http.ResponseWriter, r *http.Request, userID string) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/challenges/")
	switch {
	case rest == "history" && r.Method == http.MethodGet:
		h.challenges(w, r, userID)
	case rest == "today" && r.Method == http.MethodGet:
		c, err := h.app.Challenges.Today(r.Context(), userID)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	case strings.HasSuffix(rest, "/complete") && r.Method == http.MethodPost:
		challengeID := strings.TrimSuffix(rest, "/complete")
		var payload struct {
			Reflection string `json:"reflection"`
		}
		if err := decodeJSON(r, &payload); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		c, err := h.app.Challenges.Complete(r.Context(), userID, challengeID, payload.Reflection)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	default:
		writeError(w, http.StatusNotFound, fmt.Errorf("not found"))
	}
}

// --- goals ---

func (h *handler) goals(w http.ResponseWriter, r *http.Request, userID string) {
	switch r.Method {
	case http.MethodGet:
		list, err := h.app.Goals.List(r.Context(), userID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	case http.MethodPost:
		var payload struct {
			Title       string     `json:"title"`
			Description string     `json:"description"`
			Category    string     `json:"category"`
			TargetValue int        `json:"target_value"`
			Frequency   string     `json:"frequency"`
			StartDate   *time.Time `json:"start_date"`
			EndDate     *time.Time `json:"end_date"`
		}
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		g, err := h.app.Goals.Create(r.Context(), userID, goals.CreateInput{
			Title:       payload.Title,
			Description: payload.Description,
			Category:    payload.Category,
			TargetValue: payload.TargetValue,
			Frequency:   payload.Frequency,
			StartDate:   payload.StartDate,
			EndDate:     payload.EndDate,
		})
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusCreated, g)
	default:
		methodNotAllowed(w)
	}
}

func (h *handler) goalResource(w http.ResponseWriter, r *http.Request, userID string) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/goals/")
	goalID, sub, _ := strings.Cut(rest, "/")
	if goalID == "" {
		writeError(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	if sub == "progress" {
		h.goalProgress(w, r, userID, goalID)
		return
	}
	if sub != "" {
		writeError(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	switch r.Method {
	case http.MethodGet:
		g, err := h.app.Goals.Get(r.Context(), userID, goalID)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, g)
	case http.MethodPut:
		var payload struct {
			Title       *string    `json:"title"`
			Description *string    `json:"description"`
			Category    *string    `json:"category"`
			TargetValue *int       `json:"target_value"`
			Frequency   *string    `json:"frequency"`
			EndDate     *time.Time `json:"end_date"`
		}
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		g, err := h.app.Goals.Update(r.Context(), userID, goalID, goals.UpdateInput{
			Title:       payload.Title,
			Description: payload.Description,
			Category:    payload.Category,
			TargetValue: payload.TargetValue,
			Frequency:   payload.Frequency,
			EndDate:     payload.EndDate,
		})
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, g)
	case http.MethodDelete:
		if err := h.app.Goals.Delete(r.Context(), userID, goalID); err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		methodNotAllowed(w)
	}
}

func (h *handler) goalProgress(w http.ResponseWriter, r *http.Request, userID, goalID string) {
	switch r.Method {
	case http.MethodGet:
		list, err := h.app.Goals.Progress(r.Context(), userID, goalID)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	case http.MethodPost:
		var payload struct {
			Value int    `json:"value"`
			Note  string `json:"note"`
		}
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		g, err := h.app.Goals.AddProgress(r.Context(), userID, goalID, payload.Value, payload.Note)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusCreated, g)
	default:
		methodNotAllowed(w)
	}
}

// --- support groups ---

func (h *handler) supportTopics(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	topics, err := h.app.Support.Topics(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, topics)
}

func (h *handler) supportGroups(w http.ResponseWriter, r *http.Request, userID string) {
	switch r.Method {
	case http.MethodGet:
		groups, err := h.app.Support.Groups(r.Context(), userID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, groups)
	case http.MethodPost:
		var payload struct {
			Name        string `json:"name"`
			Description string `json:"description"`
			TopicID     string `json:"topic_id"`
			Private     bool   `json:"private"`
			MaxMembers  int    `json:"max_members"`
		}
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		group, err := h.app.Support.CreateGroup(r.Context(), userID, supportgroups.CreateGroupInput{
			Name:        payload.Name,
			Description: payload.Description,
			TopicID:     payload.TopicID,
			Private:     payload.Private,
			MaxMembers:  payload.MaxMembers,
		})
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusCreated, group)
	default:
		methodNotAllowed(w)
	}
}

func (h *handler) supportGroupResource(w http.ResponseWriter, r *http.Request, userID string) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/support/groups/")
	groupID, sub, _ := strings.Cut(rest, "/")
	if groupID == "" {
		writeError(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	// "join" here is the invite-code endpoint, not a group ID.
	if groupID == "join" && sub == "" {
		h.joinByInvite(w, r, userID)
		return
	}
	switch {
	case sub == "join" && r.Method == http.MethodPost:
		m, err := h.app.Support.Join(r.Context(), userID, groupID)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusCreated, m)
	case sub == "members" && r.Method == http.MethodGet:
		members, err := h.app.Support.Members(r.Context(), userID, groupID)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, members)
	case sub == "messages" && r.Method == http.MethodGet:
		messages, err := h.app.Support.Messages(r.Context(), userID, groupID)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, messages)
	case sub == "messages" && r.Method == http.MethodPost:
		var payload struct {
			Content   string `json:"content"`
			Anonymous bool   `json:"anonymous"`
		}
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		msg, err := h.app.Support.PostMessage(r.Context(), userID, groupID, payload.Content, payload.Anonymous)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusCreated, msg)
	default:
		writeError(w, http.StatusNotFound, fmt.Errorf("not found"))
	}
}

func (h *handler) joinByInvite(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var payload struct {
		InviteCode string `json:"invite_code"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	m, err := h.app.Support.JoinByInvite(r.Context(), userID, payload.InviteCode)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// --- billing ---

func (h *handler) subscriptionPlans(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	plans, err := h.app.Billing.Plans(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, plans)
}

func (h *handler) subscription(w http.ResponseWriter, r *http.Request, userID string) {
	switch r.Method {
	case http.MethodGet:
		sub, err := h.app.Billing.Current(r.Context(), userID)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, sub)
	case http.MethodPost:
		var payload struct {
			Plan string `json:"plan"`
		}
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		sub, err := h.app.Billing.Subscribe(r.Context(), userID, payload.Plan)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusCreated, sub)
	case http.MethodDelete:
		sub, err := h.app.Billing.Cancel(r.Context(), userID)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, sub)
	default:
		methodNotAllowed(w)
	}
}

func (h *handler) paymentWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("read payload: %w", err))
		return
	}
	if err := billing.VerifySignature(payload, r.Header.Get("Payment-Signature"), h.webhookSecret); err != nil {
		h.log.WithError(err).Warn("rejected payment webhook")
		writeError(w, http.StatusUnauthorized, err)
		return
	}
	if err := h.app.Billing.HandleWebhook(r.Context(), payload); err != nil {
		h.log.WithError(err).Warn("payment webhook processing failed")
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "received"})
}

// --- audit ---

func (h *handler) auditRecent(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, h.audit.Recent(userID, 50))
}

// --- helpers ---

// statusFor maps service errors onto HTTP status codes. Quota exhaustion
// and group limits are policy failures, not validation ones.
func statusFor(err error) int {
	switch {
	case errors.Is(err, billing.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, billing.ErrGroupLimit):
		return http.StatusForbidden
	case errors.Is(err, sql.ErrNoRows), strings.Contains(err.Error(), "not found"):
		return http.StatusNotFound
	case strings.Contains(err.Error(), "invalid credentials"),
		strings.Contains(err.Error(), "invalid invite code"):
		return http.StatusUnauthorized
	case strings.Contains(err.Error(), "not a member"):
		return http.StatusForbidden
	case strings.Contains(err.Error(), "already taken"),
		strings.Contains(err.Error(), "already a member"):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func decodeJSON(r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
}
