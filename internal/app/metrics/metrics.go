package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "wellness_layer",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wellness_layer",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "wellness_layer",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	streakEvaluations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wellness_layer",
			Subsystem: "streaks",
			Name:      "evaluations_total",
			Help:      "Total number of streak evaluator runs.",
		},
		[]string{"outcome"},
	)

	achievementUnlocks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "wellness_layer",
			Subsystem: "streaks",
			Name:      "achievement_unlocks_total",
			Help:      "Total number of achievements unlocked.",
		},
	)

	insightRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wellness_layer",
			Subsystem: "insights",
			Name:      "provider_requests_total",
			Help:      "Total number of AI insight provider calls.",
		},
		[]string{"operation", "status"},
	)

	insightDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "wellness_layer",
			Subsystem: "insights",
			Name:      "provider_duration_seconds",
			Help:      "Duration of AI insight provider calls.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"operation"},
	)

	schedulerRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wellness_layer",
			Subsystem: "scheduler",
			Name:      "job_runs_total",
			Help:      "Total number of scheduled job runs.",
		},
		[]string{"job", "success"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		streakEvaluations,
		achievementUnlocks,
		insightRequests,
		insightDuration,
		schedulerRuns,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordStreakEvaluation records an evaluator run outcome: "advanced",
// "reset", "noop", or "error".
func RecordStreakEvaluation(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	streakEvaluations.WithLabelValues(outcome).Inc()
}

// RecordAchievementUnlock counts a newly unlocked achievement.
func RecordAchievementUnlock() {
	achievementUnlocks.Inc()
}

// RecordInsightRequest records metrics for a call to the AI insight provider.
func RecordInsightRequest(operation, status string, duration time.Duration) {
	if duration <= 0 {
		duration = time.Millisecond
	}
	insightRequests.WithLabelValues(operation, status).Inc()
	insightDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordSchedulerRun records a scheduled job dispatch.
func RecordSchedulerRun(job string, success bool) {
	result := "false"
	if success {
		result = "true"
	}
	schedulerRuns.WithLabelValues(job, result).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// canonicalPath collapses resource IDs so the path label stays low
// cardinality.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	if parts[0] != "api" {
		return "/" + parts[0]
	}
	if len(parts) == 1 {
		return "/api"
	}
	if len(parts) == 2 {
		return "/api/" + parts[1]
	}
	return "/api/" + parts[1] + "/:rest"
}
