package app

import (
	"context"
	"net/http"
	"time"

	"github.com/serenitylabs/wellness_layer/internal/app/services/accounts"
	achievementsvc "github.com/serenitylabs/wellness_layer/internal/app/services/achievements"
	affirmationsvc "github.com/serenitylabs/wellness_layer/internal/app/services/affirmations"
	billingsvc "github.com/serenitylabs/wellness_layer/internal/app/services/billing"
	challengesvc "github.com/serenitylabs/wellness_layer/internal/app/services/challenges"
	goalsvc "github.com/serenitylabs/wellness_layer/internal/app/services/goals"
	"github.com/serenitylabs/wellness_layer/internal/app/services/insights"
	journalsvc "github.com/serenitylabs/wellness_layer/internal/app/services/journal"
	"github.com/serenitylabs/wellness_layer/internal/app/services/streaks"
	"github.com/serenitylabs/wellness_layer/internal/app/services/supportgroups"
	"github.com/serenitylabs/wellness_layer/internal/app/storage"
	"github.com/serenitylabs/wellness_layer/internal/app/storage/memory"
	"github.com/serenitylabs/wellness_layer/internal/app/system"
	"github.com/serenitylabs/wellness_layer/internal/config"
	"github.com/serenitylabs/wellness_layer/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Users        storage.UserStore
	Entries      storage.EntryStore
	Achievements storage.AchievementStore
	Goals        storage.GoalStore
	Challenges   storage.ChallengeStore
	Affirmations storage.AffirmationStore
	Support      storage.SupportStore
	Billing      storage.BillingStore
}

// Options carries optional external collaborators. A nil insights provider
// disables AI content; a nil payments provider disables paid plans.
type Options struct {
	Insights insights.Provider
	Payments billingsvc.Provider

	PremiumPriceID      string
	ProfessionalPriceID string
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Accounts     *accounts.Service
	Journal      *journalsvc.Service
	Streaks      *streaks.Service
	Achievements *achievementsvc.Service
	Goals        *goalsvc.Service
	Challenges   *challengesvc.Service
	Affirmations *affirmationsvc.Service
	Support      *supportgroups.Service
	Billing      *billingsvc.Service
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, opts Options, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if stores.Users == nil {
		stores.Users = mem
	}
	if stores.Entries == nil {
		stores.Entries = mem
	}
	if stores.Achievements == nil {
		stores.Achievements = mem
	}
	if stores.Goals == nil {
		stores.Goals = mem
	}
	if stores.Challenges == nil {
		stores.Challenges = mem
	}
	if stores.Affirmations == nil {
		stores.Affirmations = mem
	}
	if stores.Support == nil {
		stores.Support = mem
	}
	if stores.Billing == nil {
		stores.Billing = mem
	}

	manager := system.NewManager()

	acctService := accounts.New(stores.Users, log)
	billingService := billingsvc.New(stores.Users, stores.Billing, opts.Payments, opts.PremiumPriceID, opts.ProfessionalPriceID, log)
	streakService := streaks.New(stores.Users, stores.Entries, stores.Achievements, log)
	journalService := journalsvc.New(stores.Entries, opts.Insights, billingService, streakService, log)
	achievementService := achievementsvc.New(stores.Achievements, log)
	goalService := goalsvc.New(stores.Goals, log)
	challengeService := challengesvc.New(stores.Challenges, opts.Insights, billingService, log)
	affirmationService := affirmationsvc.New(stores.Affirmations, stores.Entries, opts.Insights, billingService, log)
	supportService := supportgroups.New(stores.Support, stores.Users, opts.Insights, billingService, log)

	for _, name := range []string{"accounts", "journal", "billing", "support"} {
		if err := manager.Register(system.NoopService{ServiceName: name}); err != nil {
			return nil, err
		}
	}
	scheduler := challengesvc.NewScheduler(challengeService, stores.Users, log)
	if err := manager.Register(scheduler); err != nil {
		return nil, err
	}

	return &Application{
		manager:      manager,
		log:          log,
		Accounts:     acctService,
		Journal:      journalService,
		Streaks:      streakService,
		Achievements: achievementService,
		Goals:        goalService,
		Challenges:   challengeService,
		Affirmations: affirmationService,
		Support:      supportService,
		Billing:      billingService,
	}, nil
}

// NewFromConfig builds an application with collaborators derived from
// configuration. Missing provider credentials degrade the matching feature
// instead of failing startup.
func NewFromConfig(stores Stores, cfg *config.Config, log *logger.Logger) (*Application, error) {
	opts := Options{
		PremiumPriceID:      cfg.Payments.PremiumPrice,
		ProfessionalPriceID: cfg.Payments.ProPrice,
	}

	if cfg.Insights.APIKey != "" {
		client := &http.Client{Timeout: time.Duration(cfg.Insights.TimeoutSec) * time.Second}
		provider, err := insights.NewHTTPProvider(client, cfg.Insights.Endpoint, cfg.Insights.APIKey, cfg.Insights.Model, cfg.Insights.Temperature, log)
		if err != nil {
			log.WithError(err).Warnf("configure insights provider")
		} else {
			opts.Insights = provider
		}
	} else {
		log.Warnf("insights api key not set; AI content disabled")
	}

	if cfg.Payments.APIKey != "" {
		provider, err := billingsvc.NewHTTPProvider(nil, cfg.Payments.Endpoint, cfg.Payments.APIKey, log)
		if err != nil {
			log.WithError(err).Warnf("configure payments provider")
		} else {
			opts.Payments = provider
		}
	} else {
		log.Warnf("payments api key not set; paid plans disabled")
	}

	return New(stores, opts, log)
}

// Seed writes the built-in catalogs (achievements, support topics, plans).
func (a *Application) Seed(ctx context.Context) error {
	if err := a.Achievements.EnsureCatalog(ctx); err != nil {
		return err
	}
	if err := a.Support.EnsureTopics(ctx); err != nil {
		return err
	}
	return a.Billing.EnsurePlans(ctx)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
