package challenges

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/serenitylabs/wellness_layer/internal/app/metrics"
	"github.com/serenitylabs/wellness_layer/internal/app/storage"
	"github.com/serenitylabs/wellness_layer/pkg/logger"
)

const schedulerTimeout = 5 * time.Minute

// Scheduler pre-generates daily challenges just after UTC midnight and
// resets basic-tier AI allowances on the first of each month. Users who were
// never visited by the scheduler still get a challenge lazily through Today.
type Scheduler struct {
	cron    *cron.Cron
	service *Service
	users   storage.UserStore
	log     *logger.Logger
}

// NewScheduler constructs the challenge scheduler.
func NewScheduler(service *Service, users storage.UserStore, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.NewDefault("challenge-scheduler")
	}
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		service: service,
		users:   users,
		log:     log,
	}
}

func (s *Scheduler) Name() string { return "challenge-scheduler" }

func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc("5 0 * * *", s.generateDaily); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("0 0 1 * *", s.resetQuotas); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Infof("challenge scheduler started")
	return nil
}

func (s *Scheduler) Stop(ctx context.Context) error {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (s *Scheduler) generateDaily() {
	ctx, cancel := context.WithTimeout(context.Background(), schedulerTimeout)
	defer cancel()

	users, err := s.users.ListUsers(ctx)
	if err != nil {
		s.log.WithError(err).Warnf("daily challenge generation: list users")
		metrics.RecordSchedulerRun("daily_challenges", false)
		return
	}

	failed := 0
	for _, u := range users {
		if _, err := s.service.Today(ctx, u.ID); err != nil {
			failed++
			s.log.WithError(err).WithField("user_id", u.ID).Warnf("daily challenge generation failed")
		}
	}
	metrics.RecordSchedulerRun("daily_challenges", failed == 0)
	s.log.WithField("users", len(users)).WithField("failed", failed).Infof("daily challenges generated")
}

func (s *Scheduler) resetQuotas() {
	ctx, cancel := context.WithTimeout(context.Background(), schedulerTimeout)
	defer cancel()

	users, err := s.users.ListUsers(ctx)
	if err != nil {
		s.log.WithError(err).Warnf("quota reset: list users")
		metrics.RecordSchedulerRun("quota_reset", false)
		return
	}

	now := time.Now().UTC()
	next := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	failed := 0
	for _, u := range users {
		if err := s.users.UpdateAIQuota(ctx, u.ID, 0, &next); err != nil {
			failed++
			s.log.WithError(err).WithField("user_id", u.ID).Warnf("quota reset failed")
		}
	}
	metrics.RecordSchedulerRun("quota_reset", failed == 0)
	s.log.WithField("users", len(users)).WithField("failed", failed).Infof("monthly AI quotas reset")
}
