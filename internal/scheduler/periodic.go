package scheduler

import (
	"context"
	"fmt"
	"time"

	"realty_crm_backend/platform/config"
	"realty_crm_backend/platform/logger"

	"github.com/hibiken/asynq"
)

const defaultSweepCron = "0 8 * * *"

// Periodic registers the daily matching sweep with asynq's scheduler.
type Periodic struct {
	scheduler *asynq.Scheduler
	log       *logger.Logger
}

func NewPeriodic(cfg config.SchedulerConfig, log *logger.Logger) (*Periodic, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	loc := time.UTC
	if tz := cfg.GetTimezone(); tz != "" {
		loc, err = time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("load timezone %q: %w", tz, err)
		}
	}

	s := asynq.NewScheduler(opt, &asynq.SchedulerOpts{Location: loc})

	cronspec := cfg.GetMatchingSweepCron()
	if cronspec == "" {
		cronspec = defaultSweepCron
	}
	if _, err := s.Register(cronspec, NewDailySweepTask(), asynq.Queue(queueName(cfg)), asynq.MaxRetry(1)); err != nil {
		return nil, fmt.Errorf("register daily sweep: %w", err)
	}
	log.Info("daily matching sweep registered", "cron", cronspec, "timezone", loc.String())

	return &Periodic{scheduler: s, log: log}, nil
}

// Run blocks until ctx is cancelled.
func (p *Periodic) Run(ctx context.Context) error {
	if err := p.scheduler.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	p.scheduler.Shutdown()
	return nil
}
