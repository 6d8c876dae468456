package main

import (
	"context"
	"time"

	"casino/internal/interfaces"
	"casino/internal/pkg/logger"
	"casino/internal/services"

	"github.com/robfig/cron/v3"
	"github.com/samber/do"
	"github.com/sirupsen/logrus"
)

const jobTimeout = 2 * time.Minute

// schedule reads a cron spec from the configs table, falling back to spec.
func schedule(ctx context.Context, container *do.Injector, key, spec string) (string, error) {
	serviceConfig, err := do.Invoke[*services.ServiceConfig](container)
	if err != nil {
		return "", err
	}

	value, err := serviceConfig.GetStringConfig(ctx, key, spec)
	if err != nil {
		logger.WithFields(logrus.Fields{"key": key}).WithError(err).Warn("schedule unreadable, using default")
		return spec, nil
	}
	return value, nil
}

// addJob registers run under the configured spec. Each run gets its own deadline and stops
// with the process.
func addJob(ctx context.Context, container *do.Injector, cronRunner *cron.Cron, name, key, spec string, run func(ctx context.Context) error) error {
	spec, err := schedule(ctx, container, key, spec)
	if err != nil {
		return err
	}

	_, err = cronRunner.AddFunc(spec, func() {
		runCtx, cancel := context.WithTimeout(ctx, jobTimeout)
		defer cancel()

		start := time.Now()
		fields := logrus.Fields{"job": name}
		if err := run(runCtx); err != nil {
			logger.WithFields(fields).WithError(err).Error("cronjob failed")
			return
		}
		fields["took"] = time.Since(start).String()
		logger.WithFields(fields).Debug("cronjob done")
	})
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{"job": name, "cron": spec}).Info("cronjob scheduled")
	return nil
}

type GiveawayJob struct {
	container *do.Injector
}

func NewGiveawayJob(container *do.Injector) *GiveawayJob {
	return &GiveawayJob{container}
}

func (j *GiveawayJob) Start(ctx context.Context, cronRunner *cron.Cron) error {
	serviceGiveaway, err := do.Invoke[*services.ServiceGiveaway](j.container)
	if err != nil {
		return err
	}

	return addJob(ctx, j.container, cronRunner, "giveaway", services.CONFIG_CRONJOB_GIVEAWAY, "@every 15s", func(ctx context.Context) error {
		ended, err := serviceGiveaway.EndDue(ctx)
		if ended > 0 {
			logger.WithFields(logrus.Fields{"ended": ended}).Info("due giveaways ended")
		}
		return err
	})
}

type LeaderboardJob struct {
	container *do.Injector
}

func NewLeaderboardJob(container *do.Injector) *LeaderboardJob {
	return &LeaderboardJob{container}
}

func (j *LeaderboardJob) Start(ctx context.Context, cronRunner *cron.Cron) error {
	serviceLeaderboard, err := do.Invoke[*services.ServiceLeaderboard](j.container)
	if err != nil {
		return err
	}

	rebuild := func(ctx context.Context) error {
		communities, err := serviceLeaderboard.Rebuild(ctx)
		if communities > 0 {
			logger.WithFields(logrus.Fields{"communities": communities}).Info("leaderboards rebuilt")
		}
		return err
	}

	// the board starts warm instead of waiting for the first tick
	if err := rebuild(ctx); err != nil {
		logger.WithError(err).Warn("initial leaderboard rebuild failed")
	}
	return addJob(ctx, j.container, cronRunner, "leaderboard", services.CONFIG_CRONJOB_LEADERBOARD, "@every 10m", rebuild)
}

type GuardSweepJob struct {
	container *do.Injector
}

func NewGuardSweepJob(container *do.Injector) *GuardSweepJob {
	return &GuardSweepJob{container}
}

func (j *GuardSweepJob) Start(ctx context.Context, cronRunner *cron.Cron) error {
	guard, err := do.Invoke[interfaces.Guard](j.container)
	if err != nil {
		return err
	}

	return addJob(ctx, j.container, cronRunner, "guard-sweep", services.CONFIG_CRONJOB_GUARD_SWEEP, "@every 1m", func(context.Context) error {
		if removed := guard.Sweep(); removed > 0 {
			logger.WithFields(logrus.Fields{"removed": removed}).Debug("guard swept")
		}
		return nil
	})
}

type AuditJob struct {
	container *do.Injector
}

func NewAuditJob(container *do.Injector) *AuditJob {
	return &AuditJob{container}
}

func (j *AuditJob) Start(ctx context.Context, cronRunner *cron.Cron) error {
	serviceAudit, err := do.Invoke[*services.ServiceAudit](j.container)
	if err != nil {
		return err
	}
	renderer, err := do.Invoke[interfaces.AuditRenderer](j.container)
	if err != nil {
		return err
	}

	return addJob(ctx, j.container, cronRunner, "audit", services.CONFIG_CRONJOB_AUDIT, "@every 5s", func(ctx context.Context) error {
		for {
			rendered, err := serviceAudit.Flush(ctx, renderer, services.AUDIT_FLUSH_BATCH)
			if err != nil || rendered < services.AUDIT_FLUSH_BATCH {
				return err
			}
		}
	})
}
