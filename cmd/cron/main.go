package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"casino/internal/app"
	"casino/internal/pkg/logger"

	"github.com/hiendaovinh/toolkit/pkg/env"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"
)

func init() {
	// for development
	//nolint:errcheck
	godotenv.Load("../../.env")

	// for production
	//nolint:errcheck
	godotenv.Load("./.env")
}

type CronJob interface {
	Start(ctx context.Context, cronRunner *cron.Cron) error
}

func main() {
	cliApp := &cli.App{
		Name: "cronjob",
		Commands: []*cli.Command{
			commandCronjob(),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commandCronjob() *cli.Command {
	return &cli.Command{
		Name: "cron",
		Action: func(c *cli.Context) error {
			vs, err := env.EnvsRequired("DB_DSN")
			if err != nil {
				return err
			}
			vs["DISCORD_TOKEN"] = os.Getenv("DISCORD_TOKEN")
			container := app.NewContainer(vs)

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			jobs := []CronJob{
				NewGiveawayJob(container),
				NewLeaderboardJob(container),
				NewGuardSweepJob(container),
			}
			if vs["DISCORD_TOKEN"] != "" {
				app.ProvideBot(container, vs["DISCORD_TOKEN"])
				jobs = append(jobs, NewAuditJob(container))
			} else {
				logger.Warn("DISCORD_TOKEN is not set, audit events stay queued for the bot")
			}

			cronRunner := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
			for _, job := range jobs {
				if err := job.Start(ctx, cronRunner); err != nil {
					return err
				}
			}

			logger.Info("Start cronjob")
			cronRunner.Start()
			<-ctx.Done()
			<-cronRunner.Stop().Done()
			return nil
		},
	}
}
