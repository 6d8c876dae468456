package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"casino/internal/app"
	"casino/internal/pkg/logger"
	"casino/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/env"
	"github.com/joho/godotenv"
	"github.com/samber/do"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

func init() {
	// for development
	//nolint:errcheck
	godotenv.Load("../../.env")

	// for production
	//nolint:errcheck
	godotenv.Load("./.env")
}

func main() {
	cliApp := &cli.App{
		Name: "bot-discord",
		Commands: []*cli.Command{
			commandBot(),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commandBot() *cli.Command {
	return &cli.Command{
		Name:  "server",
		Usage: "connect to the gateway and serve commands",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "guild",
				Usage: "register commands on one guild only, useful while developing",
			},
			&cli.BoolFlag{
				Name:  "audit-worker",
				Value: true,
				Usage: "render queued audit events into log channels",
			},
			&cli.DurationFlag{
				Name:  "audit-interval",
				Value: 5 * time.Second,
			},
		},
		Action: action,
	}
}

func action(c *cli.Context) error {
	vs, err := env.EnvsRequired(
		"DISCORD_TOKEN",
		"DB_DSN",
	)
	if err != nil {
		return err
	}

	container := app.NewContainer(vs)
	app.ProvideBot(container, vs["DISCORD_TOKEN"])

	bot, err := do.Invoke[*services.Bot](container)
	if err != nil {
		return err
	}
	b, err := newBotApp(container, bot.Session)
	if err != nil {
		return err
	}
	b.registerHandlers()

	if err := bot.Session.Open(); err != nil {
		return err
	}
	defer bot.Session.Close()

	if err := b.registerCommands(c.String("guild")); err != nil {
		return err
	}
	logger.Infof("bot is online as %s", bot.Session.State.User.Username)

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errWg, errCtx := errgroup.WithContext(ctx)
	if c.Bool("audit-worker") {
		errWg.Go(func() error {
			return runAuditWorker(errCtx, container, c.Duration("audit-interval"))
		})
	}
	errWg.Go(func() error {
		<-errCtx.Done()
		return nil
	})

	return errWg.Wait()
}

func runAuditWorker(ctx context.Context, container *do.Injector, interval time.Duration) error {
	serviceAudit, err := do.Invoke[*services.ServiceAudit](container)
	if err != nil {
		return err
	}
	bot, err := do.Invoke[*services.Bot](container)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for {
				rendered, err := serviceAudit.Flush(ctx, bot, services.AUDIT_FLUSH_BATCH)
				if err != nil {
					logger.WithError(err).Warn("audit flush failed")
				}
				if err != nil || rendered < services.AUDIT_FLUSH_BATCH {
					break
				}
			}
		}
	}
}
