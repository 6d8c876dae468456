package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"casino/internal/app"
	"casino/internal/datastore"
	"casino/internal/models"
	"casino/internal/pkg/caching"
	"casino/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/env"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/uptrace/bun"
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

func main() {
	cliApp := &cli.App{
		Name: "migrate",
		Commands: []*cli.Command{
			commandMigration(),
			commandConfigMigration(),
			commandCatalogSeed(),
			commandLedgerCheck(),
			commandFlushCache(),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func getDb() (*bun.DB, error) {
	vs, err := env.EnvsRequired("DB_DSN")
	if err != nil {
		return nil, err
	}
	container := app.NewContainer(vs)
	return do.Invoke[*bun.DB](container)
}

func commandMigration() *cli.Command {
	return &cli.Command{
		Name:        "migrate",
		Description: "Create tables and indexes",
		Action: func(c *cli.Context) error {
			db, err := getDb()
			if err != nil {
				return err
			}

			if err := datastore.CreateTables(c.Context, db); err != nil {
				return err
			}
			fmt.Println("Migration success")
			return nil
		},
	}
}

func commandConfigMigration() *cli.Command {
	return &cli.Command{
		Name:        "migrate-config",
		Description: "Insert default configs to db, existing keys are kept",
		Action: func(c *cli.Context) error {
			db, err := getDb()
			if err != nil {
				return err
			}

			configs := []models.Config{
				{Key: services.CONFIG_DAILY_AMOUNT, Value: strconv.Itoa(services.DEFAULT_DAILY_AMOUNT)},
				{Key: services.CONFIG_DAILY_COOLDOWN, Value: services.DEFAULT_DAILY_COOLDOWN.String()},
				{Key: services.CONFIG_VOICE_XP_PER_MINUTE, Value: strconv.Itoa(services.DEFAULT_VOICE_XP_PER_MINUTE)},
				{Key: services.CONFIG_GAME_MAX_BET, Value: strconv.Itoa(services.DEFAULT_GAME_MAX_BET)},
				{Key: services.CONFIG_COINFLIP_WIN_WEIGHT, Value: strconv.Itoa(services.DEFAULT_COINFLIP_WIN_WEIGHT)},
				{Key: services.CONFIG_BURST_WINDOW, Value: services.DEFAULT_BURST_WINDOW.String()},
				{Key: services.CONFIG_BURST_MAX_HITS, Value: strconv.Itoa(services.DEFAULT_BURST_MAX_HITS)},
				{Key: services.CONFIG_BURST_BLOCK, Value: services.DEFAULT_BURST_BLOCK.String()},
				{Key: services.CONFIG_LEADERBOARD_LIMIT, Value: strconv.Itoa(services.DEFAULT_LEADERBOARD_LIMIT)},
				{Key: services.CONFIG_CRONJOB_GIVEAWAY, Value: "@every 15s"},
				{Key: services.CONFIG_CRONJOB_LEADERBOARD, Value: "@every 10m"},
				{Key: services.CONFIG_CRONJOB_GUARD_SWEEP, Value: "@every 1m"},
				{Key: services.CONFIG_CRONJOB_AUDIT, Value: "@every 5s"},
			}

			for _, config := range configs {
				_, err = db.NewInsert().Model(&config).On("CONFLICT (key) DO NOTHING").Exec(c.Context)
				if err != nil {
					log.Println(err)
				}
			}

			fmt.Println("Migration success")
			return nil
		},
	}
}

func commandCatalogSeed() *cli.Command {
	return &cli.Command{
		Name:        "seed-catalog",
		Description: "Insert a starter draw catalog for a community",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "community", Required: true},
		},
		Action: func(c *cli.Context) error {
			db, err := getDb()
			if err != nil {
				return err
			}

			community := c.String("community")
			existing, err := datastore.GetDrawItems(c.Context, db, community, false)
			if err != nil {
				return err
			}
			if len(existing) > 0 {
				return fmt.Errorf("community %s already has %d draw items", community, len(existing))
			}

			now := time.Now()
			items := []models.DrawItem{
				{Name: "Pocket change", Category: models.DrawCategoryOther, Weight: 40, RewardType: models.RewardTypeCoins, RewardValue: "100"},
				{Name: "Fat stack", Category: models.DrawCategoryOther, Weight: 10, RewardType: models.RewardTypeCoins, RewardValue: "1000"},
				{Name: "Study session", Category: models.DrawCategoryOther, Weight: 25, RewardType: models.RewardTypeXP, RewardValue: "50"},
				{Name: "Free pull", Category: models.DrawCategoryOther, Weight: 10, RewardType: models.RewardTypeDraws, RewardValue: "1"},
				{Name: "Golden badge", Category: models.DrawCategoryBadge, Weight: 4, RewardType: models.RewardTypeCosmetic},
				{Name: "Dust", Category: models.DrawCategoryOther, Weight: 11, RewardType: models.RewardTypeNone},
			}
			for i := range items {
				items[i].CommunityID = community
				items[i].Enabled = true
				items[i].SortOrder = i
				items[i].CreatedAt = now
				if err := datastore.InsertDrawItem(c.Context, db, &items[i]); err != nil {
					return err
				}
			}

			fmt.Printf("Seeded %d draw items\n", len(items))
			return nil
		},
	}
}

// commandLedgerCheck replays the ledger of every account in a community and reports balances
// that drifted from the sum of their rows.
func commandLedgerCheck() *cli.Command {
	return &cli.Command{
		Name:        "ledger-check",
		Description: "Compare account balances with the sum of their ledger rows",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "community", Required: true},
			&cli.IntFlag{Name: "batch", Value: 500},
		},
		Action: func(c *cli.Context) error {
			db, err := getDb()
			if err != nil {
				return err
			}
			return checkLedger(c.Context, db, c.String("community"), c.Int("batch"))
		},
	}
}

func checkLedger(ctx context.Context, db bun.IDB, community string, batch int) error {
	drifted := 0
	checked := 0
	for offset := 0; ; offset += batch {
		var accounts []models.Account
		err := db.NewSelect().Model(&accounts).
			Where("community_id = ?", community).
			Order("id ASC").
			Limit(batch).
			Offset(offset).
			Scan(ctx)
		if err != nil {
			return err
		}
		if len(accounts) == 0 {
			break
		}

		for _, account := range accounts {
			coins, xp, err := datastore.SumAccountDeltas(ctx, db, community, account.UserID)
			if err != nil {
				return err
			}
			checked++
			if coins != account.Coins || xp != account.XP {
				drifted++
				fmt.Printf("%s: balance %d/%d, ledger %d/%d\n", account.UserID, account.Coins, account.XP, coins, xp)
			}
		}
	}

	fmt.Printf("Checked %d accounts, %d drifted\n", checked, drifted)
	if drifted > 0 {
		return fmt.Errorf("%d accounts drifted from the ledger", drifted)
	}
	return nil
}

// commandFlushCache drops shared cache entries, for example after editing configs by hand.
// Process-local cache tiers expire on their own.
func commandFlushCache() *cli.Command {
	return &cli.Command{
		Name:        "flush-cache",
		Description: "Delete redis cache keys matching a pattern",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "pattern", Value: services.DBKeyConfig("*")},
		},
		Action: func(c *cli.Context) error {
			vs, err := env.EnvsRequired("DB_DSN")
			if err != nil {
				return err
			}
			container := app.NewContainer(vs)
			if vs["REDIS_URL"] == "" && vs["CLUSTER_REDIS_URL"] == "" {
				return fmt.Errorf("no redis configured, nothing to flush")
			}

			client, err := do.InvokeNamed[redis.UniversalClient](container, "redis-db")
			if err != nil {
				return err
			}
			if err := caching.DeleteKeys(c.Context, client, c.String("pattern")); err != nil {
				return err
			}

			fmt.Printf("Flushed %s\n", c.String("pattern"))
			return nil
		},
	}
}
