package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"casino/internal/app"
	"casino/internal/datastore"
	"casino/internal/models"
	"casino/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/env"
	"github.com/joho/godotenv"
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
	app := &cli.App{
		Name: "export",
		Commands: []*cli.Command{
			commandExport(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

var csvHeader = []string{
	"id", "created_at", "user_id", "actor_id", "source", "reason",
	"coins_before", "coins_delta", "coins_after", "xp_before", "xp_delta", "xp_after",
	"trace_id", "reverted_at", "metadata",
}

func csvRow(record *models.EconomyTransaction) ([]string, error) {
	metadata, err := json.Marshal(record.Metadata)
	if err != nil {
		return nil, err
	}

	reverted := ""
	if record.RevertedAt != nil {
		reverted = record.RevertedAt.UTC().Format(time.RFC3339)
	}

	i := func(v int64) string { return strconv.FormatInt(v, 10) }
	return []string{
		i(record.ID), record.CreatedAt.UTC().Format(time.RFC3339), record.UserID, record.ActorID, record.Source, record.Reason,
		i(record.CoinsBefore), i(record.CoinsDelta), i(record.CoinsAfter), i(record.XPBefore), i(record.XPDelta), i(record.XPAfter),
		record.TraceID, reverted, string(metadata),
	}, nil
}

// exportLedger writes every ledger row of a community as csv and returns the row count.
func exportLedger(ctx context.Context, db *bun.DB, community string, since time.Time, w io.Writer) (int, error) {
	out := csv.NewWriter(w)
	if err := out.Write(csvHeader); err != nil {
		return 0, err
	}

	count := 0
	err := datastore.StreamEconomyTransactions(ctx, db, community, since, func(record *models.EconomyTransaction) error {
		row, err := csvRow(record)
		if err != nil {
			return err
		}
		count++
		return out.Write(row)
	})
	if err != nil {
		return count, err
	}

	out.Flush()
	return count, out.Error()
}

func commandExport() *cli.Command {
	return &cli.Command{
		Name:        "export",
		Description: "Dump the ledger of a community as csv and print its leaderboard",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "community", Required: true},
			&cli.StringFlag{Name: "output", Usage: "file path, stdout when empty"},
			&cli.TimestampFlag{Name: "since", Layout: time.RFC3339},
			&cli.IntFlag{Name: "top", Value: 5},
		},
		Action: func(c *cli.Context) error {
			vs, err := env.EnvsRequired("DB_DSN")
			if err != nil {
				return err
			}
			container := app.NewContainer(vs)

			db, err := do.Invoke[*bun.DB](container)
			if err != nil {
				return err
			}

			var w io.Writer = os.Stdout
			if path := c.String("output"); path != "" {
				f, err := os.Create(path)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			since := time.Unix(0, 0)
			if v := c.Timestamp("since"); v != nil {
				since = *v
			}

			community := c.String("community")
			count, err := exportLedger(c.Context, db, community, since, w)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "exported %d rows\n", count)

			serviceLeaderboard, err := do.Invoke[*services.ServiceLeaderboard](container)
			if err != nil {
				return err
			}
			top, err := serviceLeaderboard.Top(c.Context, community, c.Int("top"))
			if err != nil {
				return err
			}

			fmt.Fprintf(os.Stderr, "TOP %d:\n", len(top))
			for _, item := range top {
				fmt.Fprintf(os.Stderr, "%d. %s %.0f\n", item.Rank, item.UserID, item.Score)
			}
			return nil
		},
	}
}
