package datastore

import (
	"context"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// forUpdate locks the selected rows until the end of the transaction. SQLite has no row
// locks; its transactions already serialise writers.
func forUpdate(db bun.IDB, q *bun.SelectQuery) *bun.SelectQuery {
	if db.Dialect().Name() == dialect.PG {
		return q.For("UPDATE")
	}
	return q
}

func CreateTables(ctx context.Context, db bun.IDB) error {
	creators := []func(context.Context, bun.IDB) error{
		CreateTableConfig,
		CreateTableAccount,
		CreateTableEconomyTransaction,
		CreateTableCasinoProfile,
		CreateTableDrawItem,
		CreateTableInventoryItem,
		CreateTableGiveaway,
		CreateTableGiveawayEntry,
		CreateTableGiveawayWinner,
		CreateTableGiveawayPayout,
		CreateTableSanction,
	}

	for _, create := range creators {
		if err := create(ctx, db); err != nil {
			return err
		}
	}
	return nil
}
