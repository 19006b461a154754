package orders

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/drishti-pos/drishti-pos/internal/db"
	"github.com/drishti-pos/drishti-pos/internal/stock"
)

// PoolTxRunner runs settlement transactions against the shared pool.
type PoolTxRunner struct {
	Pool *pgxpool.Pool
}

func (r PoolTxRunner) WithTx(ctx context.Context, fn func(context.Context, db.DBTX) error) error {
	return db.WithTx(ctx, r.Pool, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, tx)
	})
}

// StockApplier adapts the stock service onto the settlement transaction.
type StockApplier struct {
	Service *stock.Service
	Repo    *stock.Repository
}

func (a StockApplier) Apply(ctx context.Context, q db.DBTX, branchCode string, deltas []stock.Delta) error {
	return a.Service.ApplyDeltas(ctx, a.Repo.TxStore(q), branchCode, deltas)
}
