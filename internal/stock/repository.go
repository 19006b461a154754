package stock

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/drishti-pos/drishti-pos/internal/db"
	"github.com/drishti-pos/drishti-pos/internal/shared"
)

// TxStore exposes the locked read-modify-write operations the service runs
// inside a transaction.
type TxStore interface {
	GetLevelForUpdate(ctx context.Context, productID, branchCode string) (Level, error)
	SetQuantity(ctx context.Context, productID, branchCode string, qty int64) error
}

// Repository persists stock levels in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, r.TxStore(tx))
	})
}

// TxStore wraps an existing transaction so stock mutations can join a
// settlement transaction owned by another module.
func (r *Repository) TxStore(q db.DBTX) TxStore {
	return &txStore{q: q}
}

type txStore struct {
	q db.DBTX
}

func (t *txStore) GetLevelForUpdate(ctx context.Context, productID, branchCode string) (Level, error) {
	row := t.q.QueryRow(ctx,
		`SELECT product_id, branch_code, quantity, updated_at FROM stock_levels
		 WHERE product_id = $1 AND branch_code = $2 FOR UPDATE`, productID, branchCode)
	var lvl Level
	if err := row.Scan(&lvl.ProductID, &lvl.BranchCode, &lvl.Quantity, &lvl.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Level{ProductID: productID, BranchCode: branchCode}, shared.ErrNotFound
		}
		return Level{}, err
	}
	return lvl, nil
}

func (t *txStore) SetQuantity(ctx context.Context, productID, branchCode string, qty int64) error {
	_, err := t.q.Exec(ctx,
		`INSERT INTO stock_levels (product_id, branch_code, quantity, updated_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (product_id, branch_code) DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = NOW()`,
		productID, branchCode, qty)
	return err
}

// GetLevel fetches the current on-hand quantity outside a transaction.
func (r *Repository) GetLevel(ctx context.Context, productID, branchCode string) (Level, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT product_id, branch_code, quantity, updated_at FROM stock_levels
		 WHERE product_id = $1 AND branch_code = $2`, productID, branchCode)
	var lvl Level
	if err := row.Scan(&lvl.ProductID, &lvl.BranchCode, &lvl.Quantity, &lvl.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Level{}, shared.ErrNotFound
		}
		return Level{}, err
	}
	return lvl, nil
}

// ListLevels lists stock for a branch.
func (r *Repository) ListLevels(ctx context.Context, branchCode string, limit, offset int) ([]Level, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx,
		`SELECT product_id, branch_code, quantity, updated_at FROM stock_levels
		 WHERE branch_code = $1 ORDER BY product_id LIMIT $2 OFFSET $3`, branchCode, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var levels []Level
	for rows.Next() {
		var lvl Level
		if err := rows.Scan(&lvl.ProductID, &lvl.BranchCode, &lvl.Quantity, &lvl.UpdatedAt); err != nil {
			return nil, err
		}
		levels = append(levels, lvl)
	}
	return levels, rows.Err()
}
