package loyalty

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/drishti-pos/drishti-pos/internal/db"
	"github.com/drishti-pos/drishti-pos/internal/shared"
)

// Repository persists privilege card accounts in PostgreSQL. Write methods
// take a DBTX so point updates join the caller's settlement transaction.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const accountColumns = `id, card_number, customer_name, phone, branch_code, current_points, is_active, created_at, updated_at`

func scanAccount(row pgx.Row) (*Account, error) {
	var acc Account
	err := row.Scan(&acc.ID, &acc.CardNumber, &acc.CustomerName, &acc.Phone, &acc.BranchCode, &acc.CurrentPoints, &acc.IsActive, &acc.CreatedAt, &acc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &acc, nil
}

// GetByCard fetches an account by card number.
func (r *Repository) GetByCard(ctx context.Context, cardNumber string) (*Account, error) {
	row := r.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM loyalty_accounts WHERE card_number = $1`, accountColumns), cardNumber)
	return scanAccount(row)
}

// GetForUpdate locks the account row for the duration of the transaction.
func (r *Repository) GetForUpdate(ctx context.Context, q db.DBTX, cardNumber string) (*Account, error) {
	row := q.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM loyalty_accounts WHERE card_number = $1 FOR UPDATE`, accountColumns), cardNumber)
	return scanAccount(row)
}

// UpdatePoints writes the new balance computed by the ledger.
func (r *Repository) UpdatePoints(ctx context.Context, q db.DBTX, id int64, newBalance int64) error {
	tag, err := q.Exec(ctx,
		`UPDATE loyalty_accounts SET current_points = $1, updated_at = NOW() WHERE id = $2`, newBalance, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListActive returns every active account, used by the cache warmup job.
func (r *Repository) ListActive(ctx context.Context) ([]Account, error) {
	rows, err := r.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM loyalty_accounts WHERE is_active ORDER BY id`, accountColumns))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		var acc Account
		if err := rows.Scan(&acc.ID, &acc.CardNumber, &acc.CustomerName, &acc.Phone, &acc.BranchCode, &acc.CurrentPoints, &acc.IsActive, &acc.CreatedAt, &acc.UpdatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, acc)
	}
	return accounts, rows.Err()
}

// Create issues a new privilege card.
func (r *Repository) Create(ctx context.Context, acc Account) (*Account, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO loyalty_accounts (card_number, customer_name, phone, branch_code, current_points, is_active)
		 VALUES ($1, $2, $3, $4, $5, TRUE)
		 RETURNING `+accountColumns,
		acc.CardNumber, acc.CustomerName, acc.Phone, acc.BranchCode, acc.CurrentPoints)
	created, err := scanAccount(row)
	if err != nil {
		return nil, shared.MapStoreError(err)
	}
	return created, nil
}
