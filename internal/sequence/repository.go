package sequence

import (
	"context"

	"github.com/drishti-pos/drishti-pos/internal/db"
)

// Repository advances branch sequences in PostgreSQL. The increment is a
// single upsert, so two concurrent submissions for the same branch can never
// draw the same number: the second waits on the first's row lock and reads
// the already-advanced value.
type Repository struct{}

// NewRepository constructs Repository.
func NewRepository() *Repository {
	return &Repository{}
}

// NextValue atomically increments and returns the counter for the key.
func (r *Repository) NextValue(ctx context.Context, q db.DBTX, branchCode string, kind Kind, fiscalYear string) (int64, error) {
	row := q.QueryRow(ctx,
		`INSERT INTO branch_sequences (branch_code, kind, fiscal_year, last_value)
		 VALUES ($1, $2, $3, 1)
		 ON CONFLICT (branch_code, kind, fiscal_year)
		 DO UPDATE SET last_value = branch_sequences.last_value + 1
		 RETURNING last_value`,
		branchCode, string(kind), fiscalYear)
	var value int64
	if err := row.Scan(&value); err != nil {
		return 0, err
	}
	return value, nil
}

// Seed raises the counter floor, used when migrating branches with existing
// paper sequences. A lower floor than the current value is a no-op.
func (r *Repository) Seed(ctx context.Context, q db.DBTX, branchCode string, kind Kind, fiscalYear string, floor int64) error {
	_, err := q.Exec(ctx,
		`INSERT INTO branch_sequences (branch_code, kind, fiscal_year, last_value)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (branch_code, kind, fiscal_year)
		 DO UPDATE SET last_value = GREATEST(branch_sequences.last_value, EXCLUDED.last_value)`,
		branchCode, string(kind), fiscalYear, floor)
	return err
}
