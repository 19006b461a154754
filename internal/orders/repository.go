package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/drishti-pos/drishti-pos/internal/db"
	"github.com/drishti-pos/drishti-pos/internal/shared"
)

// PgRepository persists orders in Postgres. Write methods take a db.DBTX so
// they run inside the settlement transaction; reads go straight to the pool.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs PgRepository.
func NewRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const orderColumns = `id, ref, number, kind, status, branch_code, customer_name, customer_phone,
	loyalty_card, adjusted_subtotal, advance_paid, discount_amount, discount_applied,
	privilege_discount, cgst, sgst, final_amount, points_redeemed, points_accrued,
	due_date, notes, terminal_id, created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.Ref, &o.Number, &o.Kind, &o.Status, &o.BranchCode, &o.CustomerName, &o.CustomerPhone,
		&o.LoyaltyCard, &o.AdjustedSubtotal, &o.AdvancePaid, &o.DiscountAmount, &o.DiscountApplied,
		&o.PrivilegeDiscount, &o.CGST, &o.SGST, &o.FinalAmount, &o.PointsRedeemed, &o.PointsAccrued,
		&o.DueDate, &o.Notes, &o.TerminalID, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// Insert writes the order header and returns its id.
func (r *PgRepository) Insert(ctx context.Context, q db.DBTX, o *Order) (int64, error) {
	var id int64
	err := q.QueryRow(ctx, `
		INSERT INTO orders (
			ref, number, kind, status, branch_code, customer_name, customer_phone,
			loyalty_card, adjusted_subtotal, advance_paid, discount_amount, discount_applied,
			privilege_discount, cgst, sgst, final_amount, points_redeemed, points_accrued,
			due_date, notes, terminal_id
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
		RETURNING id`,
		o.Ref, o.Number, o.Kind, o.Status, o.BranchCode, o.CustomerName, o.CustomerPhone,
		o.LoyaltyCard, o.AdjustedSubtotal, o.AdvancePaid, o.DiscountAmount, o.DiscountApplied,
		o.PrivilegeDiscount, o.CGST, o.SGST, o.FinalAmount, o.PointsRedeemed, o.PointsAccrued,
		o.DueDate, o.Notes, o.TerminalID,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// InsertLines writes the order's product rows.
func (r *PgRepository) InsertLines(ctx context.Context, q db.DBTX, orderID int64, lines []OrderLine) error {
	for _, line := range lines {
		_, err := q.Exec(ctx, `
			INSERT INTO order_lines (order_id, product_id, product_name, hsn_code, unit_price, quantity, line_order)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			orderID, line.ProductID, line.ProductName, line.HSNCode, line.UnitPrice, line.Quantity, line.LineOrder,
		)
		if err != nil {
			return fmt.Errorf("insert line %s: %w", line.ProductID, err)
		}
	}
	return nil
}

// DeleteLines removes all lines of an order before a rewrite.
func (r *PgRepository) DeleteLines(ctx context.Context, q db.DBTX, orderID int64) error {
	_, err := q.Exec(ctx, `DELETE FROM order_lines WHERE order_id = $1`, orderID)
	return err
}

// UpdateSettlement rewrites the editable header fields after a draft edit.
func (r *PgRepository) UpdateSettlement(ctx context.Context, q db.DBTX, o *Order) error {
	tag, err := q.Exec(ctx, `
		UPDATE orders SET
			adjusted_subtotal = $2, discount_amount = $3, discount_applied = $4,
			privilege_discount = $5, cgst = $6, sgst = $7, final_amount = $8,
			due_date = $9, notes = $10, updated_at = now()
		WHERE id = $1`,
		o.ID, o.AdjustedSubtotal, o.DiscountAmount, o.DiscountApplied,
		o.PrivilegeDiscount, o.CGST, o.SGST, o.FinalAmount,
		o.DueDate, o.Notes,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// UpdateStatus moves an order through its lifecycle.
func (r *PgRepository) UpdateStatus(ctx context.Context, q db.DBTX, id int64, status Status) error {
	tag, err := q.Exec(ctx, `UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// GetForUpdate locks one order row inside the transaction and loads its lines.
func (r *PgRepository) GetForUpdate(ctx context.Context, q db.DBTX, id int64) (*Order, error) {
	row := q.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
	o, err := scanOrder(row)
	if err != nil {
		return nil, err
	}
	o.Lines, err = r.lines(ctx, q, id)
	if err != nil {
		return nil, err
	}
	return o, nil
}

// Get fetches one order with its lines.
func (r *PgRepository) Get(ctx context.Context, id int64) (*Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if err != nil {
		return nil, err
	}
	o.Lines, err = r.lines(ctx, r.pool, id)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (r *PgRepository) lines(ctx context.Context, q db.DBTX, orderID int64) ([]OrderLine, error) {
	rows, err := q.Query(ctx, `
		SELECT id, order_id, product_id, product_name, hsn_code, unit_price, quantity, line_order
		FROM order_lines WHERE order_id = $1 ORDER BY line_order`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []OrderLine
	for rows.Next() {
		var line OrderLine
		if err := rows.Scan(&line.ID, &line.OrderID, &line.ProductID, &line.ProductName,
			&line.HSNCode, &line.UnitPrice, &line.Quantity, &line.LineOrder); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// List lists branch orders newest first, with optional kind and status filters.
func (r *PgRepository) List(ctx context.Context, req ListOrdersRequest) ([]Order, int, error) {
	limit := req.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	where := `WHERE branch_code = $1`
	args := []any{req.BranchCode}
	if req.Kind != nil {
		args = append(args, *req.Kind)
		where += fmt.Sprintf(` AND kind = $%d`, len(args))
	}
	if req.Status != nil {
		args = append(args, *req.Status)
		where += fmt.Sprintf(` AND status = $%d`, len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM orders `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, req.Offset)
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders `+where+
			fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(
			&o.ID, &o.Ref, &o.Number, &o.Kind, &o.Status, &o.BranchCode, &o.CustomerName, &o.CustomerPhone,
			&o.LoyaltyCard, &o.AdjustedSubtotal, &o.AdvancePaid, &o.DiscountAmount, &o.DiscountApplied,
			&o.PrivilegeDiscount, &o.CGST, &o.SGST, &o.FinalAmount, &o.PointsRedeemed, &o.PointsAccrued,
			&o.DueDate, &o.Notes, &o.TerminalID, &o.CreatedAt, &o.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		orders = append(orders, o)
	}
	return orders, total, rows.Err()
}
