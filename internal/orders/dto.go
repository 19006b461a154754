package orders

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/drishti-pos/drishti-pos/internal/shared"
)

// Monetary fields travel as strings so client float rounding can never leak
// into the settlement arithmetic.

type CreateOrderLineReq struct {
	ProductID string `json:"product_id" validate:"required,max=64"`
	Quantity  int64  `json:"quantity" validate:"required,gt=0"`
}

type CreateOrderRequest struct {
	Kind           string               `json:"kind" validate:"required,oneof=WORK SALES"`
	BranchCode     string               `json:"branch_code" validate:"required,max=10"`
	CustomerName   string               `json:"customer_name" validate:"required,max=200"`
	CustomerPhone  *string              `json:"customer_phone,omitempty" validate:"omitempty,max=20"`
	LoyaltyCard    *string              `json:"loyalty_card,omitempty" validate:"omitempty,max=32"`
	RedeemPoints   string               `json:"redeem_points,omitempty"`
	AdvancePaid    string               `json:"advance_paid,omitempty"`
	DiscountAmount string               `json:"discount_amount,omitempty"`
	DueDate        *time.Time           `json:"due_date,omitempty"`
	Notes          *string              `json:"notes,omitempty"`
	SubmissionKey  string               `json:"submission_key" validate:"required,max=64"`
	Lines          []CreateOrderLineReq `json:"lines" validate:"required,min=1,dive"`
}

type UpdateOrderRequest struct {
	DiscountAmount *string               `json:"discount_amount,omitempty"`
	DueDate        *time.Time            `json:"due_date,omitempty"`
	Notes          *string               `json:"notes,omitempty"`
	Lines          *[]CreateOrderLineReq `json:"lines,omitempty" validate:"omitempty,min=1,dive"`
}

type ListOrdersRequest struct {
	BranchCode string
	Kind       *Kind
	Status     *Status
	Limit      int
	Offset     int
}

// parseAmount turns an optional request amount into a decimal, treating the
// empty string as zero and anything negative as a validation failure.
func parseAmount(field, raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s is not a valid amount", shared.ErrValidation, field)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %s must be >= 0", shared.ErrValidation, field)
	}
	return d, nil
}
