package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Prices in the catalog are GST-inclusive at a combined 12% rate,
// split evenly between CGST and SGST.
var (
	gstDivisor  = decimal.RequireFromString("1.12")
	gstHalfRate = decimal.RequireFromString("0.06")
)

// ErrInvalidLine indicates a line item with a negative quantity or price.
var ErrInvalidLine = errors.New("pricing: line quantity and price must be >= 0")

// ErrInvalidAmount indicates a negative advance, discount or redemption amount.
var ErrInvalidAmount = errors.New("pricing: amounts must be >= 0")

// Line is one cart row entering a settlement.
type Line struct {
	ProductID string
	UnitPrice decimal.Decimal // MRP, tax-inclusive
	Quantity  int64
	HSNCode   string
}

// Input carries everything one settlement computation needs.
type Input struct {
	Lines           []Line
	AdvancePaid     decimal.Decimal
	DiscountAmount  decimal.Decimal // flat amount, not a percentage
	LoyaltyAttached bool
	LoyaltyPoints   int64 // current balance, meaningful only when attached
	RedeemRequested decimal.Decimal
}

// Result is the immutable breakdown of one settlement.
type Result struct {
	AdjustedSubtotal  decimal.Decimal // sum of tax-exclusive line totals
	DiscountApplied   decimal.Decimal
	PrivilegeDiscount decimal.Decimal // redeemed points used as currency, 1:1
	TaxableAmount     decimal.Decimal // balance the GST is charged on
	CGST              decimal.Decimal
	SGST              decimal.Decimal
	FinalAmount       decimal.Decimal
}

// Compute turns a cart plus settlement inputs into a pricing breakdown.
// Pure and deterministic; monetary overshoot is clamped, never rejected.
// The step order is load-bearing: advance is subtracted before the flat
// discount is capped, and privilege redemption only draws from whatever
// balance the discount left behind.
func Compute(in Input) (Result, error) {
	for _, line := range in.Lines {
		if line.Quantity < 0 || line.UnitPrice.IsNegative() {
			return Result{}, ErrInvalidLine
		}
	}
	if in.AdvancePaid.IsNegative() || in.DiscountAmount.IsNegative() || in.RedeemRequested.IsNegative() {
		return Result{}, ErrInvalidAmount
	}

	subtotal := decimal.Zero
	for _, line := range in.Lines {
		exclusive := line.UnitPrice.Div(gstDivisor)
		subtotal = subtotal.Add(exclusive.Mul(decimal.NewFromInt(line.Quantity)))
	}
	subtotal = subtotal.Round(2)

	remaining := subtotal.Sub(in.AdvancePaid)

	discountApplied := decimal.Min(in.DiscountAmount, decimal.Max(remaining, decimal.Zero))
	remaining = remaining.Sub(discountApplied)

	privilege := decimal.Zero
	if in.LoyaltyAttached && in.RedeemRequested.IsPositive() && remaining.IsPositive() {
		privilege = decimal.Min(in.RedeemRequested, decimal.NewFromInt(in.LoyaltyPoints), remaining)
		remaining = remaining.Sub(privilege)
	}

	// A settlement that bottoms out carries no redemption at all.
	if !remaining.IsPositive() {
		privilege = decimal.Zero
		remaining = decimal.Zero
	}

	cgst := remaining.Mul(gstHalfRate).Round(2)
	sgst := remaining.Mul(gstHalfRate).Round(2)
	final := decimal.Max(remaining.Add(cgst).Add(sgst), decimal.Zero).Round(2)

	return Result{
		AdjustedSubtotal:  subtotal,
		DiscountApplied:   discountApplied.Round(2),
		PrivilegeDiscount: privilege.Round(2),
		TaxableAmount:     remaining.Round(2),
		CGST:              cgst,
		SGST:              sgst,
		FinalAmount:       final,
	}, nil
}
