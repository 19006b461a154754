package loyalty

import "github.com/shopspring/decimal"

// Points accrue at 5% of the tax-exclusive subtotal, floored to whole points.
var accrualRate = decimal.RequireFromString("0.05")

// Settle computes the point delta for one settlement. Pure; the caller
// persists NewPointBalance inside the settlement transaction.
//
// Redemption is capped at the current balance and floored to whole points,
// so a fractional redemption value rounds in the customer's favour. Accrual
// happens on every settlement with a card attached, redeemed or not.
func Settle(subtotalExclTax, redeemRequested decimal.Decimal, account *Account) Settlement {
	if account == nil {
		return Settlement{}
	}

	var redeemed int64
	if redeemRequested.IsPositive() {
		redeemed = decimal.Min(redeemRequested, decimal.NewFromInt(account.CurrentPoints)).IntPart()
	}

	accrued := subtotalExclTax.Mul(accrualRate).Floor().IntPart()
	if accrued < 0 {
		accrued = 0
	}

	return Settlement{
		PointsRedeemed:  redeemed,
		PointsAccrued:   accrued,
		NewPointBalance: account.CurrentPoints - redeemed + accrued,
	}
}
