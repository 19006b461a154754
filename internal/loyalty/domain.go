package loyalty

import (
	"errors"
	"time"
)

// Account is a customer-linked privilege card balance. Points redeem 1:1
// against rupees at checkout.
type Account struct {
	ID            int64
	CardNumber    string
	CustomerName  string
	Phone         *string
	BranchCode    string
	CurrentPoints int64
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Settlement is the point delta computed for one completed order.
type Settlement struct {
	PointsRedeemed  int64
	PointsAccrued   int64
	NewPointBalance int64
}

// ErrAccountInactive indicates redemption was attempted on a closed card.
var ErrAccountInactive = errors.New("loyalty: account is inactive")

// ErrAccountRequired indicates redemption was requested without a card attached.
var ErrAccountRequired = errors.New("loyalty: redemption requires an attached account")
