package stock

import (
	"errors"
	"time"
)

// Line pairs a product with a quantity, as seen by the reconciler.
type Line struct {
	ProductID string
	Quantity  int64
}

// Delta is one signed stock change produced by reconciliation.
// Positive means stock must decrease (more was sold); negative means
// stock must increase (items returned to inventory).
type Delta struct {
	ProductID string
	Change    int64
}

// Level is the current on-hand quantity for a (product, branch) pair.
type Level struct {
	ProductID  string
	BranchCode string
	Quantity   int64
	UpdatedAt  time.Time
}

// AdjustmentInput describes a manual stock correction or inbound receipt.
type AdjustmentInput struct {
	ProductID  string
	BranchCode string
	Change     int64
	Note       string
	TerminalID int64
}

// ErrStockInsufficient triggered when applying deltas would drive a quantity negative.
var ErrStockInsufficient = errors.New("stock: insufficient quantity")

// ErrInvalidQuantity indicates a zero or negative line quantity.
var ErrInvalidQuantity = errors.New("stock: quantity must be positive")
