package orders

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/drishti-pos/drishti-pos/internal/sequence"
)

// Kind distinguishes the two order flavours the shops run.
type Kind string

const (
	// KindWork is a made-to-order job (lens fabrication) taken with an
	// advance and a due date.
	KindWork Kind = "WORK"
	// KindSales is an immediate retail sale.
	KindSales Kind = "SALES"
)

// SequenceKind maps the order kind onto its identifier sequence.
func (k Kind) SequenceKind() sequence.Kind {
	if k == KindWork {
		return sequence.KindWorkOrder
	}
	return sequence.KindSalesOrder
}

// Status is the order lifecycle state.
type Status string

const (
	// StatusDraft marks a work order still being fitted; its lines may be edited.
	StatusDraft Status = "DRAFT"
	// StatusCompleted marks a settled order.
	StatusCompleted Status = "COMPLETED"
	// StatusCancelled marks a voided order; its number is never reused.
	StatusCancelled Status = "CANCELLED"
)

// Order is one persisted work or sales order with its settlement breakdown.
type Order struct {
	ID                int64
	Ref               uuid.UUID
	Number            string
	Kind              Kind
	Status            Status
	BranchCode        string
	CustomerName      string
	CustomerPhone     *string
	LoyaltyCard       *string
	AdjustedSubtotal  decimal.Decimal
	AdvancePaid       decimal.Decimal
	DiscountAmount    decimal.Decimal
	DiscountApplied   decimal.Decimal
	PrivilegeDiscount decimal.Decimal
	CGST              decimal.Decimal
	SGST              decimal.Decimal
	FinalAmount       decimal.Decimal
	PointsRedeemed    int64
	PointsAccrued     int64
	DueDate           *time.Time
	Notes             *string
	TerminalID        int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
	Lines             []OrderLine
}

// OrderLine is one product row on an order. UnitPrice is the MRP captured
// from the catalog at settlement time, tax-inclusive.
type OrderLine struct {
	ID          int64
	OrderID     int64
	ProductID   string
	ProductName string
	HSNCode     string
	UnitPrice   decimal.Decimal
	Quantity    int64
	LineOrder   int
}

var (
	// ErrInvalidStatus indicates an operation not allowed in the order's state.
	ErrInvalidStatus = errors.New("orders: invalid status transition")
	// ErrUnknownProduct indicates a cart line referencing a product not in the catalog.
	ErrUnknownProduct = errors.New("orders: unknown product")
	// ErrUnknownKind indicates an unrecognised order kind.
	ErrUnknownKind = errors.New("orders: unknown order kind")
)
