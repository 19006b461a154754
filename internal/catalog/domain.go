package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is one sellable item. The ID is the externally assigned catalog
// code; MRP is the tax-inclusive sticker price.
type Product struct {
	ID        string
	Name      string
	Category  string
	MRP       decimal.Decimal
	HSNCode   string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Branch is a physical retail location. Stock and order sequences are
// partitioned per branch.
type Branch struct {
	Code      string
	Name      string
	City      string
	Phone     *string
	IsActive  bool
	CreatedAt time.Time
}
