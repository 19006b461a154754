package orders

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestReceiptUsesIndianDigitGrouping(t *testing.T) {
	p := NewReceiptPrinter("Drishti Opticals")

	card := "PC-1001"
	order := &Order{
		Number:           "2571",
		Kind:             KindSales,
		BranchCode:       "NTA",
		CustomerName:     "R. Kulkarni",
		LoyaltyCard:      &card,
		AdjustedSubtotal: decimal.RequireFromString("112000.00"),
		CGST:             decimal.RequireFromString("6720.00"),
		SGST:             decimal.RequireFromString("6720.00"),
		FinalAmount:      decimal.RequireFromString("125440.00"),
		PointsAccrued:    5600,
		CreatedAt:        time.Date(2025, 8, 14, 18, 30, 0, 0, time.UTC),
		Lines: []OrderLine{
			{ProductName: "Progressive Pair", UnitPrice: decimal.RequireFromString("112000.00"), Quantity: 1},
		},
	}

	out := p.Render(order)
	require.Contains(t, out, "Drishti Opticals")
	require.Contains(t, out, "2571")
	// en-IN grouping: lakh separators, not thousands.
	require.Contains(t, out, "1,12,000.00")
	require.Contains(t, out, "1,25,440.00")
	require.Contains(t, out, "Points earned")
}

func TestReceiptShowsAdvanceAndDueDateForWorkOrders(t *testing.T) {
	p := NewReceiptPrinter("Drishti Opticals")

	due := time.Date(2025, 8, 21, 0, 0, 0, 0, time.UTC)
	order := &Order{
		Number:           "WO(NTA)-1481-2025-26",
		Kind:             KindWork,
		BranchCode:       "NTA",
		CustomerName:     "M. Joshi",
		AdjustedSubtotal: decimal.RequireFromString("2000.00"),
		AdvancePaid:      decimal.RequireFromString("500.00"),
		CGST:             decimal.RequireFromString("90.00"),
		SGST:             decimal.RequireFromString("90.00"),
		FinalAmount:      decimal.RequireFromString("1680.00"),
		DueDate:          &due,
		CreatedAt:        time.Date(2025, 8, 14, 11, 0, 0, 0, time.UTC),
	}

	out := p.Render(order)
	require.Contains(t, out, "WO(NTA)-1481-2025-26")
	require.Contains(t, out, "Advance paid")
	require.Contains(t, out, "21-08-2025")
	require.NotContains(t, out, "Privilege points")
}
