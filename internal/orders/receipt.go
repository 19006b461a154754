package orders

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const receiptWidth = 42

// ReceiptPrinter renders the plain-text till slip. Amounts use Indian digit
// grouping (1,12,000.00) via the en-IN locale.
type ReceiptPrinter struct {
	shopName string
	printer  *message.Printer
}

// NewReceiptPrinter constructs a printer with the configured shop banner.
func NewReceiptPrinter(shopName string) *ReceiptPrinter {
	return &ReceiptPrinter{
		shopName: shopName,
		printer:  message.NewPrinter(language.MustParse("en-IN")),
	}
}

func (p *ReceiptPrinter) amount(d decimal.Decimal) string {
	f, _ := d.Float64()
	return p.printer.Sprintf("%v", number.Decimal(f,
		number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}

func line(label, value string) string {
	pad := receiptWidth - len(label) - len(value)
	if pad < 1 {
		pad = 1
	}
	return label + strings.Repeat(" ", pad) + value + "\n"
}

// Render builds the till slip for one order.
func (p *ReceiptPrinter) Render(o *Order) string {
	var b strings.Builder
	rule := strings.Repeat("-", receiptWidth) + "\n"

	b.WriteString(center(p.shopName) + "\n")
	b.WriteString(center("Branch: "+o.BranchCode) + "\n")
	b.WriteString(rule)
	b.WriteString(line("Order", o.Number))
	b.WriteString(line("Type", string(o.Kind)))
	b.WriteString(line("Customer", o.CustomerName))
	b.WriteString(line("Date", o.CreatedAt.Format("02-01-2006 15:04")))
	if o.DueDate != nil {
		b.WriteString(line("Due", o.DueDate.Format("02-01-2006")))
	}
	b.WriteString(rule)
	for _, item := range o.Lines {
		b.WriteString(item.ProductName + "\n")
		qty := fmt.Sprintf("  %d x %s", item.Quantity, p.amount(item.UnitPrice))
		total := p.amount(item.UnitPrice.Mul(decimal.NewFromInt(item.Quantity)))
		b.WriteString(line(qty, total))
	}
	b.WriteString(rule)
	b.WriteString(line("Subtotal", p.amount(o.AdjustedSubtotal)))
	if o.AdvancePaid.IsPositive() {
		b.WriteString(line("Advance paid", "-"+p.amount(o.AdvancePaid)))
	}
	if o.DiscountApplied.IsPositive() {
		b.WriteString(line("Discount", "-"+p.amount(o.DiscountApplied)))
	}
	if o.PrivilegeDiscount.IsPositive() {
		b.WriteString(line("Privilege points", "-"+p.amount(o.PrivilegeDiscount)))
	}
	b.WriteString(line("CGST @6%", p.amount(o.CGST)))
	b.WriteString(line("SGST @6%", p.amount(o.SGST)))
	b.WriteString(rule)
	b.WriteString(line("TOTAL", p.amount(o.FinalAmount)))
	if o.LoyaltyCard != nil {
		b.WriteString(rule)
		b.WriteString(line("Card", *o.LoyaltyCard))
		if o.PointsRedeemed > 0 {
			b.WriteString(line("Points redeemed", fmt.Sprintf("%d", o.PointsRedeemed)))
		}
		b.WriteString(line("Points earned", fmt.Sprintf("%d", o.PointsAccrued)))
	}
	b.WriteString(rule)
	b.WriteString(center("Thank you, visit again") + "\n")
	return b.String()
}

func center(s string) string {
	if len(s) >= receiptWidth {
		return s
	}
	pad := (receiptWidth - len(s)) / 2
	return strings.Repeat(" ", pad) + s
}
