package invoices

import (
	"github.com/shopspring/decimal"
)

// DefaultTaxRate is the Venezuelan general IVA rate.
var DefaultTaxRate = decimal.RequireFromString("0.16")

// Totals holds the monetary summary of an invoice.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"impuesto"`
	Total    decimal.Decimal `json:"total"`
}

// CalculateTotals sums price*quantity over lines and applies taxRate.
// Subtotal and tax are rounded half-up to cents before the total is formed,
// so total always equals subtotal + tax as printed.
func CalculateTotals(lines []Line, taxRate decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Total())
	}
	subtotal = subtotal.Round(2)
	tax := subtotal.Mul(taxRate).Round(2)
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}

// SumPayments adds up payment amounts.
func SumPayments(payments []Payment) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range payments {
		sum = sum.Add(p.Amount)
	}
	return sum
}

// CheckPayments validates new payment amounts against what is still owed.
func CheckPayments(total, alreadyPaid decimal.Decimal, amounts []decimal.Decimal) (decimal.Decimal, error) {
	paid := alreadyPaid
	for _, a := range amounts {
		if !a.IsPositive() {
			return paid, ErrInvalidAmount
		}
		paid = paid.Add(a)
	}
	if paid.GreaterThan(total) {
		return paid, ErrOverpayment
	}
	return paid, nil
}

// StatusFor derives the payment status of a non-voided invoice.
func StatusFor(total, paid decimal.Decimal) Status {
	if paid.GreaterThanOrEqual(total) {
		return StatusPaid
	}
	return StatusPending
}
