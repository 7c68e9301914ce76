package invoices

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/invora-hq/invora/internal/money"
	"github.com/invora-hq/invora/internal/platform/httpx"
)

var maxTaxRate = decimal.NewFromInt(50)

// Recalculate rederives every stored amount of the invoice from its
// items and payments. It is idempotent: running it twice in a row
// leaves the invoice unchanged.
//
// Status transitions only ever move forward here. Full payment of a
// non-zero total marks the invoice paid; any payment marks a draft as
// sent; removing payments never reverts a status.
func Recalculate(inv *Invoice) error {
	if err := validateAmounts(inv); err != nil {
		return err
	}

	lineTotals := make([]decimal.Decimal, len(inv.Items))
	for i := range inv.Items {
		inv.Items[i].LineTotal = money.LineTotal(inv.Items[i].Quantity, inv.Items[i].UnitPrice)
		lineTotals[i] = inv.Items[i].LineTotal
	}
	inv.Subtotal = money.Sum(lineTotals)
	inv.TaxTotal = money.TaxAmount(inv.Subtotal, inv.TaxRate)
	inv.Total = inv.Subtotal.Add(inv.TaxTotal)

	amounts := make([]decimal.Decimal, len(inv.Payments))
	for i, p := range inv.Payments {
		amounts[i] = p.Amount
	}
	inv.AmountPaid = money.Sum(amounts)

	switch {
	case inv.AmountPaid.GreaterThanOrEqual(inv.Total) && inv.Total.IsPositive():
		inv.Status = StatusPaid
	case inv.AmountPaid.IsPositive():
		inv.Status = StatusSent
	}
	return nil
}

// validateAmounts rejects the whole operation on any invalid figure;
// no partial recalculation is applied.
func validateAmounts(inv *Invoice) error {
	var fields []httpx.FieldError
	if inv.TaxRate.IsNegative() || inv.TaxRate.GreaterThan(maxTaxRate) {
		fields = append(fields, httpx.FieldError{Field: "tax_rate", Message: "must be between 0 and 50"})
	}
	for i, item := range inv.Items {
		if item.Quantity < 0 {
			fields = append(fields, httpx.FieldError{
				Field:   fmt.Sprintf("items[%d].quantity", i),
				Message: "must be greater than or equal to 0",
			})
		}
		if item.UnitPrice.IsNegative() {
			fields = append(fields, httpx.FieldError{
				Field:   fmt.Sprintf("items[%d].unit_price", i),
				Message: "must be greater than or equal to 0",
			})
		}
	}
	for i, p := range inv.Payments {
		if !p.Amount.IsPositive() {
			fields = append(fields, httpx.FieldError{
				Field:   fmt.Sprintf("payments[%d].amount", i),
				Message: "must be greater than 0",
			})
		}
	}
	if len(fields) > 0 {
		return httpx.NewValidationError(fields...)
	}
	return nil
}
