// Package money implements decimal arithmetic for invoice amounts.
// All computations run on shopspring decimals; callers are responsible
// for validating rates and signs before calling in.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var oneHundred = decimal.NewFromInt(100)

// LineTotal computes quantity multiplied by unit price. Quantity is a
// non-negative integer count; zero yields a zero total.
func LineTotal(quantity int64, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(quantity))
}

// TaxAmount computes base * ratePercent / 100 rounded half-up to two
// decimal places.
func TaxAmount(base, ratePercent decimal.Decimal) decimal.Decimal {
	return base.Mul(ratePercent).Div(oneHundred).Round(2)
}

// Sum adds the given amounts without floating-point drift.
func Sum(amounts []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// Format renders an amount with its currency for human-facing text,
// e.g. "USD 2,288.00". Unknown currency codes fall back to a plain
// "CODE amount" string.
func Format(code string, amount decimal.Decimal) string {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return strings.ToUpper(code) + " " + amount.StringFixed(2)
	}
	p := message.NewPrinter(language.English)
	f, _ := amount.Round(2).Float64()
	return p.Sprintf("%s %.2f", unit.String(), f)
}
