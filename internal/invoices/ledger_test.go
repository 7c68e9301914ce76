package invoices

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invora-hq/invora/internal/platform/httpx"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func twoLineInvoice() Invoice {
	return Invoice{
		Status:  StatusDraft,
		TaxRate: dec("10"),
		Items: []Item{
			{Quantity: 4, UnitPrice: dec("320.00")},
			{Quantity: 2, UnitPrice: dec("400.00")},
		},
	}
}

func TestRecalculateTotals(t *testing.T) {
	inv := twoLineInvoice()
	require.NoError(t, Recalculate(&inv))

	assert.True(t, inv.Items[0].LineTotal.Equal(dec("1280.00")), "line 0 = %s", inv.Items[0].LineTotal)
	assert.True(t, inv.Items[1].LineTotal.Equal(dec("800.00")), "line 1 = %s", inv.Items[1].LineTotal)
	assert.True(t, inv.Subtotal.Equal(dec("2080.00")), "subtotal = %s", inv.Subtotal)
	assert.True(t, inv.TaxTotal.Equal(dec("208.00")), "tax = %s", inv.TaxTotal)
	assert.True(t, inv.Total.Equal(dec("2288.00")), "total = %s", inv.Total)
	assert.Equal(t, StatusDraft, inv.Status)
}

func TestRecalculateAcceptsZeroQuantity(t *testing.T) {
	// A zero-quantity line is a priced placeholder; it contributes
	// nothing but does not invalidate the invoice.
	inv := Invoice{
		Status:  StatusDraft,
		TaxRate: dec("0"),
		Items: []Item{
			{Quantity: 0, UnitPrice: dec("25.00")},
			{Quantity: 8, UnitPrice: dec("25.00")},
		},
	}
	require.NoError(t, Recalculate(&inv))

	assert.True(t, inv.Items[0].LineTotal.IsZero(), "line 0 = %s", inv.Items[0].LineTotal)
	assert.True(t, inv.Subtotal.Equal(dec("200.00")), "subtotal = %s", inv.Subtotal)
	assert.True(t, inv.Total.Equal(dec("200.00")), "total = %s", inv.Total)
}

func TestRecalculateRoundsTaxToCents(t *testing.T) {
	inv := Invoice{
		Status:  StatusDraft,
		TaxRate: dec("7.5"),
		Items:   []Item{{Quantity: 3, UnitPrice: dec("33.33")}},
	}
	require.NoError(t, Recalculate(&inv))

	// 99.99 * 7.5% = 7.49925 -> 7.50
	assert.True(t, inv.TaxTotal.Equal(dec("7.50")), "tax = %s", inv.TaxTotal)
	assert.True(t, inv.Total.Equal(dec("107.49")), "total = %s", inv.Total)
}

func TestRecalculatePartialPaymentMarksSent(t *testing.T) {
	inv := twoLineInvoice()
	inv.Payments = []Payment{{Amount: dec("1000.00")}}
	require.NoError(t, Recalculate(&inv))

	assert.True(t, inv.AmountPaid.Equal(dec("1000.00")))
	assert.Equal(t, StatusSent, inv.Status)
}

func TestRecalculateFullPaymentMarksPaid(t *testing.T) {
	inv := twoLineInvoice()
	inv.Payments = []Payment{
		{Amount: dec("1000.00")},
		{Amount: dec("1288.00")},
	}
	require.NoError(t, Recalculate(&inv))

	assert.True(t, inv.AmountPaid.Equal(dec("2288.00")))
	assert.Equal(t, StatusPaid, inv.Status)
}

func TestRecalculateOverpaymentMarksPaid(t *testing.T) {
	inv := twoLineInvoice()
	inv.Payments = []Payment{{Amount: dec("5000.00")}}
	require.NoError(t, Recalculate(&inv))

	assert.Equal(t, StatusPaid, inv.Status)
	assert.True(t, inv.Balance().IsNegative())
}

func TestRecalculateZeroTotalNeverPaid(t *testing.T) {
	inv := Invoice{Status: StatusDraft, TaxRate: dec("0")}
	require.NoError(t, Recalculate(&inv))
	assert.Equal(t, StatusDraft, inv.Status)
	assert.True(t, inv.Total.IsZero())
}

func TestRecalculateKeepsPaidWithoutPayments(t *testing.T) {
	// A paid invoice whose payments were all removed keeps its status;
	// recalculation never moves a status backwards.
	inv := twoLineInvoice()
	inv.Status = StatusPaid
	require.NoError(t, Recalculate(&inv))

	assert.True(t, inv.AmountPaid.IsZero())
	assert.Equal(t, StatusPaid, inv.Status)
}

func TestRecalculateLeavesCancelledAlone(t *testing.T) {
	inv := twoLineInvoice()
	inv.Status = StatusCancelled
	require.NoError(t, Recalculate(&inv))
	assert.Equal(t, StatusCancelled, inv.Status)
}

func TestRecalculateIsIdempotent(t *testing.T) {
	inv := twoLineInvoice()
	inv.Payments = []Payment{{Amount: dec("500.00")}}
	require.NoError(t, Recalculate(&inv))
	snapshot := inv

	require.NoError(t, Recalculate(&inv))
	assert.True(t, inv.Subtotal.Equal(snapshot.Subtotal))
	assert.True(t, inv.TaxTotal.Equal(snapshot.TaxTotal))
	assert.True(t, inv.Total.Equal(snapshot.Total))
	assert.True(t, inv.AmountPaid.Equal(snapshot.AmountPaid))
	assert.Equal(t, snapshot.Status, inv.Status)
}

func TestRecalculateRejectsInvalidAmounts(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Invoice)
	}{
		{"negative quantity", func(inv *Invoice) { inv.Items[0].Quantity = -2 }},
		{"negative unit price", func(inv *Invoice) { inv.Items[1].UnitPrice = dec("-1") }},
		{"negative tax rate", func(inv *Invoice) { inv.TaxRate = dec("-0.01") }},
		{"tax rate above cap", func(inv *Invoice) { inv.TaxRate = dec("50.01") }},
		{"zero payment", func(inv *Invoice) { inv.Payments = []Payment{{Amount: dec("0")}} }},
		{"negative payment", func(inv *Invoice) { inv.Payments = []Payment{{Amount: dec("-10")}} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			inv := twoLineInvoice()
			tc.mutate(&inv)
			err := Recalculate(&inv)
			assert.ErrorIs(t, err, httpx.ErrValidation)
			// Nothing is applied on failure.
			assert.True(t, inv.Subtotal.IsZero())
			assert.True(t, inv.Total.IsZero())
		})
	}
}
