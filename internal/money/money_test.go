package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestLineTotal(t *testing.T) {
	cases := []struct {
		name     string
		quantity int64
		price    string
		want     string
	}{
		{"simple", 4, "120.00", "480.00"},
		{"zero quantity", 0, "99.99", "0.00"},
		{"cent precision", 3, "0.10", "0.30"},
		{"large", 20, "80.00", "1600.00"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := LineTotal(tc.quantity, dec(tc.price))
			require.True(t, got.Equal(dec(tc.want)), "got %s want %s", got, tc.want)
		})
	}
}

func TestTaxAmount(t *testing.T) {
	cases := []struct {
		name string
		base string
		rate string
		want string
	}{
		{"ten percent", "2080.00", "10", "208.00"},
		{"zero rate", "500.00", "0", "0.00"},
		{"rounds half up", "100.05", "10", "10.01"},
		{"fractional rate", "1000.00", "7.5", "75.00"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := TaxAmount(dec(tc.base), dec(tc.rate))
			require.True(t, got.Equal(dec(tc.want)), "got %s want %s", got, tc.want)
		})
	}
}

func TestSumNoDrift(t *testing.T) {
	// 0.1 summed ten thousand times must be exactly 1000.
	amounts := make([]decimal.Decimal, 10000)
	tenth := dec("0.1")
	for i := range amounts {
		amounts[i] = tenth
	}
	require.True(t, Sum(amounts).Equal(dec("1000")))
}

func TestSumEmpty(t *testing.T) {
	require.True(t, Sum(nil).IsZero())
}

func TestFormat(t *testing.T) {
	require.Equal(t, "USD 2,288.00", Format("USD", dec("2288.00")))
	require.Equal(t, "ZZ 15.50", Format("zz", dec("15.5")))
}
