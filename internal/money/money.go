// Package money carries amounts as integer paise. Conversion to rupees happens
// only for display.
package money

import (
	"github.com/shopspring/decimal"
)

const Symbol = "₹"

// Paise is the wire and storage representation of every amount.
type Paise int64

// Rupees returns the decimal rupee value; display only.
func (p Paise) Rupees() decimal.Decimal {
	return decimal.New(int64(p), -2)
}

// Format renders p/100 with exactly two decimals and the rupee symbol, e.g.
// "₹1250.50" or "-₹0.05".
func Format(p Paise) string {
	r := p.Rupees()
	sign := ""
	if r.IsNegative() {
		sign = "-"
	}
	return sign + Symbol + r.Abs().StringFixed(2)
}

func (p Paise) String() string { return Format(p) }
