package util

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Placeholder is shown for values that are not available.
const Placeholder = "—"

// FormatCurrency renders a dollar amount with two decimals; negatives get a
// leading minus sign before the dollar sign.
func FormatCurrency(v *decimal.Decimal) string {
	if v == nil {
		return Placeholder
	}
	abs := v.Abs().StringFixed(2)
	if v.IsNegative() {
		return "−$" + abs
	}
	return "$" + abs
}

// FormatElapsed renders seconds since the start of the observation window
// as "Hh Mm".
func FormatElapsed(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second))
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	return fmt.Sprintf("%dh %dm", h, m)
}
