package validation

import (
	"regexp"

	"github.com/shopspring/decimal"
)

// HH:MM, 24-hour.
var clockRe = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):[0-5][0-9]$`)

// IsValidClock reports whether s is a HH:MM 24-hour time string.
func IsValidClock(s string) bool {
	return clockRe.MatchString(s)
}

// IsPositiveAmount reports whether a is strictly positive. Zero and negative
// amounts are rejected before any atomic unit opens.
func IsPositiveAmount(a decimal.Decimal) bool {
	return a.IsPositive()
}

// IsValidTenure bounds a plan tenure in months.
func IsValidTenure(months int) bool {
	return months >= 1 && months <= 120
}
