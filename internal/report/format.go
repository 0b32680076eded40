// Package report derives summary statistics over the (possibly filtered)
// inventory and lays them out as a paginated, renderer-agnostic document.
// Every aggregate takes the same filter set as the paginated inventory view,
// so a report generated while filters are active covers exactly the subset
// the user is looking at.
package report

import (
	"math"
	"strconv"
	"strings"
)

// StockPercentage returns the in-stock share of total as a percentage
// truncated to two decimals. Truncation, not rounding: 519 of 521 is 99.61
// even though the raw ratio rounds to 99.62. Zero total yields 0.
func StockPercentage(inStock, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Trunc(float64(inStock)/float64(total)*10000) / 100
}

// FormatCurrency renders an amount with two decimals only when it has a
// fractional component, and none otherwise: 1250 -> "1250", 99.5 -> "99.50".
func FormatCurrency(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// FormatPercent renders a percentage with its two truncated decimals and a
// trailing percent sign.
func FormatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64) + "%"
}

// Ellipsize fits s into width runes, replacing the overflow with a single
// ellipsis rune. Widths below 1 return the empty string.
func Ellipsize(s string, width int) string {
	if width < 1 {
		return ""
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}

// pad right-pads s with spaces to exactly width runes, ellipsizing first
// when s is too long. Used for fixed-width report columns.
func pad(s string, width int) string {
	s = Ellipsize(s, width)
	if n := width - len([]rune(s)); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}
