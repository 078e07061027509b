package utils

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatRUB formats a money amount as a string like "12 500.00".
// Uses a space as thousands separator and always two fraction digits.
func FormatRUB(amount decimal.Decimal) string {
	s := amount.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")
	if len(intPart) <= 3 {
		if neg {
			return "-" + s
		}
		return s
	}

	var b strings.Builder
	// Pre-allocate: digits + separators + sign + fraction
	b.Grow(len(intPart) + len(intPart)/3 + len(frac) + 2)
	if neg {
		b.WriteByte('-')
	}

	// Insert separators from the left.
	rem := len(intPart) % 3
	if rem == 0 {
		rem = 3
	}
	b.WriteString(intPart[:rem])
	for i := rem; i < len(intPart); i += 3 {
		b.WriteByte(' ')
		b.WriteString(intPart[i : i+3])
	}
	b.WriteByte('.')
	b.WriteString(frac)

	return b.String()
}
