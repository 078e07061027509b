package pricing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"luch-agregator/models"
)

var (
	// ErrInvalidPrice is returned for price strings that do not parse as a decimal
	ErrInvalidPrice = errors.New("invalid price")
	// ErrNegativePrice is returned for prices below zero
	ErrNegativePrice = errors.New("negative price")
)

// ParsePrice parses a user supplied price. Comma is accepted as decimal separator.
func ParsePrice(s string) (decimal.Decimal, error) {
	normalized := cleanPrice(s)
	if normalized == "" {
		return decimal.Zero, fmt.Errorf("%w: empty value", ErrInvalidPrice)
	}
	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidPrice, s)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrNegativePrice, s)
	}
	return d, nil
}

// NormalizePrice returns the canonical stored form of a valid price string:
// trimmed, without spaces, with a dot as decimal separator
func NormalizePrice(s string) (string, error) {
	if _, err := ParsePrice(s); err != nil {
		return "", err
	}
	return cleanPrice(s), nil
}

func cleanPrice(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	return strings.ReplaceAll(s, " ", "")
}

// EffectiveUnitPrice resolves the price used for a line item.
// A nil or empty override means the catalog price. An invalid override also falls back
// to the catalog price and the parse error is returned so the caller can warn about it.
func EffectiveUnitPrice(override *string, catalogPrice decimal.Decimal) (price decimal.Decimal, overridden bool, err error) {
	if override == nil || strings.TrimSpace(*override) == "" {
		return catalogPrice, false, nil
	}
	d, err := ParsePrice(*override)
	if err != nil {
		return catalogPrice, false, err
	}
	return d, true, nil
}

// LineTotal multiplies the unit price by the quantity without rounding
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// Total sums the line totals of the given items without intermediate rounding
func Total(items []models.LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal)
	}
	return total
}

// FormatAmount renders a money amount with exactly two fraction digits
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
