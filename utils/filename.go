package utils

import (
	"fmt"
	"regexp"
	"strconv"
)

var variantPattern = regexp.MustCompile(`^[a-z0-9]+$`)

// OfferFilename builds the download name of a generated offer:
// commercial_offer_<number>.pdf or commercial_offer_<variant>_<number>.docx.
// A nil number is written as "undated".
func OfferFilename(ext, variant string, number *int64) string {
	num := "undated"
	if number != nil {
		num = strconv.FormatInt(*number, 10)
	}
	if variant == "" {
		return fmt.Sprintf("commercial_offer_%s.%s", num, ext)
	}
	return fmt.Sprintf("commercial_offer_%s_%s.%s", variant, num, ext)
}

// IsVariantName reports whether s is a safe template variant name (lowercase letters and digits)
func IsVariantName(s string) bool {
	return variantPattern.MatchString(s)
}
