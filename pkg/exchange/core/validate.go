package core

import (
	"fmt"
	"math"
	"strings"
)

// ValidRate reports whether r can be used as an exchange rate.
// Zero, negative, NaN and infinite values count as absent.
func ValidRate(r float64) bool {
	return !math.IsNaN(r) && !math.IsInf(r, 0) && r > 0
}

// ValidAmount reports whether amount can be converted.
func ValidAmount(amount float64) bool {
	return ValidRate(amount)
}

// NormalizeCode trims and uppercases a currency code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ParseCode normalizes code and checks it is 2 to 10 ASCII letters or digits.
func ParseCode(code string) (string, error) {
	c := NormalizeCode(code)
	if len(c) < 2 || len(c) > 10 {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrencyCode, code)
	}
	for _, r := range c {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", fmt.Errorf("%w: %q", ErrInvalidCurrencyCode, code)
		}
	}
	return c, nil
}
