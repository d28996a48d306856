// Package core holds the budget tracker's domain types and their validation.
//
// This file contains amount parsing and formatting. Amounts are decimals
// rounded to cents; a float never touches a stored value.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user supplied decimal string to an amount.
//
// The decimal separator is a dot. Commas are accepted only as thousands
// separators in groups of three, and a leading "$" is allowed, so the output
// of FormatAmount parses back. The result is rounded half-up to two decimal
// places. Signs, empty input and zero are rejected.
//
// Examples:
//
//	ParseAmount("12.34")     -> 12.34, nil
//	ParseAmount("$1,250.00") -> 1250, nil
//	ParseAmount("12.345")    -> 12.35, nil
//	ParseAmount("12,34")     -> 0, ErrInvalidAmount
//	ParseAmount("-1")        -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "$")
	if s == "" || strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.ContainsAny(s, "eE") {
		return decimal.Zero, ErrInvalidAmount
	}
	s, err := stripThousands(s)
	if err != nil {
		return decimal.Zero, err
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	d = d.Round(2)
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// stripThousands removes comma group separators from the integer part. The
// first group has one to three digits and every later group exactly three.
func stripThousands(s string) (string, error) {
	intPart, frac, hasFrac := strings.Cut(s, ".")
	if !strings.Contains(intPart, ",") {
		if strings.Contains(frac, ",") {
			return "", fmt.Errorf("%w: comma after the decimal point", ErrInvalidAmount)
		}
		return s, nil
	}
	groups := strings.Split(intPart, ",")
	for i, g := range groups {
		if (i == 0 && (len(g) == 0 || len(g) > 3)) || (i > 0 && len(g) != 3) {
			return "", fmt.Errorf("%w: misplaced thousands separator in %q", ErrInvalidAmount, s)
		}
	}
	out := strings.Join(groups, "")
	if hasFrac {
		out += "." + frac
	}
	return out, nil
}

// ValidateAmount enforces the positive-amount invariant.
func ValidateAmount(d decimal.Decimal) error {
	if !d.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// FormatAmount renders a dollar amount with two decimals, e.g. "$1,250.00".
func FormatAmount(d decimal.Decimal) string {
	neg := d.IsNegative()
	s := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := "$" + b.String() + "." + frac
	if neg {
		return "-" + out
	}
	return out
}
