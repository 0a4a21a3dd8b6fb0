// Package core provides the record model and the pure calculators that
// derive dashboard figures from a record snapshot.
//
// This file contains helpers for turning loosely formatted spreadsheet
// cells into decimal amounts.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// SanitizeAmount parses a monetary cell value.
//
// Every character other than digits, '.' and '-' is stripped before
// parsing, so currency symbols, thousands separators and stray spaces are
// tolerated. Anything that still fails to parse yields zero.
//
// Examples:
//
//	SanitizeAmount("₹1,250.50") -> 1250.50
//	SanitizeAmount(" 300 ")     -> 300
//	SanitizeAmount("-42.1")     -> -42.1
//	SanitizeAmount("n/a")       -> 0
func SanitizeAmount(s string) decimal.Decimal {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			return r
		}
		return -1
	}, s)
	if cleaned == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// NonNegative clamps negative amounts to zero.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// percentOf returns part/whole*100 rounded to one decimal place, or zero
// when whole is zero.
func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Mul(decimal.NewFromInt(100)).Div(whole).Round(1)
}
