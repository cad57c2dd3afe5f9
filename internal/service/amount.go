package service

import (
	"strings"

	"github.com/shopspring/decimal"
)

var thousandsSeparators = strings.NewReplacer(".", "", ",", "", " ", "", "\u00a0", "")

// NormalizeAmount turns a user-typed rupiah amount such as "50.000",
// "50,000" or "Rp 50.000" into a number. Rupiah has no minor unit, so every
// dot and comma is treated as a thousands separator.
func NormalizeAmount(input string) (decimal.Decimal, error) {
	s := strings.TrimSpace(input)
	if len(s) >= 2 && strings.EqualFold(s[:2], "rp") {
		s = s[2:]
	}
	s = thousandsSeparators.Replace(s)
	if s == "" {
		return decimal.Zero, badRequest("amount is required")
	}

	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, badRequest("amount %q is not a number", input)
	}
	return amount, nil
}
