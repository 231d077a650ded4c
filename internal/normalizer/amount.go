package normalizer

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var nonAmountChars = regexp.MustCompile(`[^\d.-]`)

// ParseAmount reads an amount written with "." as thousands separator and ","
// as decimal separator. Anything that does not parse is zero.
func ParseAmount(raw string) decimal.Decimal {
	d, _ := parseAmount(raw)
	return d
}

// parseAmount is ParseAmount that also reports whether raw held a number.
func parseAmount(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	s = nonAmountChars.ReplaceAllString(s, "")
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// parseRawNumber reads a machine-formatted number such as a numeric
// spreadsheet cell and falls back to ParseAmount.
func parseRawNumber(raw string) (decimal.Decimal, bool) {
	if d, err := decimal.NewFromString(strings.TrimSpace(raw)); err == nil {
		return d, true
	}
	return parseAmount(raw)
}
