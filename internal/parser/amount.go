package parser

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// parseAmount interprets a spoken or typed money amount. Both decimal
// separator conventions are accepted: "1,234.56" and "1.234,56" mean the same
// value, and a lone comma or period followed by one or two digits is a decimal
// separator ("45,50" == "45.50"). A separator followed by exactly three digits
// with no other separator present is treated as a thousands separator.
func parseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	for _, sym := range []string{"$", "€", "£", "usd", "eur", "mxn"} {
		s = strings.ReplaceAll(s, sym, "")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		// Whichever separator occurs last is the decimal point.
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		s = resolveSingleSeparator(s, ",")
	case lastDot >= 0:
		s = resolveSingleSeparator(s, ".")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", raw, err)
	}
	return d, nil
}

// resolveSingleSeparator decides whether the only separator kind present is a
// decimal point or a thousands separator, and rewrites the string to use "."
// for the decimal case.
func resolveSingleSeparator(s, sep string) string {
	trailing := len(s) - strings.LastIndex(s, sep) - 1
	if strings.Count(s, sep) == 1 && trailing >= 1 && trailing <= 2 {
		return strings.Replace(s, sep, ".", 1)
	}
	return strings.ReplaceAll(s, sep, "")
}
