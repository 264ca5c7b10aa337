package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseLocaleFloat converts a source-locale numeral to a float. The exchange
// formats numbers with "." as the thousands separator and "," as the decimal
// separator, e.g. "1.234,56". Both the synchronizer cleanup and the
// consolidation re-cleanup go through this single function.
func ParseLocaleFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty numeric cell")
	}
	normalized := strings.ReplaceAll(s, ".", "")
	normalized = strings.ReplaceAll(normalized, ",", ".")
	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", s, err)
	}
	return d.InexactFloat64(), nil
}

// FormatLocaleFloat renders a float back in the source-locale form, so that
// ParseLocaleFloat(FormatLocaleFloat(v)) == v.
func FormatLocaleFloat(v float64) string {
	s := decimal.NewFromFloat(v).String()
	whole, frac, hasFrac := strings.Cut(s, ".")
	neg := strings.HasPrefix(whole, "-")
	if neg {
		whole = whole[1:]
	}
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	out := b.String()
	if hasFrac {
		out += "," + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}
