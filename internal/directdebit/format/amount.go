package format

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid_amount")

// ParseAmount reads a locale-formatted currency amount. Bank files mix
// dot-decimal ("1000.00"), comma-decimal ("1.234,56") and prefixed forms
// ("ARS 1.000,50", "$ 1000"). When both separators appear the rightmost one
// is the decimal mark; a lone separator followed by exactly three digits is
// a thousands mark.
func ParseAmount(input string) (decimal.Decimal, error) {
	cleaned := stripAmountNoise(input)
	if cleaned == "" {
		return decimal.Zero, ErrInvalidAmount
	}

	lastDot := strings.LastIndexByte(cleaned, '.')
	lastComma := strings.LastIndexByte(cleaned, ',')

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case lastComma >= 0:
		cleaned = resolveLoneSeparator(cleaned, ',')
	case lastDot >= 0:
		cleaned = resolveLoneSeparator(cleaned, '.')
	}

	value, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return value, nil
}

// FormatAmount renders an amount the way outbound files carry it: fixed two
// decimal places, dot decimal mark, no thousands separators.
func FormatAmount(value decimal.Decimal) string {
	return value.StringFixed(2)
}

func stripAmountNoise(input string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(input) {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',':
			b.WriteRune(r)
		case r == '-' && b.Len() == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// resolveLoneSeparator decides whether a single separator kind is a decimal
// or thousands mark. Multiple occurrences ("1.234.567") are always grouping.
func resolveLoneSeparator(cleaned string, sep byte) string {
	sepStr := string(sep)
	if strings.Count(cleaned, sepStr) > 1 {
		return strings.ReplaceAll(cleaned, sepStr, "")
	}
	idx := strings.IndexByte(cleaned, sep)
	trailing := len(cleaned) - idx - 1
	if trailing == 3 {
		return strings.ReplaceAll(cleaned, sepStr, "")
	}
	if sep == ',' {
		return strings.Replace(cleaned, sepStr, ".", 1)
	}
	return cleaned
}
