// Package present renders wallet data for Discord messages.
package present

import (
	"github.com/shopspring/decimal"

	"github.com/Proton-105/arbor-bot/internal/arbor"
)

// FormatAmount scales raw from the smallest unit by precision and prints it without trailing zeros.
func FormatAmount(raw decimal.Decimal, precision int32) string {
	if precision < 0 {
		precision = 0
	}
	return raw.Shift(-precision).Round(precision).String()
}

// FormatUserAmount prints a user-typed amount without trailing zeros.
func FormatUserAmount(amount decimal.Decimal) string {
	return amount.String()
}

// ParseUserAmount parses the amount typed by a user. It must be a positive decimal number that
// converts to a whole count of the smallest unit, so the amount sent is exactly the amount shown.
func ParseUserAmount(text string) (decimal.Decimal, bool) {
	amount, err := decimal.NewFromString(text)
	if err != nil || !amount.IsPositive() {
		return decimal.Decimal{}, false
	}

	scaled := arbor.ScaleAmount(amount)
	if scaled.IsZero() || !scaled.Equal(amount.Shift(arbor.UnitExponent)) {
		return decimal.Decimal{}, false
	}
	return amount, true
}
