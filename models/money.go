package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// zeroDecimalCurrencies are charged in whole units.
var zeroDecimalCurrencies = map[string]bool{
	"JPY": true,
	"KRW": true,
	"HUF": true,
	"TWD": true,
}

// CurrencyDecimals returns the number of fraction digits used for currency.
func CurrencyDecimals(currency string) int32 {
	if zeroDecimalCurrencies[strings.ToUpper(currency)] {
		return 0
	}
	return 2
}

// FormatAmount renders amount the way the store (and the gateway) print
// totals: fixed decimals, no thousands separator.
func FormatAmount(amount decimal.Decimal, currency string) string {
	return amount.StringFixed(CurrencyDecimals(currency))
}

// ParseAmount reads a gateway-supplied amount. Unparseable input counts as zero.
func ParseAmount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}
