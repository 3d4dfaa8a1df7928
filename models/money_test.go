package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		amount   string
		currency string
		want     string
	}{
		{"10", "USD", "10.00"},
		{"10.5", "usd", "10.50"},
		{"1234.567", "EUR", "1234.57"},
		{"1500", "JPY", "1500"},
		{"0", "GBP", "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.amount+"_"+tt.currency, func(t *testing.T) {
			got := FormatAmount(decimal.RequireFromString(tt.amount), tt.currency)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAmount(t *testing.T) {
	assert.True(t, ParseAmount(" 12.30 ").Equal(decimal.RequireFromString("12.3")))
	assert.True(t, ParseAmount("abc").IsZero())
	assert.True(t, ParseAmount("").IsZero())
}
