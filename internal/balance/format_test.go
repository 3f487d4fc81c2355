package balance

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatADA(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0.00"},
		{"0.005", "< 0.01"},
		{"0.5", "0.5000"},
		{"0.123456", "0.1235"},
		{"5", "5.00"},
		{"999.994", "999.99"},
		{"1500", "1.50K"},
		{"2500000", "2.50M"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatADA(decimal.RequireFromString(tt.in)))
		})
	}
}

func TestWalletBalance_Formatted(t *testing.T) {
	assert.Equal(t, "5.00", Decode("821a004c4b40").Formatted())
	assert.Equal(t, "0.5000", WalletBalance{Lovelace: "500000"}.Formatted())
	assert.Equal(t, "0.00", WalletBalance{Lovelace: "x"}.Formatted())
}
