package balance

import (
	"math/big"
	"sort"

	"github.com/shopspring/decimal"
)

var (
	oneCent  = decimal.RequireFromString("0.01")
	thousand = decimal.NewFromInt(1000)
	million  = decimal.NewFromInt(1_000_000)
)

// FormatADA renders an ADA amount for display: "0.00", "< 0.01", four
// decimals under 1, two decimals under 1000, then K and M suffixes.
func FormatADA(ada decimal.Decimal) string {
	switch {
	case ada.IsZero():
		return "0.00"
	case ada.LessThan(oneCent):
		return "< 0.01"
	case ada.LessThan(decimal.NewFromInt(1)):
		return ada.StringFixed(4)
	case ada.LessThan(thousand):
		return ada.StringFixed(2)
	case ada.LessThan(million):
		return ada.Div(thousand).StringFixed(2) + "K"
	default:
		return ada.Div(million).StringFixed(2) + "M"
	}
}

// Formatted is FormatADA over the exact lovelace amount.
func (w WalletBalance) Formatted() string {
	l, ok := new(big.Int).SetString(w.Lovelace, 10)
	if !ok {
		return "0.00"
	}
	return FormatADA(decimal.NewFromBigInt(l, -6))
}

func sortAssets(assets []AssetInfo) {
	sort.Slice(assets, func(i, j int) bool {
		if assets[i].PolicyID != assets[j].PolicyID {
			return assets[i].PolicyID < assets[j].PolicyID
		}
		return assets[i].AssetName < assets[j].AssetName
	})
}
