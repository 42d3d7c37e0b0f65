package dataset

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var currencyReplacer = strings.NewReplacer("$", "", ",", "")

// ParseCurrency converts a currency string such as "$1,234.50" or "-$77.00"
// to a float. Text that does not parse yields 0.
func ParseCurrency(s string) float64 {
	s = strings.TrimSpace(currencyReplacer.Replace(s))
	if s == "" {
		return 0
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	f, _ := d.Float64()
	if math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Round rounds v half away from zero to places decimals.
func Round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}
