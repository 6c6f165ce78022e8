package domain

import "github.com/shopspring/decimal"

// RoundDemand rounds a predicted quantity half away from zero to two decimal places.
func RoundDemand(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// FormatDemand renders a predicted quantity with exactly two decimal places.
func FormatDemand(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
