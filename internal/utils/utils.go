package utils

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatPrice rounds a price to the tick size
func FormatPrice(price, tickSize float64) float64 {
	return roundToStep(price, tickSize).InexactFloat64()
}

// FormatPriceToString formats a price with the tick size precision
func FormatPriceToString(price, tickSize float64) string {
	return roundToStep(price, tickSize).StringFixed(stepPlaces(tickSize))
}

// FormatQuantity rounds a quantity down to the lot step
func FormatQuantity(qty, stepSize float64) float64 {
	if stepSize <= 0 {
		return qty
	}
	step := decimal.NewFromFloat(stepSize)
	return decimal.NewFromFloat(qty).Div(step).Floor().Mul(step).InexactFloat64()
}

// FormatQuantityToString formats a quantity with the lot step precision
func FormatQuantityToString(qty, stepSize float64) string {
	return decimal.NewFromFloat(FormatQuantity(qty, stepSize)).StringFixed(stepPlaces(stepSize))
}

// ParseFloat parses an exchange numeric string; empty or invalid input yields 0, false
func ParseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	return d.InexactFloat64(), true
}

func roundToStep(v, step float64) decimal.Decimal {
	d := decimal.NewFromFloat(v)
	if step <= 0 {
		return d
	}
	s := decimal.NewFromFloat(step)
	return d.Div(s).Round(0).Mul(s)
}

func stepPlaces(step float64) int32 {
	if step <= 0 {
		return 2
	}
	exp := decimal.NewFromFloat(step).Exponent()
	if exp >= 0 {
		return 0
	}
	return -exp
}
