package units

import (
	"fmt"
	"math"
	"strconv"
)

const fractionTolerance = 0.01

var fractions = []struct {
	value float64
	glyph string
}{
	{0.5, "½"},
	{0.25, "¼"},
	{0.75, "¾"},
	{1.0 / 3, "⅓"},
	{2.0 / 3, "⅔"},
}

// FormatQuantity renders a display quantity with its unit. Whole numbers are
// printed as integers, common culinary fractions as glyphs, amounts below one
// with up to two decimals rounded up, anything else with one decimal.
func FormatQuantity(qty float64, unit string) string {
	return withUnit(formatNumber(qty), unit)
}

// FormatDisplay converts then formats in one go.
func FormatDisplay(articleName, recipeUnit string, qty float64) string {
	q, u := ToDisplayUnit(articleName, recipeUnit, qty)
	return FormatQuantity(q, u)
}

func formatNumber(qty float64) string {
	whole, frac := math.Modf(qty)
	if frac == 0 {
		return fmt.Sprintf("%d", int64(whole))
	}
	if qty > 0 {
		for _, f := range fractions {
			if math.Abs(frac-f.value) < fractionTolerance {
				if whole == 0 {
					return f.glyph
				}
				return fmt.Sprintf("%d%s", int64(whole), f.glyph)
			}
		}
	}
	if qty > 0 && qty < 1 {
		// Never display less than what has to be bought.
		cents := math.Ceil(qty*100 - 1e-9)
		return strconv.FormatFloat(cents/100, 'f', -1, 64)
	}
	return fmt.Sprintf("%.1f", qty)
}

func withUnit(number, unit string) string {
	if unit == "" {
		return number
	}
	return number + " " + unit
}

// StepFor returns the increment used when a shopper nudges a quantity.
func StepFor(unit string) float64 {
	switch unit {
	case Kilogram, "l", Liter:
		return 0.1
	case Gram, Milliliter:
		return 50
	case Centiliter:
		return 5
	default:
		return 1
	}
}
