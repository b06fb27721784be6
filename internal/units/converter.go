// Package units turns recipe-side quantities into shopper-friendly ones.
package units

import "math"

// Recipe-side units as they are stored on articles.
const (
	Gram        = "g"
	Milliliter  = "ml"
	Centiliter  = "cl"
	Piece       = "pièce(s)"
	Slice       = "tranche(s)"
	Sachet      = "sachet(s)"
	Pinch       = "pincée(s)"
	Tablespoon  = "cuillère(s) à soupe"
	Teaspoon    = "cuillère(s) à café"
	Sprig       = "branche(s)"
	Leaf        = "feuille(s)"
	Liter       = "L"
	Kilogram    = "kg"
	plaquette   = "plaquette(s)"
	tablespoonL = 0.015
)

type conversion func(qty float64) (float64, string)

type ruleKey struct {
	name string
	unit string
}

var rules = map[ruleKey]conversion{}

// passthroughUnits are kept as-is once no named rule matched them first.
var passthroughUnits = map[string]bool{
	Gram:   true,
	Piece:  true,
	Slice:  true,
	Sachet: true,
}

// lateRules are matched only when the recipe unit is not one of passthroughUnits.
var lateRules = map[ruleKey]conversion{}

func register(table map[ruleKey]conversion, unit string, fn conversion, names ...string) {
	for _, n := range names {
		table[ruleKey{name: n, unit: unit}] = fn
	}
}

func fixed(qty float64, unit string) conversion {
	return func(float64) (float64, string) { return qty, unit }
}

func toLiters(divisor float64) conversion {
	return func(q float64) (float64, string) { return RoundLiquid(q / divisor), Liter }
}

func init() {
	// Liquids.
	register(rules, Tablespoon, func(q float64) (float64, string) {
		return RoundLiquid(q * tablespoonL), Liter
	}, "Huile d'olive")
	register(rules, Milliliter, toLiters(1000), "Huile d'olive", "Lait")
	register(rules, Centiliter, toLiters(100), "Lait", "Eau")

	// Bulk weights switch to kg from one kilogram.
	register(rules, Gram, func(q float64) (float64, string) {
		if q < 1000 {
			return q, Gram
		}
		return RoundWeight(q / 1000), Kilogram
	}, "Farine", "Farine de sarrasin", "Pomme de terre", "Viande de bœuf hachée", "Veau pour blanquette", "Poulet")

	register(rules, Piece, func(q float64) (float64, string) { return q, Piece },
		"Œuf", "Œuf (pour la garniture)", "Jaune d'œuf")
	register(rules, Centiliter, func(q float64) (float64, string) { return q, Centiliter }, "Crème fraîche")
	register(rules, Milliliter, func(q float64) (float64, string) { return q / 10, Centiliter }, "Lait de coco")

	register(lateRules, Milliliter, func(q float64) (float64, string) {
		if q <= 200 {
			return q, Milliliter
		}
		return 1, "bouteille"
	}, "Vin blanc")
	register(lateRules, Pinch, fixed(1, "paquet"), "Sel", "Poivre")
	register(lateRules, Teaspoon, fixed(1, "sachet"), "Herbes de Provence", "Paprika", "Curry")
	register(lateRules, Pinch, fixed(1, "sachet"), "Muscade")
	register(lateRules, Teaspoon, fixed(1, "pot"), "Miel", "Moutarde")
	register(lateRules, Tablespoon, fixed(1, "pot"), "Miel", "Moutarde")
	register(lateRules, Tablespoon, fixed(1, "bouteille"), "Vinaigrette", "Vinaigre balsamique")
	register(lateRules, Sprig, fixed(1, "bouquet"), "Thym", "Romarin", "Persil")
	register(lateRules, Leaf, fixed(1, "sachet"), "Laurier")
	register(lateRules, Teaspoon, func(q float64) (float64, string) {
		// About three teaspoons of juice per lemon.
		return math.Ceil(q / 3), "citron(s)"
	}, "Jus de citron")
}

// ToDisplayUnit converts a raw recipe quantity into the quantity and unit
// shown on the shopping list. Pairs without a rule are returned unchanged.
func ToDisplayUnit(articleName, recipeUnit string, qty float64) (float64, string) {
	if fn, ok := rules[ruleKey{name: articleName, unit: recipeUnit}]; ok {
		return fn(qty)
	}

	// Butter and a couple of produce items are matched ahead of the generic
	// gram/piece passthrough since their recipe unit is one of those.
	switch {
	case articleName == "Beurre" && recipeUnit == Gram:
		return butter(qty)
	case articleName == "Salade verte" && recipeUnit == Gram:
		return 1, "pièce"
	case articleName == "Tomates cerises" && recipeUnit == Piece:
		return 1, "barquette"
	}

	if passthroughUnits[recipeUnit] {
		return qty, recipeUnit
	}
	if fn, ok := lateRules[ruleKey{name: articleName, unit: recipeUnit}]; ok {
		return fn(qty)
	}
	return qty, recipeUnit
}

func butter(grams float64) (float64, string) {
	if grams <= 100 {
		return grams, Gram
	}
	plaquettes := grams / 250
	if plaquettes < 0.5 {
		return grams, Gram
	}
	return math.Ceil(plaquettes*2) / 2, plaquette
}

// RoundLiquid rounds liters up with a granularity that grows with the volume:
// 25 ml below 100 ml, 50 ml below 500 ml, 100 ml below 1 L, 250 ml above.
func RoundLiquid(liters float64) float64 {
	return roundLadder(liters)
}

// RoundWeight applies the same ladder to kilograms.
func RoundWeight(kg float64) float64 {
	return roundLadder(kg)
}

func roundLadder(v float64) float64 {
	switch {
	case v < 0.1:
		return ceilTo(v, 40)
	case v < 0.5:
		return ceilTo(v, 20)
	case v < 1:
		return ceilTo(v, 10)
	default:
		return ceilTo(v, 4)
	}
}

// ceilTo rounds v up to the next multiple of 1/steps. The epsilon absorbs
// float noise such as 0.7*10 landing just above 7.
func ceilTo(v, steps float64) float64 {
	return math.Ceil(v*steps-1e-9) / steps
}
