package units

import "strings"

// base maps metric units to their size in grams or milliliters.
var base = map[string]struct {
	dim    string
	factor float64
}{
	"mg":       {"mass", 0.001},
	Gram:       {"mass", 1},
	Kilogram:   {"mass", 1000},
	Milliliter: {"volume", 1},
	Centiliter: {"volume", 10},
	"dl":       {"volume", 100},
	"l":        {"volume", 1000},
}

// Scale converts qty from one metric unit into another of the same
// dimension. Identical units always convert. ok is false otherwise.
func Scale(qty float64, from, to string) (float64, bool) {
	f, t := strings.ToLower(from), strings.ToLower(to)
	if f == t {
		return qty, true
	}
	bf, okF := base[f]
	bt, okT := base[t]
	if !okF || !okT || bf.dim != bt.dim {
		return 0, false
	}
	return qty * bf.factor / bt.factor, true
}
