// Package nutrition holds the nutrient model shared by the ledger, the archive
// and the reference catalog.
//
// All reference records express their nutrients per 100 mass units (grams).
// Scale converts such a record into absolute amounts for a given mass.
package nutrition

import "math"

// per100 is the reference mass every stored profile is expressed against.
const per100 = 100.0

// NutrientProfile is a set of macro-nutrient amounts. Reference records store
// it per 100 g; ledger totals and scaled items store absolute amounts.
type NutrientProfile struct {
	Kcal     float64 `json:"kcal"    yaml:"kcal"`
	ProteinG float64 `json:"protein" yaml:"protein"`
	CarbsG   float64 `json:"carbs"   yaml:"carbs"`
	FatG     float64 `json:"fat"     yaml:"fat"`
}

// Zero is the empty profile.
var Zero = NutrientProfile{} //nolint:gochecknoglobals // Immutable value

// Scale converts a per-100 g profile into absolute amounts for massG grams.
// It never fails; callers decide how to treat zero or negative masses.
func Scale(profile NutrientProfile, massG float64) NutrientProfile {
	factor := massG / per100
	return NutrientProfile{
		Kcal:     profile.Kcal * factor,
		ProteinG: profile.ProteinG * factor,
		CarbsG:   profile.CarbsG * factor,
		FatG:     profile.FatG * factor,
	}
}

// Add returns the field-wise sum of p and o.
func (p NutrientProfile) Add(o NutrientProfile) NutrientProfile {
	return NutrientProfile{
		Kcal:     p.Kcal + o.Kcal,
		ProteinG: p.ProteinG + o.ProteinG,
		CarbsG:   p.CarbsG + o.CarbsG,
		FatG:     p.FatG + o.FatG,
	}
}

// Sub returns p minus o with every field clamped at zero, so repeated
// removals and float drift never produce negative totals.
func (p NutrientProfile) Sub(o NutrientProfile) NutrientProfile {
	return NutrientProfile{
		Kcal:     math.Max(0, p.Kcal-o.Kcal),
		ProteinG: math.Max(0, p.ProteinG-o.ProteinG),
		CarbsG:   math.Max(0, p.CarbsG-o.CarbsG),
		FatG:     math.Max(0, p.FatG-o.FatG),
	}
}

// IsZero reports whether every field is zero.
func (p NutrientProfile) IsZero() bool {
	return p == NutrientProfile{}
}

// Round returns p with every field rounded to the given number of decimals.
func (p NutrientProfile) Round(decimals int) NutrientProfile {
	const base = 10
	m := math.Pow(base, float64(decimals))
	r := func(v float64) float64 { return math.Round(v*m) / m }
	return NutrientProfile{
		Kcal:     r(p.Kcal),
		ProteinG: r(p.ProteinG),
		CarbsG:   r(p.CarbsG),
		FatG:     r(p.FatG),
	}
}
