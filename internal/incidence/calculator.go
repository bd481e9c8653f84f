package incidence

import (
	"dengue-platform/internal/features"
	"dengue-platform/internal/models"
)

// Rate is one computed incidence value
type Rate struct {
	Value float64
	// Fallback is set when the sub-district had no population entry and the
	// denominator defaulted to 1.
	Fallback bool
}

// Calculator computes predicted / population * multiplier
type Calculator struct {
	table  *Table
	strict bool
}

// NewCalculator returns a calculator over table. In strict mode an unknown
// sub-district fails with UnknownPopulationError instead of using denominator 1.
func NewCalculator(table *Table, strict bool) *Calculator {
	return &Calculator{table: table, strict: strict}
}

// Compute returns the incidence rate for one prediction. Grouped definitions use the
// sub-district population; single-series definitions use the district total.
func (c *Calculator) Compute(def *features.Definition, predicted float64, subDistrict string) (Rate, error) {
	population := c.table.DistrictPopulation
	fallback := false

	if def.Grouped() {
		p, ok := c.table.SubDistrict(subDistrict)
		if !ok {
			if c.strict {
				return Rate{}, &models.UnknownPopulationError{SubDistrict: subDistrict}
			}
			p = 1
			fallback = true
		}
		population = p
	}

	return Rate{
		Value:    predicted / population * def.IncidenceMultiplier(),
		Fallback: fallback,
	}, nil
}
