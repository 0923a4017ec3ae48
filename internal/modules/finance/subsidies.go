package finance

import (
	"github.com/systemiqofficial/steel-iq-sub000/internal/domain"
)

// SubsidizedCost is the result of applying subsidies to one cost component.
type SubsidizedCost struct {
	Original   float64  `json:"original"`
	Subsidized float64  `json:"subsidized"`
	Applied    []string `json:"applied,omitempty"` // names of the subsidies that matched
}

// CapexWithSubsidies applies all matching capex subsidies to a per-tonne
// capex figure. Relative components reduce the cost by a fraction, absolute
// components by a fixed USD/t amount; the result never drops below zero.
func CapexWithSubsidies(capexPerTonne float64, subsidies []domain.Subsidy, country, technology string, year int) SubsidizedCost {
	return applySubsidies(capexPerTonne, subsidies, country, technology, domain.CostCategoryCapex, year)
}

// OpexSeriesWithSubsidies applies opex subsidies to a per-tonne opex
// forecast. Each year of the series is reduced only by subsidies whose time
// window covers that year.
func OpexSeriesWithSubsidies(opexPerTonne []float64, subsidies []domain.Subsidy, country, technology string, startYear int) []float64 {
	if len(opexPerTonne) == 0 {
		return nil
	}
	out := make([]float64, len(opexPerTonne))
	for i, opex := range opexPerTonne {
		out[i] = applySubsidies(opex, subsidies, country, technology, domain.CostCategoryOpex, startYear+i).Subsidized
	}
	return out
}

// CostOfDebtWithSubsidies applies debt subsidies to a financing rate.
// Relative components scale the rate down, absolute components subtract rate
// points; the result is floored at zero.
func CostOfDebtWithSubsidies(rate float64, subsidies []domain.Subsidy, country, technology string, year int) SubsidizedCost {
	return applySubsidies(rate, subsidies, country, technology, domain.CostCategoryDebt, year)
}

func applySubsidies(cost float64, subsidies []domain.Subsidy, country, technology string, category domain.CostCategory, year int) SubsidizedCost {
	result := SubsidizedCost{Original: cost, Subsidized: cost}
	for _, s := range subsidies {
		if !s.AppliesTo(country, technology, category, year) {
			continue
		}
		result.Subsidized -= cost*s.Relative + s.Absolute
		result.Applied = append(result.Applied, s.Name)
	}
	if result.Subsidized < 0 {
		result.Subsidized = 0
	}
	return result
}
