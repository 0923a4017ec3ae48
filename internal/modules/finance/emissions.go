package finance

import (
	"github.com/systemiqofficial/steel-iq-sub000/internal/domain"
)

// EmissionsForBOM computes the CO2 emissions implied by a bill of materials
// against per-input emission factors. The three accounting boundaries
// (direct, indirect, supply-chain) are summed independently.
//
// Inputs without a matching factor contribute zero emissions; a missing
// factor is a data gap, not an error.
func EmissionsForBOM(bom *domain.BillOfMaterials, factors domain.EmissionFactors) domain.Emissions {
	var total domain.Emissions
	if bom == nil {
		return total
	}

	for commodity, item := range bom.Materials {
		if factor, ok := factors[string(commodity)]; ok {
			total.Add(scaleFactor(factor, item.Demand))
		}
	}
	for carrier, item := range bom.Energy {
		if factor, ok := factors[string(carrier)]; ok {
			total.Add(scaleFactor(factor, item.Demand))
		}
	}

	return total
}

// EmissionsIntensity returns total tCO2 per tonne of output for a bill of
// materials, for use in carbon cost series.
func EmissionsIntensity(bom *domain.BillOfMaterials, factors domain.EmissionFactors, outputTonnes float64) float64 {
	if outputTonnes <= 0 {
		return 0
	}
	return EmissionsForBOM(bom, factors).Total() / outputTonnes
}

func scaleFactor(factor domain.EmissionFactor, demand float64) domain.Emissions {
	return domain.Emissions{
		Direct:      factor.Direct * demand,
		Indirect:    factor.Indirect * demand,
		SupplyChain: factor.SupplyChain * demand,
	}
}
