package flowgraph

import (
	"github.com/systemiqofficial/steel-iq-sub000/internal/domain"
	"github.com/systemiqofficial/steel-iq-sub000/internal/modules/finance"
)

// FacilityResult is the per-facility outcome of one year's cost propagation.
type FacilityResult struct {
	FacilityID string

	// Utilization is clamped to [0,1] for downstream use.
	Utilization float64
	// RawUtilization keeps the unclamped ratio; values above 1 indicate a
	// data or configuration problem upstream and are flagged, not hidden.
	RawUtilization float64

	BOM       *domain.BillOfMaterials
	Emissions domain.Emissions
}

// OverAllocated reports whether the allocation exceeded capacity.
func (r *FacilityResult) OverAllocated() bool {
	return r.RawUtilization > 1
}

// Apply derives facility state from the propagated graph: utilization from
// outgoing volumes, the bill of materials from incoming allocations and
// processing energy, and emissions from the bill of materials against the
// given emission factors.
//
// Facilities with zero outgoing volume get zero utilization and an empty
// bill of materials; that is a valid idle year, not an error.
func (g *Graph) Apply(factors domain.EmissionFactors) map[string]*FacilityResult {
	results := make(map[string]*FacilityResult)

	for idx := range g.Nodes {
		node := &g.Nodes[idx]
		facility := node.Facility
		if facility == nil {
			continue
		}

		result := &FacilityResult{
			FacilityID: facility.ID,
			BOM:        domain.NewBillOfMaterials(),
		}

		outputVolume := g.OutgoingVolume(idx)
		if facility.Capacity > 0 {
			result.RawUtilization = outputVolume / facility.Capacity
			result.Utilization = result.RawUtilization
			if result.Utilization > 1 {
				g.log.Error().
					Str("facility_id", facility.ID).
					Float64("utilization", result.RawUtilization).
					Msg("Allocated volume exceeds facility capacity")
				result.Utilization = 1
			}
		}

		// Materials: incoming allocations priced at delivered cost
		// (upstream unit cost plus transport, excluding this facility's own
		// processing energy, which is accounted under energy).
		for _, edgeIdx := range g.incoming[idx] {
			edge := &g.Edges[edgeIdx]
			srcUnit := g.Nodes[edge.From].UnitCost[edge.Commodity]

			item := result.BOM.Materials[edge.Commodity]
			item.Demand += edge.InputAllocation
			item.TotalCost += (srcUnit + edge.TransportCost) * edge.Volume
			if item.Demand > 0 {
				item.UnitCost = item.TotalCost / item.Demand
			}
			result.BOM.Materials[edge.Commodity] = item
		}

		// Energy: the facility's processing energy scaled by output.
		for carrier, demandPerTonne := range facility.EnergyDemandPerTonne {
			item := domain.LineItem{
				Demand:    demandPerTonne * outputVolume,
				TotalCost: facility.EnergyCostPerTonne[carrier] * outputVolume,
			}
			if item.Demand > 0 {
				item.UnitCost = item.TotalCost / item.Demand
			}
			result.BOM.Energy[carrier] = item
		}

		result.Emissions = finance.EmissionsForBOM(result.BOM, factors)
		results[facility.ID] = result
	}

	return results
}
