package environment

import (
	"gonum.org/v1/gonum/stat"

	"github.com/systemiqofficial/steel-iq-sub000/internal/domain"
)

// bomSamples collects per-tonne observations of one line item across the
// fleet, weighted by capacity.
type bomSamples struct {
	demand  []float64
	cost    []float64
	weights []float64
}

func (s *bomSamples) add(demandPerTonne, costPerTonne, capacity float64) {
	s.demand = append(s.demand, demandPerTonne)
	s.cost = append(s.cost, costPerTonne)
	s.weights = append(s.weights, capacity)
}

func (s *bomSamples) mean() domain.LineItem {
	item := domain.LineItem{
		Demand:    stat.Mean(s.demand, s.weights),
		TotalCost: stat.Mean(s.cost, s.weights),
	}
	if item.Demand > 0 {
		item.UnitCost = item.TotalCost / item.Demand
	}
	return item
}

// RefreshAverageBOMs recomputes the representative per-tonne bill of
// materials for every technology from the operating fleet: each furnace
// group's bill normalized to one tonne of production, averaged with capacity
// weights. Groups without a bill or without production this year contribute
// nothing. Called once per year, after cost propagation.
func (p *Provider) RefreshAverageBOMs(groups []*domain.FurnaceGroup) {
	materials := make(map[string]map[domain.Commodity]*bomSamples)
	energy := make(map[string]map[domain.EnergyCarrier]*bomSamples)

	for _, fg := range groups {
		if !fg.Active() || fg.BOM == nil {
			continue
		}
		production := fg.Capacity * fg.UtilizationRate
		if production <= 0 {
			continue
		}

		if materials[fg.Technology] == nil {
			materials[fg.Technology] = make(map[domain.Commodity]*bomSamples)
			energy[fg.Technology] = make(map[domain.EnergyCarrier]*bomSamples)
		}
		for commodity, item := range fg.BOM.Materials {
			s := materials[fg.Technology][commodity]
			if s == nil {
				s = &bomSamples{}
				materials[fg.Technology][commodity] = s
			}
			s.add(item.Demand/production, item.TotalCost/production, fg.Capacity)
		}
		for carrier, item := range fg.BOM.Energy {
			s := energy[fg.Technology][carrier]
			if s == nil {
				s = &bomSamples{}
				energy[fg.Technology][carrier] = s
			}
			s.add(item.Demand/production, item.TotalCost/production, fg.Capacity)
		}
	}

	averages := make(map[string]*domain.BillOfMaterials, len(materials))
	for tech, byCommodity := range materials {
		bom := domain.NewBillOfMaterials()
		for commodity, s := range byCommodity {
			bom.Materials[commodity] = s.mean()
		}
		for carrier, s := range energy[tech] {
			bom.Energy[carrier] = s.mean()
		}
		averages[tech] = bom
	}

	p.averageBOMs = averages
	p.log.Debug().Int("technologies", len(averages)).Msg("Representative bills of materials refreshed")
}
