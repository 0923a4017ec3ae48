// Package analyzer evaluates the economics of every technology option open to
// a furnace group: renovation on the current technology at brownfield cost, or
// a switch to another technology at greenfield cost with the stranded-asset
// penalty of abandoning the old one.
//
// Analyze is a pure function over its inputs. It mutates nothing and repeated
// calls with identical inputs return identical results; all state changes
// happen downstream in the strategy pass.
package analyzer

import (
	"github.com/systemiqofficial/steel-iq-sub000/internal/domain"
	"github.com/systemiqofficial/steel-iq-sub000/internal/modules/finance"
)

// Inputs carries the exogenous data one furnace-group evaluation needs.
type Inputs struct {
	Year int

	// Plant hosts the furnace group; used for the country scope of subsidies
	// and for companion-process prerequisites.
	Plant *domain.Plant

	// Candidates are the technology names to evaluate: the current
	// technology's transition set already intersected with the technologies
	// permitted in Year. May include the current technology itself, which is
	// evaluated as a brownfield renovation.
	Candidates []string

	// Technologies is the catalog keyed by name.
	Technologies map[string]domain.Technology

	PricePerTonne []float64 // revenue forecast for the group's product, USD/t
	CarbonPrices  []float64 // USD/tCO2 by year, for the plant's country

	CostOfEquity float64
	CostOfDebt   float64 // regional base rate, before debt subsidies

	// HorizonYears is the valuation horizon for new investments;
	// RemainingLifeYears is how long the current asset would have kept
	// operating, which bounds the foregone-profit leg of COSA.
	HorizonYears       int
	RemainingLifeYears int

	Subsidies []domain.Subsidy

	// AverageBOMs holds a representative bill of materials per technology,
	// normalized to one tonne of output (capacity-weighted across the fleet).
	// A technology without one cannot be valued as a switch target.
	AverageBOMs map[string]*domain.BillOfMaterials

	Factors domain.EmissionFactors
}

// Option is the valuation of one technology candidate.
type Option struct {
	Technology string

	// NPV is COSA-adjusted for switches; RawNPV is the unadjusted valuation.
	NPV    float64
	RawNPV float64

	Brownfield bool

	Capex      finance.SubsidizedCost
	CostOfDebt finance.SubsidizedCost

	BOM       *domain.BillOfMaterials
	Emissions domain.Emissions
}

// Result is the full evaluation of a furnace group for one year.
type Result struct {
	// COSA is the cost of abandoning the current technology, shared by all
	// switch options. Always at least the NPV of the remaining debt ledger.
	COSA float64

	Options map[string]Option
}

// Best returns the NPV-maximizing option, ties broken by technology name so
// the result does not depend on map iteration order.
func (r Result) Best() (Option, bool) {
	var best Option
	found := false
	for _, opt := range r.Options {
		if !found || opt.NPV > best.NPV || (opt.NPV == best.NPV && opt.Technology < best.Technology) {
			best = opt
			found = true
		}
	}
	return best, found
}

// Analyze values every candidate technology for the furnace group.
//
// Candidates lacking capex data, a representative bill of materials, or an
// unmet companion-process prerequisite are skipped, not errors: missing data
// excludes the option from this year's evaluation. No candidates surviving
// means "no economically evaluable switch", an empty result.
func Analyze(fg *domain.FurnaceGroup, in Inputs) Result {
	result := Result{Options: make(map[string]Option)}
	if len(in.Candidates) == 0 {
		return result
	}

	country := ""
	if in.Plant != nil {
		country = in.Plant.Location.Country
	}

	result.COSA = cosa(fg, in, country)

	for _, name := range in.Candidates {
		tech, ok := in.Technologies[name]
		if !ok || tech.CapexUSDPerTonne <= 0 {
			continue
		}
		if tech.RequiresProcess != "" && (in.Plant == nil || !in.Plant.HasProcess(tech.RequiresProcess)) {
			continue
		}

		brownfield := name == fg.Technology

		capexPerTonne := tech.CapexUSDPerTonne
		var bom *domain.BillOfMaterials
		var emissions domain.Emissions
		var intensity float64

		production := fg.Capacity * fg.UtilizationRate

		if brownfield {
			if fg.BOM == nil {
				continue
			}
			capexPerTonne *= tech.BrownfieldMultiplier
			bom = fg.BOM
			emissions = fg.Emissions
			if production > 0 {
				intensity = emissions.Total() / production
			}
		} else {
			bom = in.AverageBOMs[name]
			if bom == nil {
				continue
			}
			emissions = finance.EmissionsForBOM(bom, in.Factors)
			intensity = emissions.Total()
		}

		capex := finance.CapexWithSubsidies(capexPerTonne, in.Subsidies, country, name, in.Year)
		debt := finance.CostOfDebtWithSubsidies(in.CostOfDebt, in.Subsidies, country, name, in.Year)

		opexPerTonne := bom.UnitCost(1)
		if brownfield {
			opexPerTonne = bom.UnitCost(production)
		}
		opex := finance.OpexSeriesWithSubsidies(
			constantSeries(opexPerTonne, in.HorizonYears),
			in.Subsidies, country, name, in.Year+1,
		)

		valuation := finance.FullNPV(finance.NPVInput{
			Capacity:           fg.Capacity,
			Utilization:        fg.UtilizationRate,
			CapexPerTonne:      capex.Subsidized,
			EquityShare:        fg.EquityShare,
			CostOfEquity:       in.CostOfEquity,
			CostOfDebt:         debt.Subsidized,
			HorizonYears:       in.HorizonYears,
			PricePerTonne:      in.PricePerTonne,
			OpexPerTonne:       opex,
			CarbonCostPerTonne: finance.CarbonCostSeries(intensity, in.CarbonPrices),
		})
		if valuation == nil {
			continue
		}

		opt := Option{
			Technology: name,
			RawNPV:     valuation.NPV,
			NPV:        valuation.NPV,
			Brownfield: brownfield,
			Capex:      capex,
			CostOfDebt: debt,
			BOM:        bom,
			Emissions:  emissions,
		}
		if !brownfield {
			// Switching strands the old asset: the penalty is taken as a lump
			// deduction in the switching year, not amortized, because COSA is
			// itself already a present value.
			opt.NPV -= result.COSA
		}
		result.Options[name] = opt
	}

	return result
}

// cosa values abandoning the current technology: remaining ledger debt plus
// foregone operating profit over the asset's remaining life, floored at the
// debt NPV alone.
func cosa(fg *domain.FurnaceGroup, in Inputs, country string) float64 {
	var profits []float64
	production := fg.Capacity * fg.UtilizationRate

	if fg.BOM != nil && production > 0 && in.RemainingLifeYears > 0 {
		opexPerTonne := fg.BOM.UnitCost(production)
		opex := finance.OpexSeriesWithSubsidies(
			constantSeries(opexPerTonne, in.RemainingLifeYears),
			in.Subsidies, country, fg.Technology, in.Year+1,
		)
		intensity := fg.Emissions.Total() / production
		carbon := finance.CarbonCostSeries(intensity, in.CarbonPrices)

		profits = make([]float64, in.RemainingLifeYears)
		for i := range profits {
			price := seriesAt(in.PricePerTonne, i)
			profits[i] = (price - seriesAt(opex, i) - seriesAt(carbon, i)) * production
		}
	}

	return finance.StrandedAssetCost(finance.StrandedAssetInput{
		Ledger:                 fg.DebtLedger,
		DiscountRate:           fg.CostOfDebt,
		OperatingProfitPerYear: profits,
	})
}

func constantSeries(value float64, length int) []float64 {
	series := make([]float64, length)
	for i := range series {
		series[i] = value
	}
	return series
}

// seriesAt reads a forecast at an index, holding the last value beyond the end.
func seriesAt(series []float64, i int) float64 {
	if len(series) == 0 {
		return 0
	}
	if i >= len(series) {
		return series[len(series)-1]
	}
	return series[i]
}
