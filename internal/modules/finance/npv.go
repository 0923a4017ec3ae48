package finance

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// CarbonCostSeries converts an emissions intensity (tCO2 per tonne of
// product) and a carbon price forecast (USD per tCO2) into a per-tonne
// carbon cost series.
func CarbonCostSeries(emissionsPerTonne float64, carbonPrices []float64) []float64 {
	if len(carbonPrices) == 0 {
		return nil
	}
	series := make([]float64, len(carbonPrices))
	for i, price := range carbonPrices {
		series[i] = emissionsPerTonne * price
	}
	return series
}

// NPVInput carries everything FullNPV needs. All per-tonne series run from
// the first year after the investment; series shorter than the horizon are
// extended with their last value.
type NPVInput struct {
	Capacity    float64 // t/year
	Utilization float64 // expected utilization of that capacity, in [0,1]

	CapexPerTonne float64 // USD/t, after capex subsidies
	EquityShare   float64 // fraction of the investment financed with equity
	CostOfEquity  float64
	CostOfDebt    float64 // after debt subsidies

	HorizonYears int

	PricePerTonne      []float64 // revenue forecast, USD/t
	OpexPerTonne       []float64 // after opex subsidies, USD/t
	CarbonCostPerTonne []float64 // USD/t
}

// NPVResult is the outcome of a full valuation.
type NPVResult struct {
	NPV              float64 `json:"npv"`
	EquityInvestment float64 `json:"equity_investment"`
	DebtPrincipal    float64 `json:"debt_principal"`
}

// FullNPV values an investment in production capacity: the discounted sum of
// revenue minus opex minus carbon cost, less debt service, less the net
// equity investment. Operating cash flows are discounted at the cost of
// equity; debt service at the cost of debt. The debt-financed share of capex
// is amortized straight-line over the horizon.
//
// Returns nil when an essential economic input is absent (no price or opex
// forecast, non-positive capacity or horizon), allowing callers to skip the
// technology option rather than fail.
func FullNPV(in NPVInput) *NPVResult {
	if in.Capacity <= 0 || in.HorizonYears <= 0 {
		return nil
	}
	if len(in.PricePerTonne) == 0 || len(in.OpexPerTonne) == 0 {
		return nil
	}

	utilization := in.Utilization
	if utilization <= 0 || utilization > 1 {
		utilization = 1
	}
	production := in.Capacity * utilization

	price := padSeries(in.PricePerTonne, in.HorizonYears)
	opex := padSeries(in.OpexPerTonne, in.HorizonYears)
	carbon := padSeries(in.CarbonCostPerTonne, in.HorizonYears)

	// Operating cash flow per year, absolute USD.
	operating := make([]float64, in.HorizonYears)
	for i := 0; i < in.HorizonYears; i++ {
		operating[i] = (price[i] - opex[i] - carbon[i]) * production
	}

	equityInvestment := in.CapexPerTonne * in.Capacity * in.EquityShare
	debtPrincipal := in.CapexPerTonne * in.Capacity * (1 - in.EquityShare)

	debtService := make([]float64, in.HorizonYears)
	for i, p := range DebtSchedule(debtPrincipal, in.CostOfDebt, in.HorizonYears) {
		debtService[i] = p.Total()
	}

	npv := floats.Dot(operating, discountFactors(in.CostOfEquity, in.HorizonYears)) -
		floats.Dot(debtService, discountFactors(in.CostOfDebt, in.HorizonYears)) -
		equityInvestment

	if math.IsNaN(npv) || math.IsInf(npv, 0) {
		return nil
	}

	return &NPVResult{
		NPV:              npv,
		EquityInvestment: equityInvestment,
		DebtPrincipal:    debtPrincipal,
	}
}

// discountFactors returns 1/(1+rate)^t for t = 1..years.
func discountFactors(rate float64, years int) []float64 {
	factors := make([]float64, years)
	for i := range factors {
		factors[i] = 1 / discountFactor(rate, i+1)
	}
	return factors
}

// padSeries extends a series to the requested length by repeating its last
// value. An empty series pads with zeros.
func padSeries(series []float64, length int) []float64 {
	out := make([]float64, length)
	last := 0.0
	for i := 0; i < length; i++ {
		if i < len(series) {
			last = series[i]
		}
		out[i] = last
	}
	return out
}
