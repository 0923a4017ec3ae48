// Package expansion evaluates, once per simulated year and per plant group,
// whether the owner adds a new furnace group at one of its plants. The
// evaluator emits commands only; balance debits happen when the command is
// executed downstream.
package expansion

import (
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"

	"github.com/systemiqofficial/steel-iq-sub000/internal/domain"
	"github.com/systemiqofficial/steel-iq-sub000/internal/modules/capacity"
	"github.com/systemiqofficial/steel-iq-sub000/internal/modules/finance"
)

// Environment supplies the exogenous data expansion decisions read.
type Environment interface {
	AllowedTechnologies(year int) []string
	Technology(name string) (domain.Technology, bool)

	// RegionalCapex returns the country-specific capex for a technology,
	// falling back to the catalog figure when absent.
	RegionalCapex(country, technology string) (float64, bool)

	PriceForecast(product domain.Product, fromYear int) []float64
	CarbonPriceForecast(country string, fromYear int) []float64
	FinancingRates(country string) (costOfEquity, costOfDebt float64, err error)
	Subsidies(country string) []domain.Subsidy
	AverageBOM(technology string) *domain.BillOfMaterials
	EmissionFactors() domain.EmissionFactors

	// ResolveRegion validates that a plant's location maps to known regional
	// data. Failure is a structural problem for the unit, not missing data.
	ResolveRegion(loc domain.Location) (string, error)
}

// Config tunes the evaluator.
type Config struct {
	Deterministic bool

	// Capacity of each new furnace group, t/year.
	Capacity float64

	EquityShare  float64
	HorizonYears int
}

// Evaluator runs the per-plant-group expansion decision.
type Evaluator struct {
	env Environment
	cfg Config
	rng *rand.Rand
	log zerolog.Logger
}

// New returns an evaluator sharing the year's seeded generator.
func New(env Environment, cfg Config, rng *rand.Rand, log zerolog.Logger) *Evaluator {
	return &Evaluator{
		env: env,
		cfg: cfg,
		rng: rng,
		log: log.With().Str("component", "expansion").Logger(),
	}
}

// candidate is one (plant, technology) combination that valued successfully.
type candidate struct {
	plant      *domain.Plant
	technology domain.Technology
	npv        float64
	capex      finance.SubsidizedCost
	costOfDebt finance.SubsidizedCost
}

// Decide evaluates every (owned plant, allowed technology) combination and
// emits an AddFurnaceGroup command for the best positive-NPV pair, or nil.
// The tracker is checked against the expansion-and-switch share and committed
// only when the command is emitted.
func (e *Evaluator) Decide(year int, group *domain.PlantGroup, tracker *capacity.Tracker) domain.Command {
	best, ok := e.bestCandidate(year, group)
	if !ok || best.npv <= 0 {
		return nil
	}

	// Affordability gate on the owner's aggregate balance. Checked only; the
	// debit happens when the command executes.
	equityRequired := e.cfg.Capacity * best.capex.Subsidized * e.cfg.EquityShare
	if group.TotalBalance() < equityRequired {
		return nil
	}

	if !e.acceptInvestment(equityRequired, best.npv) {
		return nil
	}

	if tracker != nil && !tracker.Allows(best.technology.Product, e.cfg.Capacity) {
		e.log.Debug().
			Str("plant_group_id", group.ID).
			Str("technology", best.technology.Name).
			Msg("Buildout limit reached, expansion rejected")
		return nil
	}

	if _, err := e.env.ResolveRegion(best.plant.Location); err != nil {
		e.log.Error().
			Str("plant_group_id", group.ID).
			Str("plant_id", best.plant.ID).
			Err(err).
			Msg("Unresolvable plant location, skipping expansion this year")
		return nil
	}

	if tracker != nil {
		tracker.Commit(best.technology.Product, e.cfg.Capacity)
	}

	e.log.Info().
		Str("plant_group_id", group.ID).
		Str("plant_id", best.plant.ID).
		Str("technology", best.technology.Name).
		Float64("npv", best.npv).
		Msg("Expansion approved")

	return &domain.AddFurnaceGroupCommand{
		CommandID:            uuid.NewString(),
		PlantID:              best.plant.ID,
		FurnaceGroupID:       uuid.NewString(),
		Technology:           best.technology.Name,
		Product:              best.technology.Product,
		Capacity:             e.cfg.Capacity,
		NPV:                  best.npv,
		EquityRequired:       equityRequired,
		Capex:                best.capex.Original,
		SubsidizedCapex:      best.capex.Subsidized,
		CostOfDebt:           best.costOfDebt.Original,
		SubsidizedCostOfDebt: best.costOfDebt.Subsidized,
		AppliedSubsidies:     append(best.capex.Applied, best.costOfDebt.Applied...),
	}
}

// bestCandidate values every combination and keeps the NPV maximum. Plants
// are walked in a stable order so ties do not depend on input ordering.
func (e *Evaluator) bestCandidate(year int, group *domain.PlantGroup) (candidate, bool) {
	plants := make([]*domain.Plant, len(group.Plants))
	copy(plants, group.Plants)
	sort.Slice(plants, func(i, j int) bool { return plants[i].ID < plants[j].ID })

	allowed := e.env.AllowedTechnologies(year)

	var best candidate
	found := false
	for _, plant := range plants {
		for _, name := range allowed {
			c, ok := e.value(year, plant, name)
			if !ok {
				continue
			}
			if !found || c.npv > best.npv {
				best = c
				found = true
			}
		}
	}
	return best, found
}

// value computes the NPV of one new furnace group of the configured capacity
// at the plant, on the named technology. Missing regional data excludes the
// combination silently.
func (e *Evaluator) value(year int, plant *domain.Plant, name string) (candidate, bool) {
	tech, ok := e.env.Technology(name)
	if !ok {
		return candidate{}, false
	}
	if tech.RequiresProcess != "" && !plant.HasProcess(tech.RequiresProcess) {
		return candidate{}, false
	}

	country := plant.Location.Country

	capexPerTonne, ok := e.env.RegionalCapex(country, name)
	if !ok {
		capexPerTonne = tech.CapexUSDPerTonne
	}
	if capexPerTonne <= 0 {
		return candidate{}, false
	}

	bom := e.env.AverageBOM(name)
	if bom == nil {
		return candidate{}, false
	}

	costOfEquity, costOfDebt, err := e.env.FinancingRates(country)
	if err != nil {
		return candidate{}, false
	}

	subsidies := e.env.Subsidies(country)
	capex := finance.CapexWithSubsidies(capexPerTonne, subsidies, country, name, year)
	debt := finance.CostOfDebtWithSubsidies(costOfDebt, subsidies, country, name, year)

	opexPerTonne := bom.UnitCost(1)
	opex := make([]float64, e.cfg.HorizonYears)
	for i := range opex {
		opex[i] = opexPerTonne
	}
	opex = finance.OpexSeriesWithSubsidies(opex, subsidies, country, name, year+1)

	emissions := finance.EmissionsForBOM(bom, e.env.EmissionFactors())

	valuation := finance.FullNPV(finance.NPVInput{
		Capacity:           e.cfg.Capacity,
		Utilization:        1,
		CapexPerTonne:      capex.Subsidized,
		EquityShare:        e.cfg.EquityShare,
		CostOfEquity:       costOfEquity,
		CostOfDebt:         debt.Subsidized,
		HorizonYears:       e.cfg.HorizonYears,
		PricePerTonne:      e.env.PriceForecast(tech.Product, year),
		OpexPerTonne:       opex,
		CarbonCostPerTonne: finance.CarbonCostSeries(emissions.Total(), e.env.CarbonPriceForecast(country, year)),
	})
	if valuation == nil {
		return candidate{}, false
	}

	return candidate{
		plant:      plant,
		technology: tech,
		npv:        valuation.NPV,
		capex:      capex,
		costOfDebt: debt,
	}, true
}

func (e *Evaluator) acceptInvestment(cost, npv float64) bool {
	if e.cfg.Deterministic {
		return true
	}
	if npv <= 0 || math.IsNaN(npv) {
		return false
	}
	return e.rng.Float64() < math.Exp(-cost/npv)
}
