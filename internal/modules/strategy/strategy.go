// Package strategy decides, once per simulated year and per furnace group,
// whether to renovate, switch technology, close, or do nothing. It is a guard
// chain: any failing guard returns no command, and side effects (plant balance
// debit, capacity tracker increment) happen only on the final accepted path,
// never speculatively.
package strategy

import (
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/sampleuv"

	"github.com/systemiqofficial/steel-iq-sub000/internal/domain"
	"github.com/systemiqofficial/steel-iq-sub000/internal/modules/analyzer"
	"github.com/systemiqofficial/steel-iq-sub000/internal/modules/capacity"
)

// Environment supplies the exogenous data decisions read. Implemented by
// internal/modules/environment; declared here so the evaluator depends on
// what it consumes, not on the provider.
type Environment interface {
	Technology(name string) (domain.Technology, bool)
	TechnologyAllowed(name string, year int) bool
	PriceForecast(product domain.Product, fromYear int) []float64
	CarbonPriceForecast(country string, fromYear int) []float64
	FinancingRates(country string) (costOfEquity, costOfDebt float64, err error)
	Subsidies(country string) []domain.Subsidy
	AverageBOM(technology string) *domain.BillOfMaterials
	EmissionFactors() domain.EmissionFactors
}

// Config tunes the evaluator.
type Config struct {
	// Deterministic disables the probabilistic adoption filter and weighted
	// technology selection; the NPV maximum always wins and is always taken.
	Deterministic bool

	RenovationCycleYears int
	HorizonYears         int
}

// Evaluator runs the per-furnace-group decision chain.
type Evaluator struct {
	env Environment
	cfg Config
	rng *rand.Rand
	log zerolog.Logger
}

// New returns an evaluator. The generator must be seeded by the caller; a
// year's decisions are reproducible given the same seed and inputs.
func New(env Environment, cfg Config, rng *rand.Rand, log zerolog.Logger) *Evaluator {
	return &Evaluator{
		env: env,
		cfg: cfg,
		rng: rng,
		log: log.With().Str("component", "strategy").Logger(),
	}
}

// Decide evaluates one furnace group for the year. A nil command means no
// action. The tracker is consulted and incremented only for accepted switches.
func (e *Evaluator) Decide(year int, plant *domain.Plant, fg *domain.FurnaceGroup, tracker *capacity.Tracker) domain.Command {
	// No capital, no investment.
	if plant.Balance < 0 {
		return nil
	}
	// Groups already exiting or still under construction do not decide.
	if fg.Status != domain.StatusOperating {
		return nil
	}

	current, ok := e.env.Technology(fg.Technology)
	if !ok {
		e.log.Debug().
			Str("furnace_group_id", fg.ID).
			Str("technology", fg.Technology).
			Msg("Unknown current technology, skipping")
		return nil
	}

	// Forced closure once cumulative losses breach the replacement value of
	// the unit.
	if fg.HistoricBalance < -(current.CapexUSDPerTonne * fg.Capacity) {
		return &domain.CloseCommand{
			CommandID:      uuid.NewString(),
			PlantID:        plant.ID,
			FurnaceGroupID: fg.ID,
			Reason:         "cumulative losses exceed replacement value",
		}
	}

	candidates := e.allowedCandidates(current, year)
	result := analyzer.Analyze(fg, e.analyzerInputs(year, plant, fg, candidates))

	best, ok := result.Best()
	if !ok || best.NPV <= 0 {
		return nil
	}

	selected, ok := e.selectOption(result)
	if !ok {
		return nil
	}

	if selected.Technology == fg.Technology {
		return e.decideRenovation(plant, fg, selected)
	}
	return e.decideSwitch(plant, fg, selected, result.COSA, tracker)
}

// allowedCandidates intersects the current technology's transition set with
// the technologies permitted in the given year.
func (e *Evaluator) allowedCandidates(current domain.Technology, year int) []string {
	var candidates []string
	for _, name := range current.Transitions {
		if e.env.TechnologyAllowed(name, year) {
			candidates = append(candidates, name)
		}
	}
	sort.Strings(candidates)
	return candidates
}

func (e *Evaluator) analyzerInputs(year int, plant *domain.Plant, fg *domain.FurnaceGroup, candidates []string) analyzer.Inputs {
	country := plant.Location.Country

	technologies := make(map[string]domain.Technology, len(candidates))
	averageBOMs := make(map[string]*domain.BillOfMaterials, len(candidates))
	for _, name := range candidates {
		if tech, ok := e.env.Technology(name); ok {
			technologies[name] = tech
		}
		if bom := e.env.AverageBOM(name); bom != nil {
			averageBOMs[name] = bom
		}
	}

	costOfEquity, costOfDebt, err := e.env.FinancingRates(country)
	if err != nil {
		// Missing financing data excludes every option via the valuation,
		// same as any other missing input.
		e.log.Debug().
			Str("furnace_group_id", fg.ID).
			Str("country", country).
			Err(err).
			Msg("No financing rates, options will not value")
	}

	remainingLife := e.cfg.RenovationCycleYears - fg.LifetimeYears
	if remainingLife < 0 {
		remainingLife = 0
	}

	return analyzer.Inputs{
		Year:               year,
		Plant:              plant,
		Candidates:         candidates,
		Technologies:       technologies,
		PricePerTonne:      e.env.PriceForecast(fg.Product, year),
		CarbonPrices:       e.env.CarbonPriceForecast(country, year),
		CostOfEquity:       costOfEquity,
		CostOfDebt:         costOfDebt,
		HorizonYears:       e.cfg.HorizonYears,
		RemainingLifeYears: remainingLife,
		Subsidies:          e.env.Subsidies(country),
		AverageBOMs:        averageBOMs,
		Factors:            e.env.EmissionFactors(),
	}
}

// selectOption picks among positive-NPV options: weighted random with weight
// proportional to NPV, or the plain maximum in deterministic mode. Options
// with non-positive or non-finite NPV get zero selection probability.
func (e *Evaluator) selectOption(result analyzer.Result) (analyzer.Option, bool) {
	if e.cfg.Deterministic {
		return result.Best()
	}

	names := make([]string, 0, len(result.Options))
	for name, opt := range result.Options {
		if opt.NPV > 0 && !math.IsNaN(opt.NPV) && !math.IsInf(opt.NPV, 0) {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return analyzer.Option{}, false
	}
	sort.Strings(names)

	weights := make([]float64, len(names))
	for i, name := range names {
		weights[i] = result.Options[name].NPV
	}

	idx, ok := sampleuv.NewWeighted(weights, e.rng).Take()
	if !ok {
		return analyzer.Option{}, false
	}
	return result.Options[names[idx]], true
}

// decideRenovation handles the stay-on-current-technology outcome. Nothing
// happens until the renovation cycle expires; then the unit either affords the
// brownfield renovation or closes.
func (e *Evaluator) decideRenovation(plant *domain.Plant, fg *domain.FurnaceGroup, opt analyzer.Option) domain.Command {
	if fg.LifetimeYears < e.cfg.RenovationCycleYears {
		return nil
	}

	cost := opt.Capex.Subsidized * fg.Capacity * fg.EquityShare
	if cost > plant.Balance {
		return &domain.CloseCommand{
			CommandID:      uuid.NewString(),
			PlantID:        plant.ID,
			FurnaceGroupID: fg.ID,
			Reason:         "cannot afford renovation",
		}
	}

	plant.Balance -= cost
	e.log.Info().
		Str("furnace_group_id", fg.ID).
		Str("technology", fg.Technology).
		Float64("cost", cost).
		Msg("Renovation approved")

	return &domain.RenovateCommand{
		CommandID:       uuid.NewString(),
		FurnaceGroupID:  fg.ID,
		SubsidizedCapex: opt.Capex.Subsidized,
		CostOfDebt:      opt.CostOfDebt.Subsidized,
	}
}

// decideSwitch handles a technology change: affordability, sunk CCUS
// protection, the probabilistic adoption filter, and the shared buildout
// limit, in that order. Only the fully accepted path mutates state.
func (e *Evaluator) decideSwitch(plant *domain.Plant, fg *domain.FurnaceGroup, opt analyzer.Option, cosaValue float64, tracker *capacity.Tracker) domain.Command {
	cost := opt.Capex.Subsidized * fg.Capacity * fg.EquityShare
	if cost > plant.Balance {
		return nil
	}

	// Installed carbon capture is sunk investment; the unit stays on its
	// technology no matter how attractive the alternative.
	if fg.CCUSInstalled {
		return nil
	}

	if !e.acceptInvestment(cost, opt.NPV) {
		return nil
	}

	target, ok := e.env.Technology(opt.Technology)
	if !ok {
		return nil
	}
	if tracker != nil && !tracker.Allows(target.Product, fg.Capacity) {
		e.log.Debug().
			Str("furnace_group_id", fg.ID).
			Str("technology", opt.Technology).
			Float64("capacity", fg.Capacity).
			Msg("Buildout limit reached, switch rejected")
		return nil
	}

	plant.Balance -= cost
	if tracker != nil {
		tracker.Commit(target.Product, fg.Capacity)
	}

	e.log.Info().
		Str("furnace_group_id", fg.ID).
		Str("old_technology", fg.Technology).
		Str("new_technology", opt.Technology).
		Float64("npv", opt.NPV).
		Msg("Technology switch approved")

	return &domain.ChangeTechnologyCommand{
		CommandID:            uuid.NewString(),
		FurnaceGroupID:       fg.ID,
		OldTechnology:        fg.Technology,
		NewTechnology:        opt.Technology,
		NPV:                  opt.NPV,
		COSA:                 cosaValue,
		BOM:                  opt.BOM,
		Capex:                opt.Capex.Original,
		SubsidizedCapex:      opt.Capex.Subsidized,
		CostOfDebt:           opt.CostOfDebt.Original,
		SubsidizedCostOfDebt: opt.CostOfDebt.Subsidized,
	}
}

// acceptInvestment is the probabilistic adoption filter: acceptance
// probability exp(-cost/NPV). A large cost relative to the payoff makes
// adoption vanishingly rare even when the NPV is positive.
func (e *Evaluator) acceptInvestment(cost, npv float64) bool {
	if e.cfg.Deterministic {
		return true
	}
	if npv <= 0 || math.IsNaN(npv) {
		return false
	}
	return e.rng.Float64() < math.Exp(-cost/npv)
}
