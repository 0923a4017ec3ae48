// Package simulation runs the yearly decision loop: cost propagation over the
// trade-allocation result, per-furnace-group strategy, per-plant-group
// expansion, command execution, and year-end finalization, followed by results
// persistence and a checkpoint.
//
// Execution within a year is strictly sequential, in stable sorted order, so
// the shared capacity tracker needs no locking and a year's decisions are
// reproducible from the seed and the inputs.
package simulation

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/exp/rand"

	"github.com/systemiqofficial/steel-iq-sub000/internal/domain"
	"github.com/systemiqofficial/steel-iq-sub000/internal/events"
	"github.com/systemiqofficial/steel-iq-sub000/internal/modules/capacity"
	"github.com/systemiqofficial/steel-iq-sub000/internal/modules/checkpoint"
	"github.com/systemiqofficial/steel-iq-sub000/internal/modules/environment"
	"github.com/systemiqofficial/steel-iq-sub000/internal/modules/expansion"
	"github.com/systemiqofficial/steel-iq-sub000/internal/modules/finance"
	"github.com/systemiqofficial/steel-iq-sub000/internal/modules/flowgraph"
	"github.com/systemiqofficial/steel-iq-sub000/internal/modules/results"
	"github.com/systemiqofficial/steel-iq-sub000/internal/modules/strategy"
)

// defaultEquityShare finances new furnace groups when no regional figure
// overrides it.
const defaultEquityShare = 0.3

// Config tunes a simulation run.
type Config struct {
	StartYear int
	EndYear   int

	Seed          uint64
	Deterministic bool

	HorizonYears         int
	RenovationCycleYears int

	SteelCapacityLimit    float64 // t/year of switch+expansion additions
	IronCapacityLimit     float64
	NewPlantReservedShare float64 // fraction of each limit held for greenfield plants

	VolumeTolerance   float64 // t; flows below this are absent
	ExpansionCapacity float64 // t/year per new furnace group
}

// AllocationSource yields the external trade solver's result for a year.
type AllocationSource interface {
	Allocations(year int) ([]domain.Allocation, error)
}

// Status is a snapshot of the run for the API.
type Status struct {
	Running     bool `json:"running"`
	CurrentYear int  `json:"current_year"`
	StartYear   int  `json:"start_year"`
	EndYear     int  `json:"end_year"`
}

// Service owns the simulation state and runs the year loop.
type Service struct {
	cfg    Config
	env    *environment.Provider
	groups []*domain.PlantGroup

	checkpoints *checkpoint.Store   // optional
	results     *results.Repository // optional
	recorder    *events.Recorder

	mu      sync.RWMutex
	running bool
	year    int

	log zerolog.Logger
}

// New wires a service. The checkpoint store and results repository may be nil
// for in-memory runs (tests, dry runs).
func New(cfg Config, env *environment.Provider, groups []*domain.PlantGroup,
	checkpoints *checkpoint.Store, resultsRepo *results.Repository,
	recorder *events.Recorder, log zerolog.Logger) *Service {
	if recorder == nil {
		recorder = events.NewRecorder(0)
	}
	return &Service{
		cfg:         cfg,
		env:         env,
		groups:      groups,
		checkpoints: checkpoints,
		results:     resultsRepo,
		recorder:    recorder,
		year:        cfg.StartYear,
		log:         log.With().Str("component", "simulation").Logger(),
	}
}

// Status reports where the run is.
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		Running:     s.running,
		CurrentYear: s.year,
		StartYear:   s.cfg.StartYear,
		EndYear:     s.cfg.EndYear,
	}
}

// PlantGroups exposes the current state, for checkpointing and tests.
func (s *Service) PlantGroups() []*domain.PlantGroup {
	return s.groups
}

// Restore replaces the state with a checkpoint, resuming after its year.
func (s *Service) Restore(state *checkpoint.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups = state.PlantGroups
	s.year = state.Year + 1
}

// Run executes the year loop from the current year to EndYear. A structural
// error in a year halts the run; per-unit problems never do.
func (s *Service) Run(ctx context.Context, source AllocationSource) error {
	s.mu.Lock()
	s.running = true
	start := s.year
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	for year := start; year <= s.cfg.EndYear; year++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		allocations, err := source.Allocations(year)
		if err != nil {
			return fmt.Errorf("no allocations for year %d: %w", year, err)
		}
		if _, err := s.RunYear(year, allocations); err != nil {
			return err
		}

		s.mu.Lock()
		s.year = year + 1
		s.mu.Unlock()
	}
	return nil
}

// RunYear runs one full simulated year and returns the commands it emitted.
func (s *Service) RunYear(year int, allocations []domain.Allocation) ([]domain.Command, error) {
	s.recorder.Record(&events.YearStartedData{Year: year, Allocations: len(allocations)})
	s.log.Info().Int("year", year).Int("allocations", len(allocations)).Msg("Year started")

	plantOf := s.plantIndex()

	if err := s.propagate(year, allocations, plantOf); err != nil {
		s.recorder.Record(&events.ErrorEventData{Year: year, Error: err.Error()})
		return nil, err
	}

	s.rollUpPlantBalances()
	s.env.RefreshAverageBOMs(s.allFurnaceGroups())

	limits := make(map[domain.Product]float64)
	if s.cfg.SteelCapacityLimit > 0 {
		limits[domain.ProductSteel] = s.cfg.SteelCapacityLimit
	}
	if s.cfg.IronCapacityLimit > 0 {
		limits[domain.ProductIron] = s.cfg.IronCapacityLimit
	}
	tracker := capacity.NewTracker(limits, s.cfg.NewPlantReservedShare, s.log)

	// One generator per year: decisions replay exactly from (seed, inputs).
	rng := rand.New(rand.NewSource(s.cfg.Seed ^ uint64(year)))

	strategyEval := strategy.New(s.env, strategy.Config{
		Deterministic:        s.cfg.Deterministic,
		RenovationCycleYears: s.cfg.RenovationCycleYears,
		HorizonYears:         s.cfg.HorizonYears,
	}, rng, s.log)

	expansionEval := expansion.New(s.env, expansion.Config{
		Deterministic: s.cfg.Deterministic,
		Capacity:      s.cfg.ExpansionCapacity,
		EquityShare:   defaultEquityShare,
		HorizonYears:  s.cfg.HorizonYears,
	}, rng, s.log)

	var commands []domain.Command
	emit := func(cmd domain.Command) {
		if cmd == nil {
			return
		}
		commands = append(commands, cmd)
		s.execute(year, cmd, plantOf)
		s.recorder.Record(&events.CommandEmittedData{
			Year:        year,
			CommandID:   cmd.ID(),
			CommandType: string(cmd.Type()),
		})
	}

	// Furnace-group decisions, stable order.
	for _, pg := range sortedGroups(s.groups) {
		for _, plant := range sortedPlants(pg.Plants) {
			for _, fg := range sortedFurnaceGroups(plant.FurnaceGroups) {
				emit(strategyEval.Decide(year, plant, fg, tracker))
			}
		}
	}

	// Owner-level expansion decisions.
	for _, pg := range sortedGroups(s.groups) {
		emit(expansionEval.Decide(year, pg, tracker))
	}

	s.finalizeYear(year)

	summary := s.summarize(year, tracker)
	if s.results != nil {
		if err := s.results.SaveYear(summary, commands); err != nil {
			return commands, err
		}
	}
	if s.checkpoints != nil {
		err := s.checkpoints.Save(&checkpoint.State{
			Year:        year,
			PlantGroups: s.groups,
			CapacityAdded: map[domain.Product]float64{
				domain.ProductSteel: tracker.Added(domain.ProductSteel),
				domain.ProductIron:  tracker.Added(domain.ProductIron),
			},
		})
		if err != nil {
			return commands, err
		}
		s.recorder.Record(&events.CheckpointSavedData{Year: year})
	}

	s.recorder.Record(&events.YearCompletedData{
		Year:          year,
		Commands:      len(commands),
		CapacitySteel: tracker.Added(domain.ProductSteel),
		CapacityIron:  tracker.Added(domain.ProductIron),
	})
	s.log.Info().Int("year", year).Int("commands", len(commands)).Msg("Year completed")
	return commands, nil
}

// propagate runs the cost graph over the allocations and writes utilization,
// bill of materials, emissions, and the operating balance into each group.
func (s *Service) propagate(year int, allocations []domain.Allocation, plantOf map[string]*domain.Plant) error {
	facilities := make(map[string]*flowgraph.Facility)
	groupByID := make(map[string]*domain.FurnaceGroup)

	for _, fg := range s.allFurnaceGroups() {
		if !fg.Active() {
			continue
		}
		groupByID[fg.ID] = fg
		facilities[fg.ID] = s.facilityFor(fg, plantOf[fg.ID])
	}

	g := flowgraph.Build(flowgraph.Config{
		Facilities:      facilities,
		SourceCosts:     s.env.SourceCosts(),
		VolumeTolerance: s.cfg.VolumeTolerance,
		Log:             s.log,
	}, allocations)

	if err := g.Propagate(); err != nil {
		return fmt.Errorf("cost propagation failed for year %d: %w", year, err)
	}

	facilityResults := g.Apply(s.env.EmissionFactors())
	s.recorder.Record(&events.PropagationCompletedData{
		Year:       year,
		Nodes:      len(g.Nodes),
		Edges:      len(g.Edges),
		Facilities: len(facilityResults),
	})

	for id, res := range facilityResults {
		fg, ok := groupByID[id]
		if !ok {
			continue
		}
		fg.UtilizationRate = res.Utilization
		fg.BOM = res.BOM
		fg.Emissions = res.Emissions
		fg.Balance = s.operatingBalance(year, fg, plantOf[fg.ID])
	}
	return nil
}

// facilityFor maps a furnace group onto its graph representation using the
// technology catalog and regional energy prices.
func (s *Service) facilityFor(fg *domain.FurnaceGroup, plant *domain.Plant) *flowgraph.Facility {
	facility := &flowgraph.Facility{
		ID:                fg.ID,
		Capacity:          fg.Capacity,
		Process:           fg.Technology,
		ProcessEfficiency: 1,
		PrimaryOutput:     primaryOutput(fg.Product),
	}

	tech, ok := s.env.Technology(fg.Technology)
	if !ok {
		return facility
	}
	if tech.ProcessEfficiency > 0 {
		facility.ProcessEfficiency = tech.ProcessEfficiency
	}
	if len(tech.Feedstocks) == 0 {
		return facility
	}

	country := ""
	if plant != nil {
		country = plant.Location.Country
	}

	feedstock := tech.Feedstocks[0]
	if feedstock.Output != "" {
		facility.PrimaryOutput = feedstock.Output
	}
	facility.EnergyDemandPerTonne = make(map[domain.EnergyCarrier]float64, len(feedstock.Energy))
	facility.EnergyCostPerTonne = make(map[domain.EnergyCarrier]float64, len(feedstock.Energy))
	for carrier, demand := range feedstock.Energy {
		facility.EnergyDemandPerTonne[carrier] = demand
		if price, ok := s.env.EnergyPrice(country, carrier); ok {
			facility.EnergyCostPerTonne[carrier] = demand * price
		}
	}
	return facility
}

// operatingBalance is the year's cash result of one furnace group: revenue
// minus input costs, carbon cost, and debt service.
func (s *Service) operatingBalance(year int, fg *domain.FurnaceGroup, plant *domain.Plant) float64 {
	production := fg.Capacity * fg.UtilizationRate
	price, ok := s.env.CurrentPrice(fg.Product, year)
	if !ok {
		return -s.debtServiceThisYear(fg)
	}

	country := ""
	if plant != nil {
		country = plant.Location.Country
	}
	carbonCost := fg.Emissions.Total() * s.env.CurrentCarbonPrice(country, year)

	return production*price - fg.BOM.TotalCost() - carbonCost - s.debtServiceThisYear(fg)
}

func (s *Service) debtServiceThisYear(fg *domain.FurnaceGroup) float64 {
	series := finance.LedgerServiceSeries(fg.DebtLedger, 1)
	if len(series) == 0 {
		return 0
	}
	return series[0]
}

// rollUpPlantBalances adds this year's operating balances to each plant's
// investable balance before any decision runs.
func (s *Service) rollUpPlantBalances() {
	for _, pg := range s.groups {
		for _, plant := range pg.Plants {
			for _, fg := range plant.FurnaceGroups {
				if fg.Active() {
					plant.Balance += fg.Balance
				}
			}
		}
	}
}

// finalizeYear applies the year-boundary mutations: debt ages one year,
// operating balances roll into historic balances, lifetimes advance, and
// finished construction starts operating.
func (s *Service) finalizeYear(year int) {
	for _, fg := range s.allFurnaceGroups() {
		switch fg.Status {
		case domain.StatusConstruction:
			fg.Status = domain.StatusOperating
			s.log.Debug().Int("year", year).Str("furnace_group_id", fg.ID).Msg("Construction completed")
		case domain.StatusOperating, domain.StatusPreRetirement:
			fg.DebtLedger = finance.AgeLedger(fg.DebtLedger)
			fg.HistoricBalance += fg.Balance
			fg.Balance = 0
			fg.LifetimeYears++
		}
	}
}

// summarize aggregates the year for the results store.
func (s *Service) summarize(year int, tracker *capacity.Tracker) results.YearSummary {
	summary := results.YearSummary{
		Year:                   year,
		ProductionByTechnology: make(map[string]float64),
		CapacityAddedSteel:     tracker.Added(domain.ProductSteel),
		CapacityAddedIron:      tracker.Added(domain.ProductIron),
	}
	for _, fg := range s.allFurnaceGroups() {
		if !fg.Active() {
			continue
		}
		summary.ProductionByTechnology[fg.Technology] += fg.Capacity * fg.UtilizationRate
		summary.Emissions.Add(fg.Emissions)
	}
	return summary
}

func (s *Service) allFurnaceGroups() []*domain.FurnaceGroup {
	var all []*domain.FurnaceGroup
	for _, pg := range s.groups {
		for _, plant := range pg.Plants {
			all = append(all, plant.FurnaceGroups...)
		}
	}
	return all
}

// plantIndex maps furnace group IDs to their hosting plant.
func (s *Service) plantIndex() map[string]*domain.Plant {
	index := make(map[string]*domain.Plant)
	for _, pg := range s.groups {
		for _, plant := range pg.Plants {
			for _, fg := range plant.FurnaceGroups {
				index[fg.ID] = plant
			}
		}
	}
	return index
}

// primaryOutput maps a product to the commodity it trades as.
func primaryOutput(product domain.Product) domain.Commodity {
	if product == domain.ProductIron {
		return domain.CommodityPigIron
	}
	return domain.CommodityCrudeSteel
}

func sortedGroups(groups []*domain.PlantGroup) []*domain.PlantGroup {
	out := make([]*domain.PlantGroup, len(groups))
	copy(out, groups)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func sortedPlants(plants []*domain.Plant) []*domain.Plant {
	out := make([]*domain.Plant, len(plants))
	copy(out, plants)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func sortedFurnaceGroups(groups []*domain.FurnaceGroup) []*domain.FurnaceGroup {
	out := make([]*domain.FurnaceGroup, len(groups))
	copy(out, groups)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
