// Package domain contains the core domain models for the steel transition
// simulator. The domain layer is pure: no infrastructure dependencies, no
// side effects beyond the records themselves.
package domain

// Product identifies what a furnace technology produces.
type Product string

const (
	ProductSteel Product = "steel"
	ProductIron  Product = "iron"
)

// Commodity is a traded material in the supply chain.
type Commodity string

const (
	CommodityIronOre    Commodity = "iron_ore"
	CommodityScrap      Commodity = "scrap"
	CommodityMetCoal    Commodity = "met_coal"
	CommodityPigIron    Commodity = "pig_iron"
	CommodityDRI        Commodity = "dri"
	CommodityCrudeSteel Commodity = "crude_steel"
)

// EnergyCarrier is an energy input to a production process.
type EnergyCarrier string

const (
	EnergyElectricity EnergyCarrier = "electricity"
	EnergyNaturalGas  EnergyCarrier = "natural_gas"
	EnergyHydrogen    EnergyCarrier = "hydrogen"
	EnergyCoal        EnergyCarrier = "coal"
)

// FurnaceGroupStatus tracks where a furnace group is in its lifecycle.
type FurnaceGroupStatus string

const (
	StatusOperating     FurnaceGroupStatus = "operating"
	StatusPreRetirement FurnaceGroupStatus = "operating-pre-retirement"
	StatusConstruction  FurnaceGroupStatus = "construction"
	// StatusClosed groups leave the active set but are retained for history.
	StatusClosed FurnaceGroupStatus = "closed"
)

// Technology describes one production technology. Records are immutable
// within a simulation year; activation/ban years gate membership in the
// currently-allowed set.
type Technology struct {
	Name                 string             `json:"name"`
	Product              Product            `json:"product"`
	CapexUSDPerTonne     float64            `json:"capex_usd_per_tonne"`
	BrownfieldMultiplier float64            `json:"brownfield_multiplier"` // renovation capex as a fraction of greenfield
	ProcessEfficiency    float64            `json:"process_efficiency"`    // output per unit input; 0 means no yield loss modeled
	Feedstocks           []PrimaryFeedstock `json:"feedstocks"`
	Transitions          []string           `json:"transitions"` // technologies this one may switch to
	ActivationYear       int                `json:"activation_year"` // 0 = always available
	BanYear              int                `json:"ban_year"`        // 0 = never banned

	// RequiresProcess names a companion process unit the hosting plant must
	// already operate for this technology to be evaluable (e.g. an EAF
	// requiring an on-site DRI unit). Empty means no prerequisite.
	RequiresProcess string `json:"requires_process,omitempty"`
}

// AllowedIn reports whether the technology may be built in the given year.
func (t Technology) AllowedIn(year int) bool {
	if t.ActivationYear != 0 && year < t.ActivationYear {
		return false
	}
	if t.BanYear != 0 && year >= t.BanYear {
		return false
	}
	return true
}

// CanTransitionTo reports whether the technology's transition set contains target.
func (t Technology) CanTransitionTo(target string) bool {
	for _, name := range t.Transitions {
		if name == target {
			return true
		}
	}
	return false
}

// PrimaryFeedstock is one input combination (metallic charge + reductant) for
// a technology. Quantities are per tonne of primary output.
type PrimaryFeedstock struct {
	Technology string                    `json:"technology"`
	Metallic   Commodity                 `json:"metallic"`
	Reductant  string                    `json:"reductant"`
	Materials  map[Commodity]float64     `json:"materials"` // t input per t output
	Energy     map[EnergyCarrier]float64 `json:"energy"`    // GJ per t output
	Output     Commodity                 `json:"output"`
}

// LineItem is one entry of a bill of materials: demand, its total cost, and
// the resulting unit cost.
type LineItem struct {
	Demand    float64 `json:"demand"`
	TotalCost float64 `json:"total_cost"`
	UnitCost  float64 `json:"unit_cost"`
}

// BillOfMaterials holds the material and energy inputs of a furnace group for
// one year, with their costs.
type BillOfMaterials struct {
	Materials map[Commodity]LineItem     `json:"materials"`
	Energy    map[EnergyCarrier]LineItem `json:"energy"`
}

// NewBillOfMaterials returns an empty bill of materials with initialized maps.
func NewBillOfMaterials() *BillOfMaterials {
	return &BillOfMaterials{
		Materials: make(map[Commodity]LineItem),
		Energy:    make(map[EnergyCarrier]LineItem),
	}
}

// TotalCost returns the summed cost of all material and energy line items.
func (b *BillOfMaterials) TotalCost() float64 {
	if b == nil {
		return 0
	}
	total := 0.0
	for _, item := range b.Materials {
		total += item.TotalCost
	}
	for _, item := range b.Energy {
		total += item.TotalCost
	}
	return total
}

// UnitCost returns the bill-of-materials cost per tonne of output.
func (b *BillOfMaterials) UnitCost(outputTonnes float64) float64 {
	if b == nil || outputTonnes <= 0 {
		return 0
	}
	return b.TotalCost() / outputTonnes
}

// Emissions holds CO2 emissions split by accounting boundary, in tonnes.
// The three boundaries are summed independently and never netted.
type Emissions struct {
	Direct      float64 `json:"direct"`
	Indirect    float64 `json:"indirect"`
	SupplyChain float64 `json:"supply_chain"`
}

// Total returns the sum across all boundaries.
func (e Emissions) Total() float64 {
	return e.Direct + e.Indirect + e.SupplyChain
}

// Add accumulates other into e.
func (e *Emissions) Add(other Emissions) {
	e.Direct += other.Direct
	e.Indirect += other.Indirect
	e.SupplyChain += other.SupplyChain
}

// EmissionFactor gives tonnes of CO2 per unit of an input, per boundary.
type EmissionFactor struct {
	Direct      float64 `json:"direct"`
	Indirect    float64 `json:"indirect"`
	SupplyChain float64 `json:"supply_chain"`
}

// EmissionFactors maps input names (commodity or energy carrier) to factors.
// A missing entry means zero emissions for that input, not an error.
type EmissionFactors map[string]EmissionFactor

// DebtEntry is one obligation in a furnace group's legacy debt ledger.
// Amortization is straight-line: constant principal repayment with
// declining-balance interest.
type DebtEntry struct {
	Principal    float64 `json:"principal"` // remaining principal
	InterestRate float64 `json:"interest_rate"`
	YearsLeft    int     `json:"years_left"`
}

// FurnaceGroup is a production unit owned by exactly one plant.
type FurnaceGroup struct {
	ID              string             `json:"id"`
	PlantID         string             `json:"plant_id"`
	Technology      string             `json:"technology"`
	Product         Product            `json:"product"`
	Capacity        float64            `json:"capacity"` // t/year
	UtilizationRate float64            `json:"utilization_rate"`
	Status          FurnaceGroupStatus `json:"status"`

	// LifetimeYears counts elapsed operating years modulo the renovation
	// cycle; renovation resets it to zero.
	LifetimeYears int `json:"lifetime_years"`

	Balance         float64 `json:"balance"`          // current-year operating balance
	HistoricBalance float64 `json:"historic_balance"` // cumulative balance over the group's life
	EquityShare     float64 `json:"equity_share"`
	CostOfDebt      float64 `json:"cost_of_debt"`

	// DebtLedger is append-only across technology switches: a switch appends
	// a new entry rather than mutating prior ones, preserving auditability.
	DebtLedger []DebtEntry `json:"debt_ledger"`

	BOM       *BillOfMaterials `json:"bom,omitempty"`
	Emissions Emissions        `json:"emissions"`

	AppliedSubsidies []string `json:"applied_subsidies,omitempty"`

	// CCUSInstalled marks carbon-capture equipment; groups carrying it are
	// never switched away from their technology (sunk investment protection).
	CCUSInstalled bool `json:"ccus_installed"`
}

// Active reports whether the group participates in production and decisions.
func (fg *FurnaceGroup) Active() bool {
	return fg.Status == StatusOperating || fg.Status == StatusPreRetirement
}

// AppendDebt adds a new obligation to the ledger.
func (fg *FurnaceGroup) AppendDebt(principal, rate float64, years int) {
	fg.DebtLedger = append(fg.DebtLedger, DebtEntry{
		Principal:    principal,
		InterestRate: rate,
		YearsLeft:    years,
	})
}

// Location identifies where a plant sits, for regional cost and subsidy lookups.
type Location struct {
	Country string `json:"country"`
	Region  string `json:"region"`
}

// Plant is a physical facility owning a collection of furnace groups. Its
// balance is the investment-affordability gate for furnace-level decisions.
type Plant struct {
	ID            string          `json:"id"`
	PlantGroupID  string          `json:"plant_group_id"`
	Name          string          `json:"name"`
	Location      Location        `json:"location"`
	FurnaceGroups []*FurnaceGroup `json:"furnace_groups"`
	Balance       float64         `json:"balance"`
}

// ActiveFurnaceGroups returns the groups still in the active set.
func (p *Plant) ActiveFurnaceGroups() []*FurnaceGroup {
	var active []*FurnaceGroup
	for _, fg := range p.FurnaceGroups {
		if fg.Active() {
			active = append(active, fg)
		}
	}
	return active
}

// HasProcess reports whether any active furnace group on the plant runs the
// named technology. Used for companion-process prerequisites.
func (p *Plant) HasProcess(technology string) bool {
	for _, fg := range p.FurnaceGroups {
		if fg.Active() && fg.Technology == technology {
			return true
		}
	}
	return false
}

// PlantGroup is an ownership entity (company) owning multiple plants.
type PlantGroup struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Plants []*Plant `json:"plants"`
}

// TotalBalance aggregates plant balances; it is the affordability gate for
// expansion decisions.
func (pg *PlantGroup) TotalBalance() float64 {
	total := 0.0
	for _, p := range pg.Plants {
		total += p.Balance
	}
	return total
}

// CostCategory scopes a subsidy to the cost component it reduces.
type CostCategory string

const (
	CostCategoryCapex CostCategory = "capex"
	CostCategoryOpex  CostCategory = "opex"
	CostCategoryDebt  CostCategory = "debt"
)

// Subsidy is read-only reference data: a support scheme scoped by country,
// technology, cost category, and time window.
type Subsidy struct {
	Name       string       `json:"name"`
	Country    string       `json:"country"`
	Technology string       `json:"technology"` // empty matches all technologies
	Category   CostCategory `json:"category"`
	StartYear  int          `json:"start_year"`
	EndYear    int          `json:"end_year"`
	Absolute   float64      `json:"absolute"` // USD/t (capex, opex) or rate points (debt)
	Relative   float64      `json:"relative"` // fraction of the cost component
}

// AppliesTo reports whether the subsidy matches the given scope in year.
func (s Subsidy) AppliesTo(country, technology string, category CostCategory, year int) bool {
	if s.Country != "" && s.Country != country {
		return false
	}
	if s.Technology != "" && s.Technology != technology {
		return false
	}
	if s.Category != category {
		return false
	}
	return year >= s.StartYear && year <= s.EndYear
}

// Allocation is one non-zero commodity flow from the external trade solver:
// (source, destination, commodity) → volume for one simulated year.
type Allocation struct {
	Source        string    `json:"source"`      // process center ID (facility or raw-material source)
	Destination   string    `json:"destination"` // process center ID (facility or demand sink)
	Commodity     Commodity `json:"commodity"`
	Volume        float64   `json:"volume"`         // t shipped
	TransportCost float64   `json:"transport_cost"` // USD/t
}
