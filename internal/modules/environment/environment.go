// Package environment provides the exogenous data the decision engine
// consumes: market price and carbon price forecasts, regional financing rates
// and capex tables, subsidies, the technology catalog with activation and ban
// years, and representative average bills of materials per technology.
//
// The provider is an in-memory reference implementation; the decision
// components declare their own narrow interfaces and this type satisfies them.
package environment

import (
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/systemiqofficial/steel-iq-sub000/internal/domain"
)

// ErrUnknownCountry reports a country with no financing data.
var ErrUnknownCountry = errors.New("environment: unknown country")

// ErrUnknownRegion reports a location that maps to no known region.
var ErrUnknownRegion = errors.New("environment: unknown region")

// Financing is a regional pair of discount rates.
type Financing struct {
	CostOfEquity float64 `json:"cost_of_equity"`
	CostOfDebt   float64 `json:"cost_of_debt"`
}

// Data seeds a provider. Yearly series are indexed from BaseYear.
type Data struct {
	BaseYear int

	Technologies []domain.Technology

	// Prices is the market price forecast per product, USD/t, one value per
	// year starting at BaseYear.
	Prices map[domain.Product][]float64

	// CarbonPrices is USD/tCO2 per country, indexed like Prices.
	CarbonPrices map[string][]float64

	Financing map[string]Financing

	// RegionalCapex overrides catalog capex per country and technology.
	RegionalCapex map[string]map[string]float64

	// Regions maps countries to the region carrying their cost tables.
	Regions map[string]string

	Subsidies []domain.Subsidy

	Factors domain.EmissionFactors

	// EnergyPrices is USD per GJ of each carrier, per country.
	EnergyPrices map[string]map[domain.EnergyCarrier]float64

	// SourceCosts is the base unit cost per commodity at raw-material source
	// nodes (mining cost at an ore source, collection cost at a scrap yard).
	SourceCosts map[string]map[domain.Commodity]float64
}

// Provider serves environment data to the decision passes.
type Provider struct {
	data        Data
	catalog     map[string]domain.Technology
	averageBOMs map[string]*domain.BillOfMaterials

	log zerolog.Logger
}

// New builds a provider from seed data.
func New(data Data, log zerolog.Logger) *Provider {
	catalog := make(map[string]domain.Technology, len(data.Technologies))
	for _, tech := range data.Technologies {
		catalog[tech.Name] = tech
	}
	return &Provider{
		data:        data,
		catalog:     catalog,
		averageBOMs: make(map[string]*domain.BillOfMaterials),
		log:         log.With().Str("component", "environment").Logger(),
	}
}

// Technology looks up a catalog entry by name.
func (p *Provider) Technology(name string) (domain.Technology, bool) {
	tech, ok := p.catalog[name]
	return tech, ok
}

// TechnologyAllowed reports whether a technology may be built in the year.
func (p *Provider) TechnologyAllowed(name string, year int) bool {
	tech, ok := p.catalog[name]
	return ok && tech.AllowedIn(year)
}

// AllowedTechnologies returns the names permitted in the year, sorted so
// callers iterate in a stable order.
func (p *Provider) AllowedTechnologies(year int) []string {
	var names []string
	for name, tech := range p.catalog {
		if tech.AllowedIn(year) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// PriceForecast returns the price series for the years after fromYear. An
// unknown product returns nil, which valuations treat as missing data.
func (p *Provider) PriceForecast(product domain.Product, fromYear int) []float64 {
	return p.tail(p.data.Prices[product], fromYear)
}

// CarbonPriceForecast returns the carbon price series for the years after
// fromYear in the given country. Countries without a carbon price get nil,
// valued as zero carbon cost.
func (p *Provider) CarbonPriceForecast(country string, fromYear int) []float64 {
	return p.tail(p.data.CarbonPrices[country], fromYear)
}

// tail slices a BaseYear-indexed series to start the year after fromYear,
// holding the last value when the forecast has already run out.
func (p *Provider) tail(series []float64, fromYear int) []float64 {
	if len(series) == 0 {
		return nil
	}
	offset := fromYear + 1 - p.data.BaseYear
	if offset < 0 {
		offset = 0
	}
	if offset >= len(series) {
		return []float64{series[len(series)-1]}
	}
	return series[offset:]
}

// FinancingRates returns the regional cost of equity and cost of debt.
func (p *Provider) FinancingRates(country string) (float64, float64, error) {
	fin, ok := p.data.Financing[country]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrUnknownCountry, country)
	}
	return fin.CostOfEquity, fin.CostOfDebt, nil
}

// Subsidies returns the schemes that can apply in the country, including
// country-agnostic ones. Year and category filtering happens at application.
func (p *Provider) Subsidies(country string) []domain.Subsidy {
	var matched []domain.Subsidy
	for _, s := range p.data.Subsidies {
		if s.Country == "" || s.Country == country {
			matched = append(matched, s)
		}
	}
	return matched
}

// RegionalCapex returns the country-specific capex for a technology.
func (p *Provider) RegionalCapex(country, technology string) (float64, bool) {
	capex, ok := p.data.RegionalCapex[country][technology]
	return capex, ok
}

// ResolveRegion validates a plant location against the region table.
func (p *Provider) ResolveRegion(loc domain.Location) (string, error) {
	if region, ok := p.data.Regions[loc.Country]; ok {
		return region, nil
	}
	if loc.Region != "" {
		return loc.Region, nil
	}
	return "", fmt.Errorf("%w: country %q", ErrUnknownRegion, loc.Country)
}

// EmissionFactors returns the factor table shared by all valuations.
func (p *Provider) EmissionFactors() domain.EmissionFactors {
	return p.data.Factors
}

// AverageBOM returns the representative per-tonne bill of materials for a
// technology, or nil when the fleet has no usable observation.
func (p *Provider) AverageBOM(technology string) *domain.BillOfMaterials {
	return p.averageBOMs[technology]
}

// EnergyPrice returns the USD/GJ price of a carrier in a country.
func (p *Provider) EnergyPrice(country string, carrier domain.EnergyCarrier) (float64, bool) {
	price, ok := p.data.EnergyPrices[country][carrier]
	return price, ok
}

// SourceCosts returns the base commodity costs at raw-material sources.
func (p *Provider) SourceCosts() map[string]map[domain.Commodity]float64 {
	return p.data.SourceCosts
}

// at reads a BaseYear-indexed series in a given year, holding the endpoints.
func (p *Provider) at(series []float64, year int) (float64, bool) {
	if len(series) == 0 {
		return 0, false
	}
	idx := year - p.data.BaseYear
	if idx < 0 {
		idx = 0
	}
	if idx >= len(series) {
		idx = len(series) - 1
	}
	return series[idx], true
}

// CurrentPrice returns the market price of a product in the given year.
func (p *Provider) CurrentPrice(product domain.Product, year int) (float64, bool) {
	return p.at(p.data.Prices[product], year)
}

// CurrentCarbonPrice returns the carbon price in a country for the given
// year; countries without a scheme price carbon at zero.
func (p *Provider) CurrentCarbonPrice(country string, year int) float64 {
	price, _ := p.at(p.data.CarbonPrices[country], year)
	return price
}
