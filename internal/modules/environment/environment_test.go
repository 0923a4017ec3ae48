package environment

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systemiqofficial/steel-iq-sub000/internal/domain"
)

func newTestProvider() *Provider {
	return New(Data{
		BaseYear: 2025,
		Technologies: []domain.Technology{
			{Name: "bf-bof", Product: domain.ProductSteel, CapexUSDPerTonne: 800, BanYear: 2040},
			{Name: "dri-eaf", Product: domain.ProductSteel, CapexUSDPerTonne: 1100},
			{Name: "h2-dri", Product: domain.ProductIron, CapexUSDPerTonne: 1300, ActivationYear: 2032},
		},
		Prices: map[domain.Product][]float64{
			domain.ProductSteel: {500, 520, 540, 560},
		},
		CarbonPrices: map[string][]float64{
			"DE": {80, 90, 100, 110},
		},
		Financing: map[string]Financing{
			"DE": {CostOfEquity: 0.08, CostOfDebt: 0.06},
		},
		RegionalCapex: map[string]map[string]float64{
			"DE": {"dri-eaf": 950},
		},
		Regions: map[string]string{"DE": "EU"},
		Subsidies: []domain.Subsidy{
			{Name: "de-capex", Country: "DE", Category: domain.CostCategoryCapex, StartYear: 2025, EndYear: 2035, Relative: 0.2},
			{Name: "global-debt", Category: domain.CostCategoryDebt, StartYear: 2025, EndYear: 2050, Absolute: 0.005},
			{Name: "in-opex", Country: "IN", Category: domain.CostCategoryOpex, StartYear: 2025, EndYear: 2035, Relative: 0.1},
		},
	}, zerolog.Nop())
}

func TestAllowedTechnologies(t *testing.T) {
	p := newTestProvider()

	assert.Equal(t, []string{"bf-bof", "dri-eaf"}, p.AllowedTechnologies(2030))
	assert.Equal(t, []string{"bf-bof", "dri-eaf", "h2-dri"}, p.AllowedTechnologies(2035))
	assert.Equal(t, []string{"dri-eaf", "h2-dri"}, p.AllowedTechnologies(2040), "bf-bof banned from 2040")

	assert.True(t, p.TechnologyAllowed("dri-eaf", 2030))
	assert.False(t, p.TechnologyAllowed("h2-dri", 2030))
	assert.False(t, p.TechnologyAllowed("unknown", 2030))
}

func TestPriceForecastStartsAfterDecisionYear(t *testing.T) {
	p := newTestProvider()

	// Deciding in 2026: the forecast starts at 2027.
	assert.Equal(t, []float64{540, 560}, p.PriceForecast(domain.ProductSteel, 2026))

	// Beyond the forecast: hold the last value.
	assert.Equal(t, []float64{560}, p.PriceForecast(domain.ProductSteel, 2035))

	assert.Nil(t, p.PriceForecast(domain.ProductIron, 2026), "no forecast means missing data")
}

func TestCarbonPriceForecast(t *testing.T) {
	p := newTestProvider()

	assert.Equal(t, []float64{90, 100, 110}, p.CarbonPriceForecast("DE", 2025))
	assert.Nil(t, p.CarbonPriceForecast("BR", 2025), "no carbon price is zero carbon cost")
}

func TestFinancingRates(t *testing.T) {
	p := newTestProvider()

	equity, debt, err := p.FinancingRates("DE")
	require.NoError(t, err)
	assert.InDelta(t, 0.08, equity, 1e-9)
	assert.InDelta(t, 0.06, debt, 1e-9)

	_, _, err = p.FinancingRates("XX")
	assert.ErrorIs(t, err, ErrUnknownCountry)
}

func TestSubsidiesScopedByCountry(t *testing.T) {
	p := newTestProvider()

	names := func(subs []domain.Subsidy) []string {
		var out []string
		for _, s := range subs {
			out = append(out, s.Name)
		}
		return out
	}

	assert.ElementsMatch(t, []string{"de-capex", "global-debt"}, names(p.Subsidies("DE")))
	assert.ElementsMatch(t, []string{"global-debt"}, names(p.Subsidies("BR")))
}

func TestResolveRegion(t *testing.T) {
	p := newTestProvider()

	region, err := p.ResolveRegion(domain.Location{Country: "DE"})
	require.NoError(t, err)
	assert.Equal(t, "EU", region)

	// Unknown country but explicit region on the location still resolves.
	region, err = p.ResolveRegion(domain.Location{Country: "BR", Region: "LATAM"})
	require.NoError(t, err)
	assert.Equal(t, "LATAM", region)

	_, err = p.ResolveRegion(domain.Location{Country: "XX"})
	assert.ErrorIs(t, err, ErrUnknownRegion)
}

func TestRegionalCapex(t *testing.T) {
	p := newTestProvider()

	capex, ok := p.RegionalCapex("DE", "dri-eaf")
	require.True(t, ok)
	assert.InDelta(t, 950, capex, 1e-9)

	_, ok = p.RegionalCapex("DE", "bf-bof")
	assert.False(t, ok)
}

func TestRefreshAverageBOMs(t *testing.T) {
	p := newTestProvider()

	groupWithUnitCost := func(capacity, unitCost float64) *domain.FurnaceGroup {
		production := capacity // full utilization
		bom := domain.NewBillOfMaterials()
		bom.Materials[domain.CommodityScrap] = domain.LineItem{
			Demand:    production * 1.1,
			TotalCost: unitCost * production,
		}
		return &domain.FurnaceGroup{
			Technology:      "dri-eaf",
			Status:          domain.StatusOperating,
			Capacity:        capacity,
			UtilizationRate: 1,
			BOM:             bom,
		}
	}

	p.RefreshAverageBOMs([]*domain.FurnaceGroup{
		groupWithUnitCost(1_000_000, 100),
		groupWithUnitCost(3_000_000, 200),
		{Technology: "dri-eaf", Status: domain.StatusOperating, Capacity: 1_000_000}, // no BOM: ignored
	})

	bom := p.AverageBOM("dri-eaf")
	require.NotNil(t, bom)

	// Capacity-weighted: (100*1M + 200*3M) / 4M = 175 USD/t of output.
	scrap := bom.Materials[domain.CommodityScrap]
	assert.InDelta(t, 1.1, scrap.Demand, 1e-9)
	assert.InDelta(t, 175, scrap.TotalCost, 1e-9)

	assert.Nil(t, p.AverageBOM("bf-bof"), "no observations, no representative bill")
}
