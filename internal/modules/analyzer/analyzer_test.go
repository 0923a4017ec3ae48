package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systemiqofficial/steel-iq-sub000/internal/domain"
	"github.com/systemiqofficial/steel-iq-sub000/internal/modules/finance"
)

func testFurnaceGroup() *domain.FurnaceGroup {
	bom := domain.NewBillOfMaterials()
	// 300 USD/t at 900,000 t of production.
	bom.Materials[domain.CommodityIronOre] = domain.LineItem{Demand: 1_400_000, TotalCost: 200_000_000}
	bom.Energy[domain.EnergyCoal] = domain.LineItem{Demand: 9_000_000, TotalCost: 70_000_000}

	return &domain.FurnaceGroup{
		ID:              "fg-1",
		PlantID:         "plant-1",
		Technology:      "bf-bof",
		Product:         domain.ProductSteel,
		Capacity:        1_000_000,
		UtilizationRate: 0.9,
		Status:          domain.StatusOperating,
		EquityShare:     0.3,
		CostOfDebt:      0.06,
		DebtLedger: []domain.DebtEntry{
			{Principal: 100_000_000, InterestRate: 0.05, YearsLeft: 5},
		},
		BOM: bom,
	}
}

func testInputs() Inputs {
	driBOM := domain.NewBillOfMaterials()
	// Per-tonne representative bill: 350 USD/t.
	driBOM.Materials[domain.CommodityIronOre] = domain.LineItem{Demand: 1.4, TotalCost: 250}
	driBOM.Energy[domain.EnergyNaturalGas] = domain.LineItem{Demand: 10, TotalCost: 100}

	return Inputs{
		Year: 2030,
		Plant: &domain.Plant{
			ID:       "plant-1",
			Location: domain.Location{Country: "DE", Region: "EU"},
		},
		Candidates: []string{"bf-bof", "dri-eaf"},
		Technologies: map[string]domain.Technology{
			"bf-bof": {
				Name: "bf-bof", Product: domain.ProductSteel,
				CapexUSDPerTonne: 800, BrownfieldMultiplier: 0.2,
			},
			"dri-eaf": {
				Name: "dri-eaf", Product: domain.ProductSteel,
				CapexUSDPerTonne: 1100, BrownfieldMultiplier: 0.3,
			},
		},
		PricePerTonne:      []float64{600},
		CarbonPrices:       []float64{0},
		CostOfEquity:       0.08,
		CostOfDebt:         0.06,
		HorizonYears:       20,
		RemainingLifeYears: 5,
		AverageBOMs: map[string]*domain.BillOfMaterials{
			"dri-eaf": driBOM,
		},
	}
}

func TestAnalyzeEmptyWithoutCandidates(t *testing.T) {
	in := testInputs()
	in.Candidates = nil

	result := Analyze(testFurnaceGroup(), in)
	assert.Empty(t, result.Options)
}

func TestAnalyzeCOSAFloor(t *testing.T) {
	fg := testFurnaceGroup()
	result := Analyze(fg, testInputs())

	debtNPV := finance.LedgerNPV(fg.DebtLedger, fg.CostOfDebt)
	assert.GreaterOrEqual(t, result.COSA, debtNPV)

	// A loss-making remainder of life pins COSA exactly at the debt floor.
	loss := testInputs()
	loss.PricePerTonne = []float64{100} // well under the 300 USD/t opex
	lossResult := Analyze(fg, loss)
	assert.InDelta(t, debtNPV, lossResult.COSA, 1e-6)
}

func TestAnalyzeNPVAdjustment(t *testing.T) {
	result := Analyze(testFurnaceGroup(), testInputs())

	current, ok := result.Options["bf-bof"]
	require.True(t, ok)
	assert.True(t, current.Brownfield)
	assert.Equal(t, current.RawNPV, current.NPV, "staying pays no stranding penalty")

	target, ok := result.Options["dri-eaf"]
	require.True(t, ok)
	assert.False(t, target.Brownfield)
	assert.InDelta(t, target.RawNPV-result.COSA, target.NPV, 1e-9)
}

func TestAnalyzeBrownfieldCapexMultiplier(t *testing.T) {
	result := Analyze(testFurnaceGroup(), testInputs())

	current := result.Options["bf-bof"]
	assert.InDelta(t, 800*0.2, current.Capex.Original, 1e-9)

	target := result.Options["dri-eaf"]
	assert.InDelta(t, 1100, target.Capex.Original, 1e-9)
}

func TestAnalyzeIdempotent(t *testing.T) {
	fg := testFurnaceGroup()
	in := testInputs()

	first := Analyze(fg, in)
	second := Analyze(fg, in)
	assert.Equal(t, first, second)
}

func TestAnalyzeSkipsOptionsWithMissingData(t *testing.T) {
	in := testInputs()
	in.Candidates = append(in.Candidates, "h2-dri", "scrap-eaf")
	// h2-dri has no capex data; scrap-eaf has capex but no representative BOM.
	in.Technologies["h2-dri"] = domain.Technology{Name: "h2-dri", Product: domain.ProductSteel}
	in.Technologies["scrap-eaf"] = domain.Technology{
		Name: "scrap-eaf", Product: domain.ProductSteel, CapexUSDPerTonne: 900,
	}

	result := Analyze(testFurnaceGroup(), in)
	assert.NotContains(t, result.Options, "h2-dri")
	assert.NotContains(t, result.Options, "scrap-eaf")
	assert.Contains(t, result.Options, "dri-eaf")
}

func TestAnalyzeCompanionProcessPrerequisite(t *testing.T) {
	in := testInputs()
	tech := in.Technologies["dri-eaf"]
	tech.RequiresProcess = "dri"
	in.Technologies["dri-eaf"] = tech

	result := Analyze(testFurnaceGroup(), in)
	assert.NotContains(t, result.Options, "dri-eaf", "no on-site dri unit")

	in.Plant.FurnaceGroups = []*domain.FurnaceGroup{
		{Technology: "dri", Status: domain.StatusOperating},
	}
	result = Analyze(testFurnaceGroup(), in)
	assert.Contains(t, result.Options, "dri-eaf")
}

func TestAnalyzeMissingCurrentBOMSkipsRenovation(t *testing.T) {
	fg := testFurnaceGroup()
	fg.BOM = nil

	result := Analyze(fg, testInputs())
	assert.NotContains(t, result.Options, "bf-bof")
	// The switch option survives on the representative bill, and COSA falls
	// back to the pure debt floor.
	assert.Contains(t, result.Options, "dri-eaf")
	assert.InDelta(t, finance.LedgerNPV(fg.DebtLedger, fg.CostOfDebt), result.COSA, 1e-9)
}

func TestResultBest(t *testing.T) {
	result := Result{Options: map[string]Option{
		"a": {Technology: "a", NPV: 5},
		"b": {Technology: "b", NPV: 12},
		"c": {Technology: "c", NPV: -3},
	}}

	best, ok := result.Best()
	require.True(t, ok)
	assert.Equal(t, "b", best.Technology)

	_, ok = Result{}.Best()
	assert.False(t, ok)
}
