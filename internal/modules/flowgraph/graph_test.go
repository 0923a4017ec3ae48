package flowgraph

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systemiqofficial/steel-iq-sub000/internal/domain"
)

func testConfig() Config {
	return Config{
		Facilities: map[string]*Facility{
			"iron-1": {
				ID:                "iron-1",
				Capacity:          1_000_000,
				Process:           "dri",
				ProcessEfficiency: 0.95,
				PrimaryOutput:     domain.CommodityDRI,
				EnergyDemandPerTonne: map[domain.EnergyCarrier]float64{
					domain.EnergyNaturalGas: 10,
				},
				EnergyCostPerTonne: map[domain.EnergyCarrier]float64{
					domain.EnergyNaturalGas: 30,
				},
			},
			"steel-1": {
				ID:                "steel-1",
				Capacity:          800_000,
				Process:           "eaf",
				ProcessEfficiency: 0.95,
				PrimaryOutput:     domain.CommodityCrudeSteel,
				EnergyDemandPerTonne: map[domain.EnergyCarrier]float64{
					domain.EnergyElectricity: 2.5,
				},
				EnergyCostPerTonne: map[domain.EnergyCarrier]float64{
					domain.EnergyElectricity: 45,
				},
			},
		},
		SourceCosts: map[string]map[domain.Commodity]float64{
			"ore-mine": {domain.CommodityIronOre: 100},
		},
		VolumeTolerance: 1.0,
		Log:             zerolog.Nop(),
	}
}

func TestBuildDropsEdgesBelowTolerance(t *testing.T) {
	g := Build(testConfig(), []domain.Allocation{
		{Source: "ore-mine", Destination: "iron-1", Commodity: domain.CommodityIronOre, Volume: 0.5},
		{Source: "ore-mine", Destination: "iron-1", Commodity: domain.CommodityIronOre, Volume: 500_000},
	})

	require.Len(t, g.Edges, 1)
	assert.InDelta(t, 500_000, g.Edges[0].Volume, 1e-9)
}

func TestBuildInputAllocationGrossesUpYieldLoss(t *testing.T) {
	g := Build(testConfig(), []domain.Allocation{
		{Source: "ore-mine", Destination: "steel-1", Commodity: domain.CommodityScrap, Volume: 100},
	})

	require.Len(t, g.Edges, 1)
	edge := g.Edges[0]
	assert.Equal(t, "eaf", edge.Process)
	assert.InDelta(t, 0.95, edge.ProcessEfficiency, 1e-9)
	// 100 t of output at 95% yield requires 105.26 t of input.
	assert.InDelta(t, 100/0.95, edge.InputAllocation, 1e-9)
	assert.InDelta(t, 105.26, edge.InputAllocation, 0.01)
}

func TestPropagateConservationSinglePath(t *testing.T) {
	cfg := testConfig()
	g := Build(cfg, []domain.Allocation{
		{Source: "ore-mine", Destination: "iron-1", Commodity: domain.CommodityIronOre, Volume: 400_000, TransportCost: 12},
	})
	require.NoError(t, g.Propagate())

	// Single incoming path, no losses on the delivered commodity: the
	// node's unit cost is exactly source cost + transport + processing
	// energy.
	node := g.NodeByID("iron-1")
	require.NotNil(t, node)
	assert.InDelta(t, 100+12+30, node.UnitCost[domain.CommodityIronOre], 1e-9)
}

func TestPropagateTwoLayers(t *testing.T) {
	cfg := testConfig()
	g := Build(cfg, []domain.Allocation{
		{Source: "ore-mine", Destination: "iron-1", Commodity: domain.CommodityIronOre, Volume: 600_000, TransportCost: 10},
		{Source: "iron-1", Destination: "steel-1", Commodity: domain.CommodityDRI, Volume: 400_000, TransportCost: 8},
	})
	require.NoError(t, g.Propagate())

	iron := g.NodeByID("iron-1")
	require.NotNil(t, iron)

	// Product cost of the iron plant: all incoming cost spread over the
	// 400,000 t it ships out.
	incomingCost := (100.0 + 10 + 30) * 600_000
	wantDRIUnit := incomingCost / 400_000
	assert.InDelta(t, wantDRIUnit, iron.UnitCost[domain.CommodityDRI], 1e-6)

	// The steel plant sees the iron plant's product cost plus transport
	// plus its own processing energy.
	steel := g.NodeByID("steel-1")
	require.NotNil(t, steel)
	assert.InDelta(t, wantDRIUnit+8+45, steel.UnitCost[domain.CommodityDRI], 1e-6)
}

func TestPropagateDetectsCycle(t *testing.T) {
	cfg := testConfig()
	g := Build(cfg, []domain.Allocation{
		{Source: "iron-1", Destination: "steel-1", Commodity: domain.CommodityDRI, Volume: 100_000},
		{Source: "steel-1", Destination: "iron-1", Commodity: domain.CommodityScrap, Volume: 50_000},
	})

	err := g.Propagate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCycle)
}

func TestApplyUtilizationAndBOM(t *testing.T) {
	cfg := testConfig()
	g := Build(cfg, []domain.Allocation{
		{Source: "ore-mine", Destination: "iron-1", Commodity: domain.CommodityIronOre, Volume: 600_000, TransportCost: 10},
		{Source: "iron-1", Destination: "steel-1", Commodity: domain.CommodityDRI, Volume: 400_000, TransportCost: 8},
	})
	require.NoError(t, g.Propagate())

	factors := domain.EmissionFactors{
		string(domain.CommodityIronOre): {SupplyChain: 0.05},
		string(domain.EnergyNaturalGas): {Direct: 0.056},
	}
	results := g.Apply(factors)

	iron := results["iron-1"]
	require.NotNil(t, iron)

	// Utilization: 400,000 t shipped over 1,000,000 t capacity.
	assert.InDelta(t, 0.4, iron.Utilization, 1e-9)
	assert.False(t, iron.OverAllocated())

	// Material line: demand grossed up by yield, cost excludes this
	// facility's own processing energy.
	ore := iron.BOM.Materials[domain.CommodityIronOre]
	assert.InDelta(t, 600_000/0.95, ore.Demand, 1e-6)
	assert.InDelta(t, (100.0+10)*600_000, ore.TotalCost, 1e-6)

	// Energy line: demand and cost scale with output volume.
	gas := iron.BOM.Energy[domain.EnergyNaturalGas]
	assert.InDelta(t, 10*400_000, gas.Demand, 1e-6)
	assert.InDelta(t, 30*400_000, gas.TotalCost, 1e-6)

	// Emissions sum boundaries independently from the bill of materials.
	assert.InDelta(t, ore.Demand*0.05, iron.Emissions.SupplyChain, 1e-6)
	assert.InDelta(t, gas.Demand*0.056, iron.Emissions.Direct, 1e-6)
	assert.Zero(t, iron.Emissions.Indirect)
}

func TestApplyIdleFacility(t *testing.T) {
	cfg := testConfig()
	// steel-1 receives nothing and ships nothing this year.
	g := Build(cfg, []domain.Allocation{
		{Source: "ore-mine", Destination: "iron-1", Commodity: domain.CommodityIronOre, Volume: 200_000},
	})
	require.NoError(t, g.Propagate())

	results := g.Apply(nil)
	_, present := results["steel-1"]
	assert.False(t, present, "facilities outside the allocation simply do not appear")

	iron := results["iron-1"]
	require.NotNil(t, iron)
	assert.Zero(t, iron.Utilization, "no outgoing volume means zero utilization, not an error")
	assert.Empty(t, iron.BOM.Energy[domain.EnergyNaturalGas].Demand)
}

func TestApplyFlagsOverAllocation(t *testing.T) {
	cfg := testConfig()
	g := Build(cfg, []domain.Allocation{
		{Source: "ore-mine", Destination: "iron-1", Commodity: domain.CommodityIronOre, Volume: 1_500_000},
		{Source: "iron-1", Destination: "steel-1", Commodity: domain.CommodityDRI, Volume: 1_200_000},
	})
	require.NoError(t, g.Propagate())

	results := g.Apply(nil)
	iron := results["iron-1"]
	require.NotNil(t, iron)

	assert.True(t, iron.OverAllocated())
	assert.InDelta(t, 1.2, iron.RawUtilization, 1e-9)
	assert.InDelta(t, 1.0, iron.Utilization, 1e-9, "clamped for downstream use")
}
