package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systemiqofficial/steel-iq-sub000/internal/domain"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func writeMinimalDataset(t *testing.T, dir string) {
	writeFile(t, dir, "environment.json", `{
		"BaseYear": 2025,
		"Technologies": [{"name": "bf-bof", "product": "steel", "capex_usd_per_tonne": 800}],
		"Prices": {"steel": [600, 620]}
	}`)
	writeFile(t, dir, "fleet.json", `[{
		"id": "pg-1",
		"name": "Test Steel",
		"plants": [{
			"id": "plant-1",
			"plant_group_id": "pg-1",
			"location": {"country": "DE", "region": "EU"},
			"furnace_groups": [{
				"id": "fg-1",
				"plant_id": "plant-1",
				"technology": "bf-bof",
				"product": "steel",
				"capacity": 1000000,
				"status": "operating"
			}]
		}]
	}]`)
	writeFile(t, dir, "allocations.json", `{
		"2025": [{"source": "ore-source", "destination": "fg-1", "commodity": "iron_ore", "volume": 1440000, "transport_cost": 10}]
	}`)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeMinimalDataset(t, dir)

	ds, err := Load(dir, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, 2025, ds.Environment.BaseYear)
	require.Len(t, ds.Environment.Technologies, 1)
	assert.Equal(t, "bf-bof", ds.Environment.Technologies[0].Name)

	require.Len(t, ds.PlantGroups, 1)
	fg := ds.PlantGroups[0].Plants[0].FurnaceGroups[0]
	assert.Equal(t, domain.StatusOperating, fg.Status)
	assert.InDelta(t, 1_000_000, fg.Capacity, 1e-9)

	flows, err := ds.Allocations(2025)
	require.NoError(t, err)
	require.Len(t, flows, 1)
	assert.Equal(t, domain.CommodityIronOre, flows[0].Commodity)
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(dir, zerolog.Nop())
	assert.Error(t, err)
}

func TestAllocationsMissingYear(t *testing.T) {
	dir := t.TempDir()
	writeMinimalDataset(t, dir)

	ds, err := Load(dir, zerolog.Nop())
	require.NoError(t, err)

	_, err = ds.Allocations(2099)
	assert.Error(t, err)
}

func TestLoadRejectsBadYearKey(t *testing.T) {
	dir := t.TempDir()
	writeMinimalDataset(t, dir)
	writeFile(t, dir, "allocations.json", `{"not-a-year": []}`)

	_, err := Load(dir, zerolog.Nop())
	assert.Error(t, err)
}
