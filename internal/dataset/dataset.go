// Package dataset loads the simulation inputs from the data directory:
// the exogenous environment, the starting fleet, and the yearly trade
// allocations produced by the external solver.
package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/systemiqofficial/steel-iq-sub000/internal/domain"
	"github.com/systemiqofficial/steel-iq-sub000/internal/modules/environment"
)

const (
	environmentFile = "environment.json"
	fleetFile       = "fleet.json"
	allocationsFile = "allocations.json"
)

// Dataset is the full set of simulation inputs.
type Dataset struct {
	Environment environment.Data
	PlantGroups []*domain.PlantGroup

	// allocations maps simulated years to the solver's flow list.
	allocations map[int][]domain.Allocation
}

// Load reads the three input files from dir.
func Load(dir string, log zerolog.Logger) (*Dataset, error) {
	ds := &Dataset{allocations: make(map[int][]domain.Allocation)}

	if err := readJSON(filepath.Join(dir, environmentFile), &ds.Environment); err != nil {
		return nil, err
	}
	if err := readJSON(filepath.Join(dir, fleetFile), &ds.PlantGroups); err != nil {
		return nil, err
	}

	// Allocations are keyed by year as JSON object keys.
	raw := make(map[string][]domain.Allocation)
	if err := readJSON(filepath.Join(dir, allocationsFile), &raw); err != nil {
		return nil, err
	}
	for key, flows := range raw {
		year, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("dataset: allocation year %q is not an integer", key)
		}
		ds.allocations[year] = flows
	}

	log.Info().
		Str("dir", dir).
		Int("plant_groups", len(ds.PlantGroups)).
		Int("allocation_years", len(ds.allocations)).
		Int("technologies", len(ds.Environment.Technologies)).
		Msg("Dataset loaded")
	return ds, nil
}

// Allocations returns the solver flows for a year; it satisfies the
// simulation's allocation source.
func (ds *Dataset) Allocations(year int) ([]domain.Allocation, error) {
	flows, ok := ds.allocations[year]
	if !ok {
		return nil, fmt.Errorf("dataset: no allocations for year %d", year)
	}
	return flows, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("dataset: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("dataset: parsing %s: %w", filepath.Base(path), err)
	}
	return nil
}
