// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for all databases (always absolute)
	LogLevel string
	Port     int
	DevMode  bool

	Simulation SimulationConfig
}

// SimulationConfig holds the parameters of a simulation run.
type SimulationConfig struct {
	StartYear     int
	EndYear       int
	Seed          int64
	Deterministic bool // When true, probabilistic filters always pick the best option

	// HorizonYears is the valuation horizon for NPV calculations.
	HorizonYears int

	// RenovationCycleYears is the furnace lifetime between renovations.
	RenovationCycleYears int

	// Annual capacity buildout limits per product, in tonnes of new capacity
	// shared across switch and expansion decisions.
	SteelCapacityLimit float64
	IronCapacityLimit  float64

	// NewPlantReservedShare is the fraction of the annual limit held back for
	// greenfield new-plant capacity, which is tracked separately.
	NewPlantReservedShare float64

	// VolumeTolerance is the minimum trade volume for a flow to appear as an
	// edge in the cost propagation graph.
	VolumeTolerance float64

	// ExpansionCapacity is the capacity of a furnace group added by an
	// ownership expansion decision, in tonnes per year.
	ExpansionCapacity float64
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Determine data directory with fallback logic
	// 1. Check STEELIQ_DATA_DIR environment variable
	// 2. If not set, default to ./data
	// 3. Always resolve to absolute path
	// 4. Ensure directory exists
	dataDir := getEnv("STEELIQ_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "data"
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:  absDataDir,
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Port:     getEnvAsInt("GO_PORT", 8001),
		DevMode:  getEnvAsBool("DEV_MODE", false),
		Simulation: SimulationConfig{
			StartYear:             getEnvAsInt("SIM_START_YEAR", 2025),
			EndYear:               getEnvAsInt("SIM_END_YEAR", 2050),
			Seed:                  int64(getEnvAsInt("SIM_SEED", 42)),
			Deterministic:         getEnvAsBool("SIM_DETERMINISTIC", false),
			HorizonYears:          getEnvAsInt("SIM_HORIZON_YEARS", 20),
			RenovationCycleYears:  getEnvAsInt("SIM_RENOVATION_CYCLE_YEARS", 20),
			SteelCapacityLimit:    getEnvAsFloat("SIM_STEEL_CAPACITY_LIMIT", 60_000_000),
			IronCapacityLimit:     getEnvAsFloat("SIM_IRON_CAPACITY_LIMIT", 50_000_000),
			NewPlantReservedShare: getEnvAsFloat("SIM_NEW_PLANT_RESERVED_SHARE", 0.25),
			VolumeTolerance:       getEnvAsFloat("SIM_VOLUME_TOLERANCE", 1.0),
			ExpansionCapacity:     getEnvAsFloat("SIM_EXPANSION_CAPACITY", 2_500_000),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	sim := c.Simulation
	if sim.EndYear < sim.StartYear {
		return fmt.Errorf("SIM_END_YEAR (%d) must not precede SIM_START_YEAR (%d)", sim.EndYear, sim.StartYear)
	}
	if sim.HorizonYears <= 0 {
		return fmt.Errorf("SIM_HORIZON_YEARS must be positive, got %d", sim.HorizonYears)
	}
	if sim.NewPlantReservedShare < 0 || sim.NewPlantReservedShare >= 1 {
		return fmt.Errorf("SIM_NEW_PLANT_RESERVED_SHARE must be in [0, 1), got %f", sim.NewPlantReservedShare)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
