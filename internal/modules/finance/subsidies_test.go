package finance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systemiqofficial/steel-iq-sub000/internal/domain"
)

func subsidyFixtures() []domain.Subsidy {
	return []domain.Subsidy{
		{
			Name:       "green-capex-de",
			Country:    "DE",
			Technology: "dri_eaf",
			Category:   domain.CostCategoryCapex,
			StartYear:  2025,
			EndYear:    2035,
			Relative:   0.20,
		},
		{
			Name:      "capex-grant-de",
			Country:   "DE",
			Category:  domain.CostCategoryCapex,
			StartYear: 2025,
			EndYear:   2030,
			Absolute:  50,
		},
		{
			Name:       "cheap-debt-de",
			Country:    "DE",
			Technology: "dri_eaf",
			Category:   domain.CostCategoryDebt,
			StartYear:  2025,
			EndYear:    2040,
			Absolute:   0.01,
		},
	}
}

func TestCapexWithSubsidies(t *testing.T) {
	result := CapexWithSubsidies(800, subsidyFixtures(), "DE", "dri_eaf", 2027)

	// 800 - 800*0.20 - 50 = 590
	assert.InDelta(t, 590, result.Subsidized, 1e-9)
	assert.InDelta(t, 800, result.Original, 1e-9)
	require.Len(t, result.Applied, 2)
	assert.Contains(t, result.Applied, "green-capex-de")
	assert.Contains(t, result.Applied, "capex-grant-de")
}

func TestCapexWithSubsidiesOutOfWindow(t *testing.T) {
	// 2033: the absolute grant expired in 2030, only the relative one applies.
	result := CapexWithSubsidies(800, subsidyFixtures(), "DE", "dri_eaf", 2033)
	assert.InDelta(t, 640, result.Subsidized, 1e-9)
	assert.Equal(t, []string{"green-capex-de"}, result.Applied)
}

func TestCapexWithSubsidiesWrongScope(t *testing.T) {
	// Different country: nothing matches.
	result := CapexWithSubsidies(800, subsidyFixtures(), "IN", "dri_eaf", 2027)
	assert.InDelta(t, 800, result.Subsidized, 1e-9)
	assert.Empty(t, result.Applied)

	// Different technology: the tech-scoped subsidy drops out, the
	// country-wide grant still applies.
	result = CapexWithSubsidies(800, subsidyFixtures(), "DE", "bf_bof", 2027)
	assert.InDelta(t, 750, result.Subsidized, 1e-9)
}

func TestSubsidizedCostNeverNegative(t *testing.T) {
	generous := []domain.Subsidy{
		{Name: "too-generous", Country: "DE", Category: domain.CostCategoryCapex, StartYear: 2020, EndYear: 2050, Absolute: 10_000},
	}
	result := CapexWithSubsidies(800, generous, "DE", "dri_eaf", 2027)
	assert.Zero(t, result.Subsidized)
}

func TestOpexSeriesWithSubsidiesRespectsWindows(t *testing.T) {
	subsidies := []domain.Subsidy{
		{Name: "opex-support", Country: "DE", Category: domain.CostCategoryOpex, StartYear: 2026, EndYear: 2027, Relative: 0.10},
	}

	series := OpexSeriesWithSubsidies([]float64{100, 100, 100, 100}, subsidies, "DE", "dri_eaf", 2025)
	require.Len(t, series, 4)
	assert.InDelta(t, 100, series[0], 1e-9) // 2025: before window
	assert.InDelta(t, 90, series[1], 1e-9)  // 2026
	assert.InDelta(t, 90, series[2], 1e-9)  // 2027
	assert.InDelta(t, 100, series[3], 1e-9) // 2028: after window
}

func TestCostOfDebtWithSubsidies(t *testing.T) {
	result := CostOfDebtWithSubsidies(0.06, subsidyFixtures(), "DE", "dri_eaf", 2030)
	assert.InDelta(t, 0.05, result.Subsidized, 1e-9)
	assert.Equal(t, []string{"cheap-debt-de"}, result.Applied)
}
