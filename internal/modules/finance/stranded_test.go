package finance

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/systemiqofficial/steel-iq-sub000/internal/domain"
)

func TestStrandedAssetCostFloorsAtDebtNPV(t *testing.T) {
	ledger := []domain.DebtEntry{
		{Principal: 10_000_000, InterestRate: 0.05, YearsLeft: 8},
	}
	debtNPV := LedgerNPV(ledger, 0.05)

	// Loss-making remainder of life: foregone profit must not reduce COSA
	// below the remaining-debt NPV.
	cosa := StrandedAssetCost(StrandedAssetInput{
		Ledger:                 ledger,
		DiscountRate:           0.05,
		OperatingProfitPerYear: []float64{-2_000_000, -1_500_000, -500_000},
	})
	assert.InDelta(t, debtNPV, cosa, 1e-6)
}

func TestStrandedAssetCostAddsForegoneProfit(t *testing.T) {
	ledger := []domain.DebtEntry{
		{Principal: 10_000_000, InterestRate: 0.05, YearsLeft: 8},
	}
	debtNPV := LedgerNPV(ledger, 0.05)

	cosa := StrandedAssetCost(StrandedAssetInput{
		Ledger:                 ledger,
		DiscountRate:           0.05,
		OperatingProfitPerYear: []float64{3_000_000, 3_000_000},
	})

	foregone := 3_000_000/1.05 + 3_000_000/(1.05*1.05)
	assert.InDelta(t, debtNPV+foregone, cosa, 1e-6)
	assert.GreaterOrEqual(t, cosa, debtNPV, "COSA >= remaining debt NPV for all inputs")
}

func TestStrandedAssetCostNoDebtNoProfit(t *testing.T) {
	cosa := StrandedAssetCost(StrandedAssetInput{DiscountRate: 0.05})
	assert.Zero(t, cosa)
}
