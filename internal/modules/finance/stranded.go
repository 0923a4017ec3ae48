package finance

import (
	"github.com/systemiqofficial/steel-iq-sub000/internal/domain"
)

// StrandedAssetInput carries what a stranded-asset valuation needs.
type StrandedAssetInput struct {
	// Ledger is the furnace group's remaining legacy debt.
	Ledger []domain.DebtEntry

	// DiscountRate discounts both the remaining debt and the foregone
	// operating profit (the facility's cost of debt).
	DiscountRate float64

	// OperatingProfitPerYear is the forecast operating profit, absolute USD,
	// over the remainder of the facility's planned life.
	OperatingProfitPerYear []float64
}

// StrandedAssetCost computes COSA, the cost of abandoning the current
// technology: the NPV of the remaining debt plus the NPV of foregone
// operating profit over the remainder of the facility's planned life.
//
// The result is floored at the remaining-debt NPV alone: foregone profit can
// only add to the penalty, never offset outstanding obligations. This keeps
// the invariant COSA >= remaining-debt NPV for every furnace group.
func StrandedAssetCost(in StrandedAssetInput) float64 {
	debtNPV := LedgerNPV(in.Ledger, in.DiscountRate)

	foregone := 0.0
	for i, profit := range in.OperatingProfitPerYear {
		foregone += profit / discountFactor(in.DiscountRate, i+1)
	}

	if foregone < 0 {
		// A loss-making remainder of life does not reduce COSA below the
		// debt floor.
		foregone = 0
	}

	return debtNPV + foregone
}
