// Package finance provides the pure cost and valuation functions the
// decision components share: debt schedules, subsidy application, carbon
// cost series, stranded-asset cost, and full NPV. All functions take explicit
// parameters and never read or write facility state; repeated calls with
// identical inputs yield identical results.
package finance

import (
	"github.com/systemiqofficial/steel-iq-sub000/internal/domain"
)

// DebtPayment is one year of debt service.
type DebtPayment struct {
	Principal float64 `json:"principal"`
	Interest  float64 `json:"interest"`
}

// Total returns principal plus interest.
func (p DebtPayment) Total() float64 {
	return p.Principal + p.Interest
}

// DebtSchedule builds a straight-line amortization schedule: constant
// principal repayment with interest on the declining balance. A non-positive
// principal or year count yields an empty schedule.
func DebtSchedule(principal, rate float64, years int) []DebtPayment {
	if principal <= 0 || years <= 0 {
		return nil
	}

	payments := make([]DebtPayment, years)
	annualPrincipal := principal / float64(years)
	outstanding := principal

	for i := 0; i < years; i++ {
		payments[i] = DebtPayment{
			Principal: annualPrincipal,
			Interest:  outstanding * rate,
		}
		outstanding -= annualPrincipal
	}

	return payments
}

// ScheduleNPV discounts a debt schedule at the given rate. Payments are
// assumed to fall at the end of each year.
func ScheduleNPV(payments []DebtPayment, discountRate float64) float64 {
	npv := 0.0
	for i, p := range payments {
		npv += p.Total() / discountFactor(discountRate, i+1)
	}
	return npv
}

// LedgerNPV values a furnace group's legacy debt ledger: each entry is
// expanded into its remaining straight-line schedule at its own contractual
// rate and discounted at discountRate.
func LedgerNPV(ledger []domain.DebtEntry, discountRate float64) float64 {
	npv := 0.0
	for _, entry := range ledger {
		npv += ScheduleNPV(DebtSchedule(entry.Principal, entry.InterestRate, entry.YearsLeft), discountRate)
	}
	return npv
}

// LedgerServiceSeries expands a debt ledger into total annual debt service
// over the given horizon. Entries shorter than the horizon simply stop
// contributing once repaid.
func LedgerServiceSeries(ledger []domain.DebtEntry, horizonYears int) []float64 {
	series := make([]float64, horizonYears)
	for _, entry := range ledger {
		for i, p := range DebtSchedule(entry.Principal, entry.InterestRate, entry.YearsLeft) {
			if i >= horizonYears {
				break
			}
			series[i] += p.Total()
		}
	}
	return series
}

// AgeLedger advances a debt ledger by one year of repayment, dropping
// entries that are fully amortized. The input slice is not modified.
func AgeLedger(ledger []domain.DebtEntry) []domain.DebtEntry {
	var aged []domain.DebtEntry
	for _, entry := range ledger {
		if entry.YearsLeft <= 1 {
			continue
		}
		annualPrincipal := entry.Principal / float64(entry.YearsLeft)
		aged = append(aged, domain.DebtEntry{
			Principal:    entry.Principal - annualPrincipal,
			InterestRate: entry.InterestRate,
			YearsLeft:    entry.YearsLeft - 1,
		})
	}
	return aged
}

func discountFactor(rate float64, year int) float64 {
	factor := 1.0
	for i := 0; i < year; i++ {
		factor *= 1 + rate
	}
	return factor
}
