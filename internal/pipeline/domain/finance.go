package domain

import "math"

// RecomputeFinancials derives balance, profit and ROI from the recorded
// figures. It never fails: unknown inputs propagate as nil outputs so
// reporting layers can display "pending" instead of erroring.
//
// Profit is only meaningful on the sell side. For ACQUISITION pipelines the
// profit and ROI stay nil until the asset later enters a DISPOSAL pipeline.
func RecomputeFinancials(direction Direction, f FinancialSnapshot) FinancialSnapshot {
	out := f.clone()
	out.BalanceOutstandingCents = nil
	out.ExpectedProfitCents = nil
	out.ROIPercentage = nil

	if f.NegotiatedAmountCents != nil {
		deposit := int64(0)
		if f.DepositAmountCents != nil {
			deposit = *f.DepositAmountCents
		}
		balance := *f.NegotiatedAmountCents - deposit
		if balance < 0 {
			balance = 0
		}
		out.BalanceOutstandingCents = &balance
	}

	if direction != DirectionDisposal {
		return out
	}

	if f.NegotiatedAmountCents != nil && f.TotalCostCents != nil {
		profit := *f.NegotiatedAmountCents - *f.TotalCostCents
		out.ExpectedProfitCents = &profit

		if *f.TotalCostCents > 0 {
			roi := roundTo2(float64(profit) / float64(*f.TotalCostCents) * 100)
			out.ROIPercentage = &roi
		}
	}

	return out
}

// roundTo2 rounds to two decimal places, half away from zero.
func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}
