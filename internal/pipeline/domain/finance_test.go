package domain

import "testing"

func int64Ptr(v int64) *int64 { return &v }

func TestRecomputeFinancials_DisposalRoundTrip(t *testing.T) {
	in := FinancialSnapshot{
		NegotiatedAmountCents: int64Ptr(5_000_000),
		DepositAmountCents:    int64Ptr(500_000),
		TotalCostCents:        int64Ptr(4_000_000),
	}

	out := RecomputeFinancials(DirectionDisposal, in)

	if out.BalanceOutstandingCents == nil || *out.BalanceOutstandingCents != 4_500_000 {
		t.Fatalf("balance = %v, want 4500000", out.BalanceOutstandingCents)
	}
	if out.ExpectedProfitCents == nil || *out.ExpectedProfitCents != 1_000_000 {
		t.Fatalf("profit = %v, want 1000000", out.ExpectedProfitCents)
	}
	if out.ROIPercentage == nil || *out.ROIPercentage != 25.00 {
		t.Fatalf("roi = %v, want 25.00", out.ROIPercentage)
	}
}

func TestRecomputeFinancials_AcquisitionHasNoProfit(t *testing.T) {
	in := FinancialSnapshot{
		NegotiatedAmountCents: int64Ptr(5_000_000),
		DepositAmountCents:    int64Ptr(500_000),
		TotalCostCents:        int64Ptr(4_000_000),
	}

	out := RecomputeFinancials(DirectionAcquisition, in)

	if out.ExpectedProfitCents != nil {
		t.Fatalf("acquisition profit must stay nil, got %d", *out.ExpectedProfitCents)
	}
	if out.ROIPercentage != nil {
		t.Fatalf("acquisition roi must stay nil, got %v", *out.ROIPercentage)
	}
	if out.BalanceOutstandingCents == nil || *out.BalanceOutstandingCents != 4_500_000 {
		t.Fatalf("balance = %v, want 4500000", out.BalanceOutstandingCents)
	}
}

func TestRecomputeFinancials_UnknownInputsPropagateAsNil(t *testing.T) {
	out := RecomputeFinancials(DirectionDisposal, FinancialSnapshot{})

	if out.BalanceOutstandingCents != nil {
		t.Errorf("balance should be nil without a negotiated amount")
	}
	if out.ExpectedProfitCents != nil {
		t.Errorf("profit should be nil without inputs")
	}
	if out.ROIPercentage != nil {
		t.Errorf("roi should be nil without inputs")
	}
}

func TestRecomputeFinancials_ZeroCostIsNotComputable(t *testing.T) {
	out := RecomputeFinancials(DirectionDisposal, FinancialSnapshot{
		NegotiatedAmountCents: int64Ptr(1_000_000),
		TotalCostCents:        int64Ptr(0),
	})

	if out.ExpectedProfitCents == nil || *out.ExpectedProfitCents != 1_000_000 {
		t.Fatalf("profit = %v, want 1000000", out.ExpectedProfitCents)
	}
	if out.ROIPercentage != nil {
		t.Fatalf("roi must be nil when total cost is zero, got %v", *out.ROIPercentage)
	}
}

func TestRecomputeFinancials_BalanceFlooredAtZero(t *testing.T) {
	out := RecomputeFinancials(DirectionDisposal, FinancialSnapshot{
		NegotiatedAmountCents: int64Ptr(100_000),
		DepositAmountCents:    int64Ptr(250_000),
	})

	if out.BalanceOutstandingCents == nil || *out.BalanceOutstandingCents != 0 {
		t.Fatalf("balance = %v, want 0", out.BalanceOutstandingCents)
	}
}

func TestRecomputeFinancials_ROIRoundsToTwoDecimals(t *testing.T) {
	out := RecomputeFinancials(DirectionDisposal, FinancialSnapshot{
		NegotiatedAmountCents: int64Ptr(1_000_000),
		TotalCostCents:        int64Ptr(300_000),
	})

	// 700000 / 300000 * 100 = 233.333... -> 233.33
	if out.ROIPercentage == nil || *out.ROIPercentage != 233.33 {
		t.Fatalf("roi = %v, want 233.33", out.ROIPercentage)
	}
}
