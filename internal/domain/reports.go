package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProviderKPI aggregates discrepancy records for one provider and period.
// Recomputed from scratch each run, never incrementally updated.
type ProviderKPI struct {
	Provider string `json:"provider_id"`
	Period   string `json:"period"`

	OKCount                int `json:"ok_count"`
	MissingCommissionCount int `json:"missing_commission_count"`
	OrphanCommissionCount  int `json:"orphan_commission_count"`
	UnderbilledCount       int `json:"underbilled_count"`
	OverbilledCount        int `json:"overbilled_count"`

	TotalExpected decimal.Decimal `json:"total_expected"`
	TotalBilled   decimal.Decimal `json:"total_billed"`

	// Leakage is the net provider-unfavorable exposure:
	// missing_commission + underbilled magnitudes minus overbilled magnitudes.
	// The sign convention is part of the contract.
	Leakage decimal.Decimal `json:"leakage_amount"`
}

// TotalRecords returns the sum of the per-category counts.
func (k ProviderKPI) TotalRecords() int {
	return k.OKCount + k.MissingCommissionCount + k.OrphanCommissionCount +
		k.UnderbilledCount + k.OverbilledCount
}

// SummaryRow is one line of the overall reconciliation summary table.
type SummaryRow struct {
	Category string          `json:"category"`
	Records  int             `json:"records"`
	Expected decimal.Decimal `json:"expected_commission"`
	Billed   decimal.Decimal `json:"billed_commission"`
	Gap      decimal.Decimal `json:"commission_gap"`
}

// RunReport is the complete output of one reconciliation run, handed to the
// export layer. Partial results from a failed run are never exported.
type RunReport struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	OrderCount           int `json:"order_count"`
	CommissionLineCount  int `json:"commission_line_count"`
	DedupedLineCount     int `json:"deduped_line_count"`
	MatchedCount         int `json:"matched_count"`
	UnmatchedOrders      int `json:"unmatched_orders"`
	UnmatchedCommissions int `json:"unmatched_commissions"`

	Results       []MatchResult       `json:"match_results"`
	Discrepancies []DiscrepancyRecord `json:"discrepancy_records"`
	KPIs          []ProviderKPI       `json:"provider_kpis"`
	Summary       []SummaryRow        `json:"summary"`
	Ledger        Ledger              `json:"ledger"`
}
