package domain

import "github.com/shopspring/decimal"

// MatchKind classifies how (or whether) an order and a commission line were
// paired.
type MatchKind string

const (
	MatchExact          MatchKind = "exact"
	MatchFuzzy          MatchKind = "fuzzy"
	UnmatchedOrder      MatchKind = "unmatched_order"
	UnmatchedCommission MatchKind = "unmatched_commission"
)

// MatchResult is the outcome of matching for one order, or for one commission
// line no order claimed. Exactly one exists per order that reached the engine
// and one per unclaimed deduplicated commission line.
type MatchResult struct {
	OrderID    string          `json:"order_id,omitempty"`
	LineID     string          `json:"line_id,omitempty"`
	Provider   string          `json:"provider_id"`
	Period     string          `json:"period"`
	Kind       MatchKind       `json:"match_kind"`
	Confidence float64         `json:"confidence"`
	Expected   decimal.Decimal `json:"expected_commission_amount"`
	Billed     decimal.Decimal `json:"billed_amount"`
	Delta      decimal.Decimal `json:"amount_delta"` // expected - billed
}

// Matched reports whether the result binds an order to a commission line.
func (r MatchResult) Matched() bool {
	return r.Kind == MatchExact || r.Kind == MatchFuzzy
}

// DiscrepancyCategory is the audit classification of a MatchResult.
type DiscrepancyCategory string

const (
	CategoryOK                DiscrepancyCategory = "ok"
	CategoryMissingCommission DiscrepancyCategory = "missing_commission"
	CategoryOrphanCommission  DiscrepancyCategory = "orphan_commission"
	CategoryUnderbilled       DiscrepancyCategory = "underbilled"
	CategoryOverbilled        DiscrepancyCategory = "overbilled"
)

// Categories lists every discrepancy category in report order.
var Categories = []DiscrepancyCategory{
	CategoryOK,
	CategoryMissingCommission,
	CategoryOrphanCommission,
	CategoryUnderbilled,
	CategoryOverbilled,
}

// DiscrepancyRecord is derived from exactly one MatchResult and never mutated
// after creation. Magnitude is the absolute amount delta (zero for ok).
type DiscrepancyRecord struct {
	OrderID   string              `json:"order_id,omitempty"`
	LineID    string              `json:"line_id,omitempty"`
	Provider  string              `json:"provider_id"`
	Period    string              `json:"period"`
	Category  DiscrepancyCategory `json:"category"`
	Magnitude decimal.Decimal     `json:"magnitude"`
	Expected  decimal.Decimal     `json:"expected_commission_amount"`
	Billed    decimal.Decimal     `json:"billed_amount"`
}
