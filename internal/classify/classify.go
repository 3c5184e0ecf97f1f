// Package classify turns match results into discrepancy records. The mapping
// is a pure function of the result and the provider's amount tolerance.
package classify

import (
	"commission-reconciler/internal/domain"
	"commission-reconciler/internal/rules"
)

// Record classifies a single MatchResult:
//
//	unmatched_order      -> missing_commission, magnitude = expected
//	unmatched_commission -> orphan_commission,  magnitude = billed
//	matched within tolerance -> ok, magnitude 0
//	matched, delta > 0   -> underbilled, magnitude |delta|
//	matched, delta < 0   -> overbilled,  magnitude |delta|
func Record(r domain.MatchResult, tol rules.Tolerance) domain.DiscrepancyRecord {
	rec := domain.DiscrepancyRecord{
		OrderID:  r.OrderID,
		LineID:   r.LineID,
		Provider: r.Provider,
		Period:   r.Period,
		Expected: r.Expected,
		Billed:   r.Billed,
	}
	switch r.Kind {
	case domain.UnmatchedOrder:
		rec.Category = domain.CategoryMissingCommission
		rec.Magnitude = r.Expected.Abs()
	case domain.UnmatchedCommission:
		rec.Category = domain.CategoryOrphanCommission
		rec.Magnitude = r.Billed.Abs()
	default:
		if tol.Within(r.Delta, r.Expected) {
			rec.Category = domain.CategoryOK
			break
		}
		if r.Delta.IsPositive() {
			rec.Category = domain.CategoryUnderbilled
		} else {
			rec.Category = domain.CategoryOverbilled
		}
		rec.Magnitude = r.Delta.Abs()
	}
	return rec
}

// All classifies every result with the owning provider's tolerance.
func All(results []domain.MatchResult, rs *rules.Set) []domain.DiscrepancyRecord {
	records := make([]domain.DiscrepancyRecord, len(results))
	for i, r := range results {
		records[i] = Record(r, rs.ToleranceFor(r.Provider))
	}
	return records
}
