// Package aggregate rolls classified discrepancy records up into
// per-provider KPIs and the overall summary table. One deterministic pass;
// nothing is updated incrementally.
package aggregate

import (
	"sort"

	"commission-reconciler/internal/domain"
)

// Summary table category labels, matching the audit workbook the finance
// team has always received.
const (
	SummaryPerfectMatch      = "Perfect Match"
	SummaryCommissionGap     = "Commission Gap"
	SummaryMissingCommission = "Orders Missing Commission"
	SummaryMissingOrder      = "Commission Missing Order"
)

type groupKey struct {
	provider string
	period   string
}

// KPIs groups discrepancy records by (provider, period). Output is sorted by
// provider then period. Leakage follows the contract sign convention:
// missing_commission and underbilled magnitudes add, overbilled subtracts.
func KPIs(records []domain.DiscrepancyRecord) []domain.ProviderKPI {
	groups := make(map[groupKey]*domain.ProviderKPI)
	for _, rec := range records {
		key := groupKey{provider: rec.Provider, period: rec.Period}
		kpi, ok := groups[key]
		if !ok {
			kpi = &domain.ProviderKPI{Provider: rec.Provider, Period: rec.Period}
			groups[key] = kpi
		}
		kpi.TotalExpected = kpi.TotalExpected.Add(rec.Expected)
		kpi.TotalBilled = kpi.TotalBilled.Add(rec.Billed)
		switch rec.Category {
		case domain.CategoryOK:
			kpi.OKCount++
		case domain.CategoryMissingCommission:
			kpi.MissingCommissionCount++
			kpi.Leakage = kpi.Leakage.Add(rec.Magnitude)
		case domain.CategoryOrphanCommission:
			kpi.OrphanCommissionCount++
		case domain.CategoryUnderbilled:
			kpi.UnderbilledCount++
			kpi.Leakage = kpi.Leakage.Add(rec.Magnitude)
		case domain.CategoryOverbilled:
			kpi.OverbilledCount++
			kpi.Leakage = kpi.Leakage.Sub(rec.Magnitude)
		}
	}

	kpis := make([]domain.ProviderKPI, 0, len(groups))
	for _, kpi := range groups {
		kpis = append(kpis, *kpi)
	}
	sort.Slice(kpis, func(i, j int) bool {
		if kpis[i].Provider != kpis[j].Provider {
			return kpis[i].Provider < kpis[j].Provider
		}
		return kpis[i].Period < kpis[j].Period
	})
	return kpis
}

// Summary builds the overall four-row table: matched within tolerance,
// matched with a gap, orders missing commission, commissions missing orders.
func Summary(records []domain.DiscrepancyRecord) []domain.SummaryRow {
	rows := map[string]*domain.SummaryRow{
		SummaryPerfectMatch:      {Category: SummaryPerfectMatch},
		SummaryCommissionGap:     {Category: SummaryCommissionGap},
		SummaryMissingCommission: {Category: SummaryMissingCommission},
		SummaryMissingOrder:      {Category: SummaryMissingOrder},
	}
	for _, rec := range records {
		var row *domain.SummaryRow
		switch rec.Category {
		case domain.CategoryOK:
			row = rows[SummaryPerfectMatch]
		case domain.CategoryUnderbilled, domain.CategoryOverbilled:
			row = rows[SummaryCommissionGap]
		case domain.CategoryMissingCommission:
			row = rows[SummaryMissingCommission]
		case domain.CategoryOrphanCommission:
			row = rows[SummaryMissingOrder]
		default:
			continue
		}
		row.Records++
		row.Expected = row.Expected.Add(rec.Expected)
		row.Billed = row.Billed.Add(rec.Billed)
		row.Gap = row.Gap.Add(rec.Expected.Sub(rec.Billed))
	}
	return []domain.SummaryRow{
		*rows[SummaryPerfectMatch],
		*rows[SummaryCommissionGap],
		*rows[SummaryMissingCommission],
		*rows[SummaryMissingOrder],
	}
}
