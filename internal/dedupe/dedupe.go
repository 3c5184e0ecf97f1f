// Package dedupe consolidates duplicate commission lines before matching.
// Providers re-send lines across statement revisions, so one file may carry
// the same confirmation code several times. Identical duplicates are summed
// into one effective line; conflicting duplicates are flagged and kept
// separately matchable.
package dedupe

import (
	"sort"
	"strings"

	"commission-reconciler/internal/domain"
)

type groupKey struct {
	code     string
	period   string
	currency string
}

// Merge deduplicates one provider's commission lines. Groups are keyed by
// (normalized code, statement period, currency):
//   - every billed amount in the group equal → one merged line whose amount
//     is the group sum, keeping the lexicographically smallest line id and
//     recording the constituents; a duplicate_merged warning is emitted;
//   - amounts differ → the lines stay separate and a duplicate_conflict
//     warning is emitted.
//
// Output order is deterministic (by line id).
func Merge(lines []domain.CommissionLine) ([]domain.CommissionLine, []domain.Warning) {
	groups := make(map[groupKey][]domain.CommissionLine)
	order := make([]groupKey, 0, len(lines))
	for _, line := range lines {
		key := groupKey{code: line.Code, period: line.Period, currency: line.Currency}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], line)
	}

	var merged []domain.CommissionLine
	var warnings []domain.Warning
	for _, key := range order {
		group := groups[key]
		if len(group) == 1 {
			merged = append(merged, group[0])
			continue
		}
		sort.Slice(group, func(i, j int) bool { return group[i].LineID < group[j].LineID })

		if identicalAmounts(group) {
			sum := group[0].Billed
			ids := []string{group[0].LineID}
			for _, dup := range group[1:] {
				sum = sum.Add(dup.Billed)
				ids = append(ids, dup.LineID)
			}
			line := group[0]
			line.Billed = sum
			line.MergedFrom = ids
			merged = append(merged, line)
			warnings = append(warnings, domain.Warning{
				Kind:     domain.WarnDuplicateMerged,
				Provider: line.Provider,
				LineID:   line.LineID,
				Detail:   "summed " + strings.Join(ids, ", ") + " for code " + key.code + " period " + key.period,
			})
			continue
		}

		merged = append(merged, group...)
		warnings = append(warnings, domain.Warning{
			Kind:     domain.WarnDuplicateConflict,
			Provider: group[0].Provider,
			LineID:   group[0].LineID,
			Detail:   "conflicting amounts for code " + key.code + " period " + key.period + ": " + lineIDs(group),
		})
	}

	sort.Slice(merged, func(i, j int) bool { return merged[i].LineID < merged[j].LineID })
	return merged, warnings
}

func identicalAmounts(group []domain.CommissionLine) bool {
	for _, dup := range group[1:] {
		if !dup.Billed.Equal(group[0].Billed) {
			return false
		}
	}
	return true
}

func lineIDs(group []domain.CommissionLine) string {
	ids := make([]string, len(group))
	for i, line := range group {
		ids[i] = line.LineID
	}
	return strings.Join(ids, ", ")
}
