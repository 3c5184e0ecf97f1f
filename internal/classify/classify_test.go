package classify_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commission-reconciler/internal/classify"
	"commission-reconciler/internal/domain"
	"commission-reconciler/internal/rules"
)

func d(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func TestRecord(t *testing.T) {
	tol := rules.Tolerance{Absolute: d(0.25)}

	tests := []struct {
		name          string
		result        domain.MatchResult
		tol           rules.Tolerance
		wantCategory  domain.DiscrepancyCategory
		wantMagnitude decimal.Decimal
	}{
		{
			name: "matched within tolerance",
			result: domain.MatchResult{
				OrderID: "O1", LineID: "C1", Kind: domain.MatchExact,
				Expected: d(100), Billed: d(100.10), Delta: d(-0.10),
			},
			tol:           tol,
			wantCategory:  domain.CategoryOK,
			wantMagnitude: decimal.Zero,
		},
		{
			name: "underbilled beyond tolerance",
			result: domain.MatchResult{
				OrderID: "O3", LineID: "C3", Kind: domain.MatchFuzzy,
				Expected: d(100), Billed: d(90), Delta: d(10),
			},
			tol:           tol,
			wantCategory:  domain.CategoryUnderbilled,
			wantMagnitude: d(10),
		},
		{
			name: "overbilled beyond tolerance",
			result: domain.MatchResult{
				OrderID: "O4", LineID: "C4", Kind: domain.MatchExact,
				Expected: d(100), Billed: d(110), Delta: d(-10),
			},
			tol:           tol,
			wantCategory:  domain.CategoryOverbilled,
			wantMagnitude: d(10),
		},
		{
			name: "unmatched order is missing commission",
			result: domain.MatchResult{
				OrderID: "O2", Kind: domain.UnmatchedOrder,
				Expected: d(150), Delta: d(150),
			},
			tol:           tol,
			wantCategory:  domain.CategoryMissingCommission,
			wantMagnitude: d(150),
		},
		{
			name: "unmatched commission is orphan",
			result: domain.MatchResult{
				LineID: "C2", Kind: domain.UnmatchedCommission,
				Billed: d(80), Delta: d(-80),
			},
			tol:           tol,
			wantCategory:  domain.CategoryOrphanCommission,
			wantMagnitude: d(80),
		},
		{
			name: "percentage band rescues a large absolute delta",
			result: domain.MatchResult{
				OrderID: "O5", LineID: "C5", Kind: domain.MatchExact,
				Expected: d(1000), Billed: d(960), Delta: d(40),
			},
			tol:           rules.Tolerance{Absolute: d(0.25), Percent: 5},
			wantCategory:  domain.CategoryOK,
			wantMagnitude: decimal.Zero,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := classify.Record(tt.result, tt.tol)
			assert.Equal(t, tt.wantCategory, rec.Category)
			assert.True(t, rec.Magnitude.Equal(tt.wantMagnitude),
				"magnitude: got %s want %s", rec.Magnitude, tt.wantMagnitude)
			assert.Equal(t, tt.result.OrderID, rec.OrderID)
			assert.Equal(t, tt.result.LineID, rec.LineID)
		})
	}
}

func TestAll_EveryResultGetsExactlyOneCategory(t *testing.T) {
	set, err := rules.Parse([]byte(`{"providers": {"ACME": {}}}`))
	require.NoError(t, err)

	results := []domain.MatchResult{
		{OrderID: "O1", LineID: "C1", Provider: "ACME", Kind: domain.MatchExact, Expected: d(100), Billed: d(100)},
		{OrderID: "O2", Provider: "ACME", Kind: domain.UnmatchedOrder, Expected: d(150), Delta: d(150)},
		{LineID: "C2", Provider: "ACME", Kind: domain.UnmatchedCommission, Billed: d(80), Delta: d(-80)},
	}
	records := classify.All(results, set)

	require.Len(t, records, len(results))
	valid := make(map[domain.DiscrepancyCategory]bool)
	for _, c := range domain.Categories {
		valid[c] = true
	}
	for _, rec := range records {
		assert.True(t, valid[rec.Category], "unknown category %q", rec.Category)
	}
}
