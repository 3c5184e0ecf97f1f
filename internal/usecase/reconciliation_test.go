package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commission-reconciler/internal/aggregate"
	"commission-reconciler/internal/domain"
	"commission-reconciler/internal/rules"
	"commission-reconciler/internal/usecase"
	mock_usecase "commission-reconciler/internal/usecase/mocks"
)

const (
	ordersPath = "feeds/orders.csv"
	acmePath   = "feeds/acme_march.csv"
)

var bookingDate = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

func testRules(t *testing.T) *rules.Set {
	t.Helper()
	set, err := rules.Parse([]byte(`{"providers": {"ACME": {"aliases": ["Acme Travel"]}}}`))
	require.NoError(t, err)
	return set
}

func rawOrder(id, code string, expected float64) domain.Order {
	return domain.Order{
		OrderID:      id,
		RawCode:      code,
		RawProvider:  "Acme Travel",
		Expected:     decimal.NewFromFloat(expected),
		Currency:     "USD",
		BookingDate:  bookingDate,
		TaxTreatment: domain.TaxNet,
	}
}

func rawLine(id, code string, billed float64) domain.CommissionLine {
	return domain.CommissionLine{
		LineID:   id,
		RawCode:  code,
		Provider: "ACME",
		Billed:   decimal.NewFromFloat(billed),
		Currency: "USD",
		Period:   "2024-03",
	}
}

func newUseCase(t *testing.T, orders []domain.Order, lines []domain.CommissionLine) *usecase.ReconciliationUseCase {
	t.Helper()
	ctrl := gomock.NewController(t)
	repo := mock_usecase.NewMockFeedRepository(ctrl)
	repo.EXPECT().GetOrders(gomock.Any(), ordersPath).Return(orders, nil, nil)
	repo.EXPECT().GetCommissionLines(gomock.Any(), []string{acmePath}).Return(lines, nil, nil)
	return usecase.NewReconciliationUseCase(repo, testRules(t), zerolog.Nop())
}

func runInput() usecase.RunInput {
	return usecase.RunInput{OrdersPath: ordersPath, CommissionPaths: []string{acmePath}}
}

func TestRun_EndToEnd(t *testing.T) {
	orders := []domain.Order{
		rawOrder("O1", "ABC-123", 100), // exact match, within tolerance
		rawOrder("O2", "NOPE-1", 150),  // no candidate at all
		rawOrder("O3", "FUZ-123", 100), // fuzzy match, underbilled
	}
	lines := []domain.CommissionLine{
		rawLine("C1", "abc123", 100),
		rawLine("C2", "orphan9", 80),
		rawLine("C3", "FUZ-124", 90),
	}
	uc := newUseCase(t, orders, lines)

	report, err := uc.Run(context.Background(), runInput())
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 3, report.OrderCount)
	assert.Equal(t, 3, report.CommissionLineCount)
	assert.Equal(t, 2, report.MatchedCount)
	assert.Equal(t, 1, report.UnmatchedOrders)
	assert.Equal(t, 1, report.UnmatchedCommissions)

	// conservation: every order and every deduplicated line in exactly one result
	require.Len(t, report.Results, 4)
	require.Len(t, report.Discrepancies, 4)

	categories := make(map[domain.DiscrepancyCategory]int)
	for _, rec := range report.Discrepancies {
		categories[rec.Category]++
	}
	assert.Equal(t, 1, categories[domain.CategoryOK])
	assert.Equal(t, 1, categories[domain.CategoryMissingCommission])
	assert.Equal(t, 1, categories[domain.CategoryOrphanCommission])
	assert.Equal(t, 1, categories[domain.CategoryUnderbilled])

	require.Len(t, report.KPIs, 1)
	kpi := report.KPIs[0]
	assert.Equal(t, "ACME", kpi.Provider)
	assert.Equal(t, "2024-03", kpi.Period)
	assert.Equal(t, 4, kpi.TotalRecords(), "category counts sum to the group total")
	// leakage: missing 150 + underbilled 10, nothing overbilled
	assert.True(t, kpi.Leakage.Equal(decimal.NewFromInt(160)), "got %s", kpi.Leakage)

	require.Len(t, report.Summary, 4)
	assert.Equal(t, aggregate.SummaryPerfectMatch, report.Summary[0].Category)
	assert.Equal(t, 1, report.Summary[0].Records)
}

func TestRun_DeduplicatesBeforeMatching(t *testing.T) {
	orders := []domain.Order{rawOrder("O1", "ABC-123", 100)}
	lines := []domain.CommissionLine{
		rawLine("C1", "abc123", 50),
		rawLine("C2", "abc123", 50),
	}
	uc := newUseCase(t, orders, lines)

	report, err := uc.Run(context.Background(), runInput())
	require.NoError(t, err)

	assert.Equal(t, 2, report.CommissionLineCount)
	assert.Equal(t, 1, report.DedupedLineCount)

	require.Len(t, report.Results, 1)
	r := report.Results[0]
	assert.Equal(t, domain.MatchExact, r.Kind)
	assert.True(t, r.Billed.Equal(decimal.NewFromInt(100)), "duplicates summed, got %s", r.Billed)
	assert.True(t, r.Delta.IsZero())

	require.Len(t, report.Ledger.Warnings, 1)
	assert.Equal(t, domain.WarnDuplicateMerged, report.Ledger.Warnings[0].Kind)
}

func TestRun_UnknownProviderIsFatal(t *testing.T) {
	orders := []domain.Order{rawOrder("O1", "ABC-123", 100)}
	line := rawLine("C1", "abc123", 100)
	line.Provider = "Initech"
	uc := newUseCase(t, orders, []domain.CommissionLine{line})

	report, err := uc.Run(context.Background(), runInput())

	require.Error(t, err)
	var confErr *domain.ConfigurationError
	assert.True(t, errors.As(err, &confErr), "want ConfigurationError, got %v", err)
	assert.Contains(t, err.Error(), "Initech")
	assert.Nil(t, report, "no partial results from an aborted run")
}

func TestRun_BoundaryRejectsContinue(t *testing.T) {
	orders := []domain.Order{
		rawOrder("O1", "ABC-123", 100),
		rawOrder("O2", "", 50), // missing confirmation code
	}
	lines := []domain.CommissionLine{rawLine("C1", "abc123", 100)}
	uc := newUseCase(t, orders, lines)

	report, err := uc.Run(context.Background(), runInput())
	require.NoError(t, err)

	require.Len(t, report.Ledger.Rejects, 1)
	assert.Equal(t, "O2", report.Ledger.Rejects[0].RecordID)
	assert.Equal(t, "confirmation_code", report.Ledger.Rejects[0].Field)

	// the valid order still matched
	assert.Equal(t, 1, report.MatchedCount)
}

func TestRun_GatewayRejectsRideAlong(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mock_usecase.NewMockFeedRepository(ctrl)
	repo.EXPECT().GetOrders(gomock.Any(), ordersPath).
		Return([]domain.Order{rawOrder("O1", "ABC-123", 100)}, []domain.Reject{
			{Source: "orders.csv", RecordID: "O9", Field: "expected_commission", Reason: "malformed amount"},
		}, nil)
	repo.EXPECT().GetCommissionLines(gomock.Any(), []string{acmePath}).
		Return([]domain.CommissionLine{rawLine("C1", "abc123", 100)}, nil, nil)
	uc := usecase.NewReconciliationUseCase(repo, testRules(t), zerolog.Nop())

	report, err := uc.Run(context.Background(), runInput())
	require.NoError(t, err)

	require.Len(t, report.Ledger.Rejects, 1)
	assert.Equal(t, "O9", report.Ledger.Rejects[0].RecordID)
}

func TestRun_RepositoryErrorPropagates(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mock_usecase.NewMockFeedRepository(ctrl)
	repo.EXPECT().GetOrders(gomock.Any(), ordersPath).Return(nil, nil, errors.New("disk gone"))
	uc := usecase.NewReconciliationUseCase(repo, testRules(t), zerolog.Nop())

	_, err := uc.Run(context.Background(), runInput())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not get orders")
}

func TestRun_PeriodFilter(t *testing.T) {
	orders := []domain.Order{
		rawOrder("O1", "ABC-123", 100),
		func() domain.Order {
			o := rawOrder("O2", "XYZ-999", 50)
			o.BookingDate = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
			return o
		}(),
	}
	lines := []domain.CommissionLine{rawLine("C1", "abc123", 100)}
	uc := newUseCase(t, orders, lines)

	in := runInput()
	in.PeriodStart = "2024-03"
	in.PeriodEnd = "2024-04"
	report, err := uc.Run(context.Background(), in)
	require.NoError(t, err)

	// O2 falls outside the requested window entirely
	require.Len(t, report.Results, 1)
	assert.Equal(t, "O1", report.Results[0].OrderID)
}
