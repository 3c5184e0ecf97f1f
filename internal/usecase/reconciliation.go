package usecase

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"commission-reconciler/internal/aggregate"
	"commission-reconciler/internal/classify"
	"commission-reconciler/internal/dedupe"
	"commission-reconciler/internal/domain"
	"commission-reconciler/internal/index"
	"commission-reconciler/internal/matching"
	"commission-reconciler/internal/normalize"
	"commission-reconciler/internal/rules"
)

// ReconciliationUseCase orchestrates one reconciliation run: load feeds,
// validate and normalize both populations, shard by provider, match, then
// classify and aggregate after all shards complete.
type ReconciliationUseCase struct {
	repo  FeedRepository
	rules *rules.Set
	log   zerolog.Logger
}

// NewReconciliationUseCase creates a new instance of the usecase.
func NewReconciliationUseCase(repo FeedRepository, rs *rules.Set, log zerolog.Logger) *ReconciliationUseCase {
	return &ReconciliationUseCase{repo: repo, rules: rs, log: log}
}

// RunInput names the feeds for one run. PeriodStart/PeriodEnd ("YYYY-MM")
// optionally restrict the run; empty means no filter.
type RunInput struct {
	OrdersPath      string
	CommissionPaths []string
	PeriodStart     string
	PeriodEnd       string
}

// shard holds one provider's populations plus its slot in the outcome slice.
type shard struct {
	provider string
	orders   []domain.Order
	lines    []domain.CommissionLine
}

// Run executes the full pipeline and returns the assembled report. A
// ConfigurationError aborts before any matching; record-scoped failures land
// in the report's rejects ledger instead. Partial results from a failed run
// are never returned.
func (uc *ReconciliationUseCase) Run(ctx context.Context, in RunInput) (*domain.RunReport, error) {
	started := time.Now().UTC()
	var ledger domain.Ledger

	orders, rejects, err := uc.repo.GetOrders(ctx, in.OrdersPath)
	if err != nil {
		return nil, fmt.Errorf("could not get orders: %w", err)
	}
	ledger.Rejects = append(ledger.Rejects, rejects...)

	lines, rejects, err := uc.repo.GetCommissionLines(ctx, in.CommissionPaths)
	if err != nil {
		return nil, fmt.Errorf("could not get commission lines: %w", err)
	}
	ledger.Rejects = append(ledger.Rejects, rejects...)

	orderCount, lineCount := len(orders), len(lines)

	norm := normalize.New(uc.rules)
	orders, lines, normRejects, err := uc.normalizePopulations(norm, orders, lines)
	if err != nil {
		return nil, err
	}
	ledger.Rejects = append(ledger.Rejects, normRejects...)

	orders, lines = filterPeriod(orders, lines, in.PeriodStart, in.PeriodEnd)

	shards := buildShards(orders, lines)
	outcomes := make([]matching.Outcome, len(shards))
	dedupWarnings := make([][]domain.Warning, len(shards))
	dedupedCount := make([]int, len(shards))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range shards {
		i := i
		sh := shards[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			merged, warnings := dedupe.Merge(sh.lines)
			dedupWarnings[i] = warnings
			dedupedCount[i] = len(merged)
			ix := index.Build(merged)
			outcomes[i] = matching.NewEngine(sh.provider, uc.rules, uc.log).Run(sh.orders, ix)
			uc.log.Debug().
				Str("provider", sh.provider).
				Int("orders", len(sh.orders)).
				Int("lines", len(merged)).
				Msg("shard matched")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("matching aborted: %w", err)
	}

	var results []domain.MatchResult
	dedupedTotal := 0
	for i := range shards {
		ledger.Warnings = append(ledger.Warnings, dedupWarnings[i]...)
		ledger.Warnings = append(ledger.Warnings, outcomes[i].Warnings...)
		ledger.Rejects = append(ledger.Rejects, outcomes[i].Rejects...)
		results = append(results, outcomes[i].Results...)
		dedupedTotal += dedupedCount[i]
	}

	discrepancies := classify.All(results, uc.rules)
	report := &domain.RunReport{
		RunID:               uuid.NewString(),
		StartedAt:           started,
		FinishedAt:          time.Now().UTC(),
		OrderCount:          orderCount,
		CommissionLineCount: lineCount,
		DedupedLineCount:    dedupedTotal,
		Results:             results,
		Discrepancies:       discrepancies,
		KPIs:                aggregate.KPIs(discrepancies),
		Summary:             aggregate.Summary(discrepancies),
		Ledger:              ledger,
	}
	for _, r := range results {
		switch r.Kind {
		case domain.MatchExact, domain.MatchFuzzy:
			report.MatchedCount++
		case domain.UnmatchedOrder:
			report.UnmatchedOrders++
		case domain.UnmatchedCommission:
			report.UnmatchedCommissions++
		}
	}

	uc.log.Info().
		Str("run_id", report.RunID).
		Int("orders", report.OrderCount).
		Int("commission_lines", report.CommissionLineCount).
		Int("matched", report.MatchedCount).
		Int("rejects", len(ledger.Rejects)).
		Msg("reconciliation run complete")
	return report, nil
}

// normalizePopulations validates and canonicalizes both populations. Every
// record-scoped failure is collected; a provider present in the data with no
// rule entry is fatal before any matching begins.
func (uc *ReconciliationUseCase) normalizePopulations(norm *normalize.Normalizer, orders []domain.Order, lines []domain.CommissionLine) ([]domain.Order, []domain.CommissionLine, []domain.Reject, error) {
	var rejects []domain.Reject
	missingProviders := make(map[string]bool)

	keptOrders := orders[:0]
	for _, o := range orders {
		if field, reason := validateOrder(o); reason != "" {
			rejects = append(rejects, domain.Reject{Source: "orders", RecordID: o.OrderID, Field: field, Reason: reason})
			continue
		}
		provider, err := norm.Provider(o.RawProvider)
		if err != nil {
			missingProviders[strings.TrimSpace(o.RawProvider)] = true
			continue
		}
		o.Provider = provider
		code, err := norm.Code(provider, o.RawCode)
		if err != nil {
			rejects = append(rejects, domain.Reject{Source: "orders", RecordID: o.OrderID, Field: "confirmation_code", Reason: err.Error()})
			continue
		}
		o.Code = code
		o.Expected = norm.ExpectedCommission(o)
		keptOrders = append(keptOrders, o)
	}

	keptLines := lines[:0]
	for _, l := range lines {
		if field, reason := validateLine(l); reason != "" {
			rejects = append(rejects, domain.Reject{Source: "commissions", RecordID: l.LineID, Field: field, Reason: reason})
			continue
		}
		provider, err := norm.Provider(l.Provider)
		if err != nil {
			missingProviders[strings.TrimSpace(l.Provider)] = true
			continue
		}
		l.Provider = provider
		code, err := norm.Code(provider, l.RawCode)
		if err != nil {
			rejects = append(rejects, domain.Reject{Source: "commissions", RecordID: l.LineID, Field: "confirmation_code", Reason: err.Error()})
			continue
		}
		l.Code = code
		keptLines = append(keptLines, l)
	}

	if len(missingProviders) > 0 {
		names := make([]string, 0, len(missingProviders))
		for name := range missingProviders {
			names = append(names, name)
		}
		sort.Strings(names)
		return nil, nil, nil, domain.NewConfigurationError("providers present in data with no rule entry: %s", strings.Join(names, ", "))
	}
	return keptOrders, keptLines, rejects, nil
}

// validateOrder checks the required fields of §6; it returns the first
// offending field, while the caller keeps scanning the rest of the feed so
// all offending records are reported.
func validateOrder(o domain.Order) (field, reason string) {
	switch {
	case strings.TrimSpace(o.OrderID) == "":
		return "order_id", "missing required field"
	case strings.TrimSpace(o.RawCode) == "":
		return "confirmation_code", "missing required field"
	case strings.TrimSpace(o.RawProvider) == "":
		return "provider_id", "missing required field"
	case o.BookingDate.IsZero():
		return "booking_date", "missing required field"
	case o.Expected.IsNegative():
		return "expected_commission_amount", "negative amount"
	}
	return "", ""
}

func validateLine(l domain.CommissionLine) (field, reason string) {
	switch {
	case strings.TrimSpace(l.LineID) == "":
		return "line_id", "missing required field"
	case strings.TrimSpace(l.RawCode) == "":
		return "confirmation_code", "missing required field"
	case strings.TrimSpace(l.Provider) == "":
		return "provider_id", "missing required field"
	case strings.TrimSpace(l.Period) == "":
		return "statement_period", "missing required field"
	}
	return "", ""
}

// filterPeriod drops records outside the requested period range. "YYYY-MM"
// strings compare lexicographically, so plain string comparison is correct.
func filterPeriod(orders []domain.Order, lines []domain.CommissionLine, start, end string) ([]domain.Order, []domain.CommissionLine) {
	if start == "" && end == "" {
		return orders, lines
	}
	within := func(period string) bool {
		if start != "" && period < start {
			return false
		}
		if end != "" && period > end {
			return false
		}
		return true
	}
	keptOrders := orders[:0]
	for _, o := range orders {
		if within(o.BookingPeriod()) {
			keptOrders = append(keptOrders, o)
		}
	}
	keptLines := lines[:0]
	for _, l := range lines {
		if within(l.Period) {
			keptLines = append(keptLines, l)
		}
	}
	return keptOrders, keptLines
}

// buildShards splits both populations by provider. Shards are ordered by
// provider id so the combined output is deterministic.
func buildShards(orders []domain.Order, lines []domain.CommissionLine) []shard {
	byProvider := make(map[string]*shard)
	for _, o := range orders {
		sh, ok := byProvider[o.Provider]
		if !ok {
			sh = &shard{provider: o.Provider}
			byProvider[o.Provider] = sh
		}
		sh.orders = append(sh.orders, o)
	}
	for _, l := range lines {
		sh, ok := byProvider[l.Provider]
		if !ok {
			sh = &shard{provider: l.Provider}
			byProvider[l.Provider] = sh
		}
		sh.lines = append(sh.lines, l)
	}

	providers := make([]string, 0, len(byProvider))
	for id := range byProvider {
		providers = append(providers, id)
	}
	sort.Strings(providers)

	shards := make([]shard, 0, len(providers))
	for _, id := range providers {
		shards = append(shards, *byProvider[id])
	}
	return shards
}
