// Package matching pairs one provider's orders with its commission lines.
// Exact key equality is tried first, then weighted fuzzy similarity over the
// candidate block. Committed matches claim their line: no commission line is
// ever referenced by two committed results. Fuzzy claims may be preempted by
// a higher-confidence claim on the same line; exact claims never are.
package matching

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"commission-reconciler/internal/domain"
	"commission-reconciler/internal/index"
	"commission-reconciler/internal/rules"
)

// Engine matches a single provider shard. All claim state is confined to one
// Run call, so shards for different providers can run concurrently with no
// shared mutable state.
type Engine struct {
	provider string
	rules    *rules.Set
	log      zerolog.Logger
}

// NewEngine builds a matching engine for one provider.
func NewEngine(provider string, rs *rules.Set, log zerolog.Logger) *Engine {
	return &Engine{
		provider: provider,
		rules:    rs,
		log:      log.With().Str("provider", provider).Logger(),
	}
}

// Outcome carries everything one shard produced.
type Outcome struct {
	Results  []domain.MatchResult
	Warnings []domain.Warning
	Rejects  []domain.Reject
}

// commitment records which order currently holds a line and at what
// confidence.
type commitment struct {
	orderIdx   int
	orderID    string
	kind       domain.MatchKind
	confidence float64
}

// orderState is the mutable per-order outcome until the run finishes.
type orderState struct {
	line       *domain.CommissionLine
	kind       domain.MatchKind
	confidence float64
	rejected   bool
}

// Run matches every order against the indexed commission lines and emits one
// MatchResult per order plus one per still-unclaimed line. Orders are
// processed in input order, which together with the tie-break rules makes
// the outcome deterministic.
func (e *Engine) Run(orders []domain.Order, ix *index.Index) Outcome {
	var out Outcome
	threshold := e.rules.ThresholdFor(e.provider)

	claims := make(map[*domain.CommissionLine]commitment)
	states := make([]orderState, len(orders))

	for i := range orders {
		o := &orders[i]
		if reason := recheck(o); reason != "" {
			states[i].rejected = true
			out.Rejects = append(out.Rejects, domain.Reject{
				Source:   "orders",
				RecordID: o.OrderID,
				Reason:   reason,
			})
			continue
		}

		if e.tryExact(i, o, ix, claims, states, &out) {
			continue
		}
		e.tryFuzzy(i, o, ix, claims, states, &out, threshold)
	}

	for i := range orders {
		if states[i].rejected {
			continue
		}
		out.Results = append(out.Results, e.result(&orders[i], states[i]))
	}
	for _, line := range ix.Lines() {
		if _, claimed := claims[line]; claimed {
			continue
		}
		out.Results = append(out.Results, domain.MatchResult{
			LineID:   line.LineID,
			Provider: e.provider,
			Period:   line.Period,
			Kind:     domain.UnmatchedCommission,
			Billed:   line.Billed,
			Delta:    line.Billed.Neg(),
		})
	}
	return out
}

// tryExact runs steps 1-2 of the matching algorithm. Returns true when the
// order was committed.
func (e *Engine) tryExact(idx int, o *domain.Order, ix *index.Index, claims map[*domain.CommissionLine]commitment, states []orderState, out *Outcome) bool {
	var available []*domain.CommissionLine
	for _, line := range ix.LookupExact(o.Code) {
		if prior, claimed := claims[line]; claimed && prior.kind == domain.MatchExact {
			continue // exact claims are never preempted
		}
		available = append(available, line)
	}
	if len(available) == 0 {
		return false
	}

	best := available[0]
	if len(available) > 1 {
		sort.Slice(available, func(i, j int) bool {
			di := o.Expected.Sub(available[i].Billed).Abs()
			dj := o.Expected.Sub(available[j].Billed).Abs()
			if !di.Equal(dj) {
				return di.LessThan(dj)
			}
			return available[i].LineID < available[j].LineID
		})
		best = available[0]
		out.Warnings = append(out.Warnings, domain.Warning{
			Kind:     domain.WarnAmbiguousExact,
			Provider: e.provider,
			OrderID:  o.OrderID,
			LineID:   best.LineID,
			Detail:   fmt.Sprintf("code %s had %d exact candidates; rejected %s", o.Code, len(available), siblingIDs(available[1:])),
		})
	}

	e.commit(idx, o, best, domain.MatchExact, 1.0, claims, states, out)
	return true
}

// tryFuzzy runs step 3: score the block candidates and commit the best one
// when it clears the acceptance threshold.
func (e *Engine) tryFuzzy(idx int, o *domain.Order, ix *index.Index, claims map[*domain.CommissionLine]commitment, states []orderState, out *Outcome, threshold float64) {
	var best *domain.CommissionLine
	var bestScore float64
	for _, line := range ix.LookupBlock(o.Code) {
		if prior, claimed := claims[line]; claimed {
			if prior.kind == domain.MatchExact {
				continue
			}
			// a fuzzy claim is only takeable at strictly higher confidence
			if score := e.score(o, line); score > prior.confidence {
				if best == nil || better(score, line, bestScore, best) {
					best, bestScore = line, score
				}
			}
			continue
		}
		if score := e.score(o, line); best == nil || better(score, line, bestScore, best) {
			best, bestScore = line, score
		}
	}
	if best == nil || bestScore < threshold {
		states[idx] = orderState{kind: domain.UnmatchedOrder}
		return
	}

	e.commit(idx, o, best, domain.MatchFuzzy, bestScore, claims, states, out)
	if bestScore < threshold+rules.NearThresholdBand {
		out.Warnings = append(out.Warnings, domain.Warning{
			Kind:     domain.WarnNearThreshold,
			Provider: e.provider,
			OrderID:  o.OrderID,
			LineID:   best.LineID,
			Detail:   fmt.Sprintf("fuzzy score %.3f accepted near threshold %.2f", bestScore, threshold),
		})
	}
}

// commit claims the line for the order, displacing a weaker fuzzy claim if
// one holds it.
func (e *Engine) commit(idx int, o *domain.Order, line *domain.CommissionLine, kind domain.MatchKind, confidence float64, claims map[*domain.CommissionLine]commitment, states []orderState, out *Outcome) {
	if prior, claimed := claims[line]; claimed {
		states[prior.orderIdx] = orderState{kind: domain.UnmatchedOrder}
		out.Warnings = append(out.Warnings, domain.Warning{
			Kind:     domain.WarnFuzzyPreempted,
			Provider: e.provider,
			OrderID:  o.OrderID,
			LineID:   line.LineID,
			Detail:   fmt.Sprintf("displaced order %s fuzzy claim at %.3f with %.3f", prior.orderID, prior.confidence, confidence),
		})
		e.log.Debug().
			Str("line_id", line.LineID).
			Str("displaced_order_id", prior.orderID).
			Float64("prior_confidence", prior.confidence).
			Float64("confidence", confidence).
			Msg("fuzzy claim preempted")
	}
	claims[line] = commitment{orderIdx: idx, orderID: o.OrderID, kind: kind, confidence: confidence}
	states[idx] = orderState{line: line, kind: kind, confidence: confidence}
}

// result materializes the final MatchResult for one order.
func (e *Engine) result(o *domain.Order, st orderState) domain.MatchResult {
	if st.line == nil {
		return domain.MatchResult{
			OrderID:  o.OrderID,
			Provider: e.provider,
			Period:   o.BookingPeriod(),
			Kind:     domain.UnmatchedOrder,
			Expected: o.Expected,
			Delta:    o.Expected,
		}
	}
	return domain.MatchResult{
		OrderID:    o.OrderID,
		LineID:     st.line.LineID,
		Provider:   e.provider,
		Period:     st.line.Period,
		Kind:       st.kind,
		Confidence: st.confidence,
		Expected:   o.Expected,
		Billed:     st.line.Billed,
		Delta:      o.Expected.Sub(st.line.Billed),
	}
}

// recheck guards the engine against records the boundary should have
// rejected already. Failing a single order never aborts the run.
func recheck(o *domain.Order) string {
	if o.Code == "" {
		return "empty normalized confirmation code"
	}
	if o.Expected.IsNegative() {
		return "negative expected commission amount"
	}
	return ""
}

// better orders candidates by score, then lowest line id for determinism.
func better(score float64, line *domain.CommissionLine, bestScore float64, best *domain.CommissionLine) bool {
	if score != bestScore {
		return score > bestScore
	}
	return line.LineID < best.LineID
}

func siblingIDs(lines []*domain.CommissionLine) string {
	ids := make([]string, len(lines))
	for i, line := range lines {
		ids[i] = line.LineID
	}
	return strings.Join(ids, ", ")
}
