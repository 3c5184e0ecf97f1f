package matching

import (
	"math"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/shopspring/decimal"

	"commission-reconciler/internal/domain"
)

// score computes the weighted similarity of an order and a candidate line:
// code edit distance, amount proximity, and booking-date proximity to the
// statement period. Each component is in [0,1], so the weighted sum is too.
func (e *Engine) score(o *domain.Order, c *domain.CommissionLine) float64 {
	w := e.rules.WeightsFor(e.provider)
	s := w.Code*codeSimilarity(o.Code, c.Code) +
		w.Amount*amountProximity(o.Expected, c.Billed) +
		w.Date*dateProximity(o.BookingDate, c.Period, e.rules.Defaults.DateWindowDays)
	return math.Min(s, 1)
}

// codeSimilarity is 1 - editDistance/maxLen, floored at 0.
func codeSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	sim := 1 - float64(dist)/float64(maxLen)
	if sim < 0 {
		return 0
	}
	return sim
}

// amountProximity decays linearly with the relative difference between the
// expected and billed amounts.
func amountProximity(expected, billed decimal.Decimal) float64 {
	if expected.IsZero() && billed.IsZero() {
		return 1
	}
	larger := decimal.Max(expected.Abs(), billed.Abs())
	ratio, _ := expected.Sub(billed).Abs().Div(larger).Float64()
	if ratio >= 1 {
		return 0
	}
	return 1 - ratio
}

// dateProximity decays linearly with the distance between the booking date
// and the statement period midpoint, reaching 0 at the window edge. Lines
// without a parseable period score 0 on this component.
func dateProximity(booking time.Time, period string, windowDays int) float64 {
	mid, err := periodMidpoint(period)
	if err != nil {
		return 0
	}
	days := math.Abs(mid.Sub(booking).Hours() / 24)
	if days >= float64(windowDays) {
		return 0
	}
	return 1 - days/float64(windowDays)
}

func periodMidpoint(period string) (time.Time, error) {
	t, err := time.Parse("2006-01", period)
	if err != nil {
		return time.Time{}, err
	}
	return t.AddDate(0, 0, 14), nil
}
