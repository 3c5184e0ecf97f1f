// Package normalize canonicalizes confirmation codes, provider identifiers
// and monetary fields from both record populations into the shared
// representation the matching engine operates on. Normalization is a pure
// function of the input and the rule set; it holds no state of its own.
package normalize

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"commission-reconciler/internal/domain"
	"commission-reconciler/internal/rules"
)

// Normalizer applies the rule set's per-provider normalization patterns.
type Normalizer struct {
	rules *rules.Set
}

// New builds a Normalizer over a validated rule set.
func New(rs *rules.Set) *Normalizer {
	return &Normalizer{rules: rs}
}

// Provider canonicalizes a raw provider spelling via the rule set's alias
// map. An unknown provider is a ConfigurationError: there is no silent
// default.
func (n *Normalizer) Provider(raw string) (string, error) {
	id, ok := n.rules.Resolve(raw)
	if !ok {
		return "", domain.NewConfigurationError("unknown provider %q: no rule entry", strings.TrimSpace(raw))
	}
	return id, nil
}

// Code canonicalizes a raw confirmation code for a provider: drop every
// non-alphanumeric rune, uppercase, then strip the provider's configured
// prefixes and suffixes (compared in the same canonical form) until none
// apply. Stripping the canonical form to a fixpoint is what makes the whole
// operation idempotent: Code(p, Code(p, x)) == Code(p, x).
func (n *Normalizer) Code(providerID, raw string) (string, error) {
	rule, ok := n.rules.Providers[providerID]
	if !ok {
		return "", domain.NewConfigurationError("unknown provider %q: no rule entry", providerID)
	}
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("empty confirmation code")
	}
	code := canonical(raw)
	if code == "" {
		return "", fmt.Errorf("confirmation code %q empty after normalization", raw)
	}
	for changed := true; changed; {
		changed = false
		for _, affix := range rule.StripPrefixes {
			p := canonical(affix)
			if p == "" {
				continue
			}
			if rest := strings.TrimPrefix(code, p); rest != code && rest != "" {
				code, changed = rest, true
			}
		}
		for _, affix := range rule.StripSuffixes {
			sf := canonical(affix)
			if sf == "" {
				continue
			}
			if rest := strings.TrimSuffix(code, sf); rest != code && rest != "" {
				code, changed = rest, true
			}
		}
	}
	return code, nil
}

// canonical keeps only alphanumeric runes and uppercases them.
func canonical(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - 'a' + 'A')
		}
	}
	return b.String()
}

// ExpectedCommission returns the order's expected commission with the
// provider's tax adjustment applied. Orders whose tax treatment equals the
// rule's tax_adjust setting have the amount divided by (1 + tax_rate);
// everything else passes through untouched. Codes are never adjusted.
func (n *Normalizer) ExpectedCommission(o domain.Order) decimal.Decimal {
	rule, ok := n.rules.Providers[o.Provider]
	if !ok || rule.TaxRate == 0 || rule.TaxAdjust == "" || o.TaxTreatment != rule.TaxAdjust {
		return o.Expected
	}
	divisor := decimal.NewFromFloat(1 + rule.TaxRate)
	return o.Expected.Div(divisor).Round(2)
}
