// Package rules holds the declarative reconciliation rule set: per-provider
// code normalization patterns, fuzzy-match weights, acceptance thresholds and
// amount tolerances. The rule set is read-only to the engine and is passed
// explicitly into every normalization and matching call.
package rules

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"commission-reconciler/internal/domain"
)

// Default values applied when a provider entry leaves a field unset.
const (
	DefaultAcceptanceThreshold = 0.80
	DefaultDateWindowDays      = 45

	// NearThresholdBand is the width above the acceptance threshold within
	// which an accepted fuzzy match still earns an audit warning.
	NearThresholdBand = 0.05
)

// DefaultTolerance mirrors the historical reconciliation default of a 0.25
// absolute band with no percentage component.
func DefaultTolerance() Tolerance {
	return Tolerance{Absolute: decimal.NewFromFloat(0.25)}
}

// DefaultWeights returns the default fuzzy similarity coefficients.
func DefaultWeights() Weights {
	return Weights{Code: 0.5, Amount: 0.3, Date: 0.2}
}

// Weights are the fuzzy similarity coefficients. They must sum to 1.
type Weights struct {
	Code   float64 `json:"code"`
	Amount float64 `json:"amount"`
	Date   float64 `json:"date"`
}

// Tolerance is the amount band within which a matched pair counts as ok.
// A delta is within tolerance when it falls inside the absolute band OR the
// percentage band, whichever is wider for the amount at hand.
type Tolerance struct {
	Absolute decimal.Decimal `json:"absolute"`
	Percent  float64         `json:"percent"`
}

// Within reports whether |delta| is inside the band relative to expected.
func (t Tolerance) Within(delta, expected decimal.Decimal) bool {
	abs := delta.Abs()
	if abs.LessThanOrEqual(t.Absolute) {
		return true
	}
	if t.Percent <= 0 {
		return false
	}
	band := expected.Abs().Mul(decimal.NewFromFloat(t.Percent / 100))
	return abs.LessThanOrEqual(band)
}

// Provider is the rule entry for a single commission provider.
type Provider struct {
	// Aliases are raw provider spellings that canonicalize to this entry.
	Aliases []string `json:"aliases,omitempty"`

	// StripPrefixes and StripSuffixes are removed from raw confirmation
	// codes before the generic cleanup pass.
	StripPrefixes []string `json:"strip_prefixes,omitempty"`
	StripSuffixes []string `json:"strip_suffixes,omitempty"`

	// TaxRate and TaxAdjust control the expected-commission adjustment:
	// orders whose tax treatment equals TaxAdjust have their expected
	// amount divided by (1 + TaxRate).
	TaxRate   float64             `json:"tax_rate,omitempty"`
	TaxAdjust domain.TaxTreatment `json:"tax_adjust,omitempty"`

	AcceptanceThreshold *float64   `json:"acceptance_threshold,omitempty"`
	Weights             *Weights   `json:"weights,omitempty"`
	Tolerance           *Tolerance `json:"tolerance,omitempty"`
}

// Defaults are the rule-set-wide fallbacks for provider entries.
type Defaults struct {
	AcceptanceThreshold float64   `json:"acceptance_threshold"`
	Weights             Weights   `json:"weights"`
	Tolerance           Tolerance `json:"tolerance"`
	DateWindowDays      int       `json:"date_window_days"`
}

// Set is the parsed rule set. Provider keys are canonical provider ids.
type Set struct {
	Defaults  Defaults            `json:"defaults"`
	Providers map[string]Provider `json:"providers"`

	aliasIndex map[string]string
}

// HasProvider reports whether a canonical provider id has a rule entry.
func (s *Set) HasProvider(id string) bool {
	_, ok := s.Providers[id]
	return ok
}

// ProviderIDs returns the canonical ids with rule entries, unordered.
func (s *Set) ProviderIDs() []string {
	ids := make([]string, 0, len(s.Providers))
	for id := range s.Providers {
		ids = append(ids, id)
	}
	return ids
}

// Resolve canonicalizes a raw provider spelling: exact canonical ids match
// case-insensitively, otherwise the alias index is consulted. The second
// return is false when the spelling maps to no rule entry.
func (s *Set) Resolve(raw string) (string, bool) {
	key := strings.ToUpper(strings.TrimSpace(raw))
	if key == "" {
		return "", false
	}
	if _, ok := s.Providers[key]; ok {
		return key, true
	}
	id, ok := s.aliasIndex[key]
	return id, ok
}

// ThresholdFor returns the acceptance threshold for a provider.
func (s *Set) ThresholdFor(id string) float64 {
	if p, ok := s.Providers[id]; ok && p.AcceptanceThreshold != nil {
		return *p.AcceptanceThreshold
	}
	return s.Defaults.AcceptanceThreshold
}

// WeightsFor returns the fuzzy weights for a provider.
func (s *Set) WeightsFor(id string) Weights {
	if p, ok := s.Providers[id]; ok && p.Weights != nil {
		return *p.Weights
	}
	return s.Defaults.Weights
}

// ToleranceFor returns the amount tolerance for a provider.
func (s *Set) ToleranceFor(id string) Tolerance {
	if p, ok := s.Providers[id]; ok && p.Tolerance != nil {
		return *p.Tolerance
	}
	return s.Defaults.Tolerance
}

// Validate applies the typed checks that the JSON schema cannot express.
// Any violation is a fatal ConfigurationError.
func (s *Set) Validate() error {
	if len(s.Providers) == 0 {
		return domain.NewConfigurationError("rule set defines no providers")
	}
	if err := validateThreshold("defaults", s.Defaults.AcceptanceThreshold); err != nil {
		return err
	}
	if err := validateWeights("defaults", s.Defaults.Weights); err != nil {
		return err
	}
	if s.Defaults.Tolerance.Absolute.IsNegative() || s.Defaults.Tolerance.Percent < 0 {
		return domain.NewConfigurationError("defaults: tolerance must not be negative")
	}
	if s.Defaults.DateWindowDays <= 0 {
		return domain.NewConfigurationError("defaults: date_window_days must be positive")
	}
	for id, p := range s.Providers {
		if strings.TrimSpace(id) == "" {
			return domain.NewConfigurationError("provider entry with empty id")
		}
		if p.AcceptanceThreshold != nil {
			if err := validateThreshold(id, *p.AcceptanceThreshold); err != nil {
				return err
			}
		}
		if p.Weights != nil {
			if err := validateWeights(id, *p.Weights); err != nil {
				return err
			}
		}
		if p.Tolerance != nil && (p.Tolerance.Absolute.IsNegative() || p.Tolerance.Percent < 0) {
			return domain.NewConfigurationError("provider %s: tolerance must not be negative", id)
		}
		if p.TaxRate < 0 {
			return domain.NewConfigurationError("provider %s: tax_rate must not be negative", id)
		}
		switch p.TaxAdjust {
		case "", domain.TaxNet, domain.TaxGross:
		default:
			return domain.NewConfigurationError("provider %s: unknown tax_adjust %q", id, p.TaxAdjust)
		}
	}
	return nil
}

func validateThreshold(scope string, v float64) error {
	if v <= 0 || v > 1 {
		return domain.NewConfigurationError("%s: acceptance_threshold %v outside (0,1]", scope, v)
	}
	return nil
}

func validateWeights(scope string, w Weights) error {
	if w.Code < 0 || w.Amount < 0 || w.Date < 0 {
		return domain.NewConfigurationError("%s: weights must not be negative", scope)
	}
	if math.Abs(w.Code+w.Amount+w.Date-1) > 1e-9 {
		return domain.NewConfigurationError("%s: weights must sum to 1, got %v", scope, w.Code+w.Amount+w.Date)
	}
	return nil
}

// buildAliasIndex populates the alias lookup and rejects ambiguous aliases.
func (s *Set) buildAliasIndex() error {
	s.aliasIndex = make(map[string]string)
	for id, p := range s.Providers {
		for _, alias := range p.Aliases {
			key := strings.ToUpper(strings.TrimSpace(alias))
			if key == "" {
				return domain.NewConfigurationError("provider %s: empty alias", id)
			}
			if prev, ok := s.aliasIndex[key]; ok && prev != id {
				return domain.NewConfigurationError("alias %q maps to both %s and %s", alias, prev, id)
			}
			s.aliasIndex[key] = id
		}
	}
	return nil
}
