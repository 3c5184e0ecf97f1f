package rules

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"commission-reconciler/internal/domain"
)

//go:embed schema.json
var schemaJSON string

// Load reads, schema-validates and type-validates a rule set document.
// Every failure is a fatal ConfigurationError: the run must abort before any
// matching begins.
func Load(path string) (*Set, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.NewConfigurationError("read rule set %s: %v", path, err)
	}
	return Parse(raw)
}

// Parse validates and decodes a rule set document held in memory.
func Parse(raw []byte) (*Set, error) {
	if err := validateSchema(raw); err != nil {
		return nil, domain.NewConfigurationError("rule set schema: %v", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var set Set
	if err := dec.Decode(&set); err != nil {
		return nil, domain.NewConfigurationError("decode rule set: %v", err)
	}

	set.applyDefaults()
	set.canonicalizeKeys()
	if err := set.Validate(); err != nil {
		return nil, err
	}
	if err := set.buildAliasIndex(); err != nil {
		return nil, err
	}
	return &set, nil
}

func validateSchema(raw []byte) error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("rules.schema.json", strings.NewReader(schemaJSON)); err != nil {
		return fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := compiler.Compile("rules.schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return err
	}
	return schema.Validate(payload)
}

// applyDefaults fills unset defaults with the package-level fallbacks.
func (s *Set) applyDefaults() {
	if s.Defaults.AcceptanceThreshold == 0 {
		s.Defaults.AcceptanceThreshold = DefaultAcceptanceThreshold
	}
	zero := Weights{}
	if s.Defaults.Weights == zero {
		s.Defaults.Weights = DefaultWeights()
	}
	if s.Defaults.Tolerance.Absolute.IsZero() && s.Defaults.Tolerance.Percent == 0 {
		s.Defaults.Tolerance = DefaultTolerance()
	}
	if s.Defaults.DateWindowDays == 0 {
		s.Defaults.DateWindowDays = DefaultDateWindowDays
	}
}

// canonicalizeKeys uppercases provider ids so Resolve can match
// case-insensitively against the data.
func (s *Set) canonicalizeKeys() {
	canonical := make(map[string]Provider, len(s.Providers))
	for id, p := range s.Providers {
		canonical[strings.ToUpper(strings.TrimSpace(id))] = p
	}
	s.Providers = canonical
}
