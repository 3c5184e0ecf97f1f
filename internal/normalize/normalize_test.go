package normalize_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commission-reconciler/internal/domain"
	"commission-reconciler/internal/normalize"
	"commission-reconciler/internal/rules"
)

func testRules(t *testing.T) *rules.Set {
	t.Helper()
	doc := `{
		"providers": {
			"ACME": {
				"aliases": ["Acme Travel", "ACME-EU"],
				"strip_prefixes": ["ACM-"],
				"strip_suffixes": ["/CONF"],
				"tax_rate": 0.21,
				"tax_adjust": "gross"
			},
			"GLOBEX": {}
		}
	}`
	set, err := rules.Parse([]byte(doc))
	require.NoError(t, err)
	return set
}

func TestNormalizer_Provider(t *testing.T) {
	n := normalize.New(testRules(t))

	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "canonical id", raw: "ACME", want: "ACME"},
		{name: "canonical id lowercased", raw: "globex", want: "GLOBEX"},
		{name: "alias", raw: "Acme Travel", want: "ACME"},
		{name: "alias case-insensitive with spaces", raw: "  acme-eu  ", want: "ACME"},
		{name: "unknown provider", raw: "Initech", wantErr: true},
		{name: "empty provider", raw: "   ", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := n.Provider(tt.raw)
			if tt.wantErr {
				var confErr *domain.ConfigurationError
				assert.True(t, errors.As(err, &confErr), "want ConfigurationError, got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizer_Code(t *testing.T) {
	n := normalize.New(testRules(t))

	tests := []struct {
		name     string
		provider string
		raw      string
		want     string
		wantErr  bool
	}{
		{name: "strips noise and uppercases", provider: "GLOBEX", raw: " abc-123 ", want: "ABC123"},
		{name: "already canonical", provider: "GLOBEX", raw: "ABC123", want: "ABC123"},
		{name: "provider prefix stripped", provider: "ACME", raw: "ACM-XYZ9", want: "XYZ9"},
		{name: "provider suffix stripped", provider: "ACME", raw: "XYZ9/CONF", want: "XYZ9"},
		{name: "unicode and punctuation dropped", provider: "GLOBEX", raw: "ab—12·3", want: "AB123"},
		{name: "empty code", provider: "GLOBEX", raw: "   ", wantErr: true},
		{name: "nothing left after cleanup", provider: "GLOBEX", raw: "--//--", wantErr: true},
		{name: "unknown provider", provider: "INITECH", raw: "ABC123", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := n.Code(tt.provider, tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizer_CodeIdempotent(t *testing.T) {
	n := normalize.New(testRules(t))

	for _, raw := range []string{" abc-123 ", "ACM-XYZ9", "XYZ9/CONF", "conf 77 88"} {
		once, err := n.Code("ACME", raw)
		require.NoError(t, err)
		twice, err := n.Code("ACME", once)
		require.NoError(t, err)
		assert.Equal(t, once, twice, "normalize(normalize(%q)) must equal normalize(%q)", raw, raw)
	}
}

func TestNormalizer_CodeIdempotentWithAlphanumericAffixes(t *testing.T) {
	// affixes that survive canonicalization must not strip again on a
	// second pass
	set, err := rules.Parse([]byte(`{
		"providers": {
			"ACME": {"strip_prefixes": ["ACM"], "strip_suffixes": ["X9"]}
		}
	}`))
	require.NoError(t, err)
	n := normalize.New(set)

	tests := []struct {
		raw  string
		want string
	}{
		{raw: "ACMACM123", want: "123"},
		{raw: "ACM-123", want: "123"},
		{raw: "777X9X9", want: "777"},
		{raw: "acm999", want: "999"},
		// stripping stops rather than emptying the code
		{raw: "ACMACM", want: "ACM"},
	}
	for _, tt := range tests {
		once, err := n.Code("ACME", tt.raw)
		require.NoError(t, err)
		assert.Equal(t, tt.want, once, "raw %q", tt.raw)

		twice, err := n.Code("ACME", once)
		require.NoError(t, err)
		assert.Equal(t, once, twice, "normalize(normalize(%q)) must equal normalize(%q)", tt.raw, tt.raw)
	}
}

func TestNormalizer_ExpectedCommission(t *testing.T) {
	n := normalize.New(testRules(t))

	order := domain.Order{
		Provider:     "ACME",
		Expected:     decimal.NewFromFloat(121.00),
		TaxTreatment: domain.TaxGross,
	}
	adjusted := n.ExpectedCommission(order)
	assert.True(t, adjusted.Equal(decimal.NewFromFloat(100.00)), "got %s", adjusted)

	// net orders pass through untouched
	order.TaxTreatment = domain.TaxNet
	assert.True(t, n.ExpectedCommission(order).Equal(order.Expected))

	// providers without a tax rule pass through untouched
	order.Provider = "GLOBEX"
	order.TaxTreatment = domain.TaxGross
	assert.True(t, n.ExpectedCommission(order).Equal(order.Expected))
}
