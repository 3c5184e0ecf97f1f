package domain

import "fmt"

// ConfigurationError is fatal: the run aborts before any matching begins.
// Raised for a missing or invalid rule set, or a provider present in the
// data with no rule entry.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// NewConfigurationError builds a ConfigurationError with a formatted reason.
func NewConfigurationError(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

// DataQualityError aggregates record-scoped failures. It is reported, not
// fatal: offending records are excluded and the run continues, so callers
// only see this as an error value when a whole feed is unusable.
type DataQualityError struct {
	Rejects []Reject
}

func (e *DataQualityError) Error() string {
	return fmt.Sprintf("data quality: %d record(s) rejected", len(e.Rejects))
}
