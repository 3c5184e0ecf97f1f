package domain

// Reject records a record-scoped data quality failure. The offending record
// is excluded from matching; the run continues.
type Reject struct {
	Source   string `json:"source"` // feed or file the record came from
	RecordID string `json:"record_id"`
	Field    string `json:"field,omitempty"`
	Reason   string `json:"reason"`
}

// WarningKind identifies the audit condition a Warning describes.
type WarningKind string

const (
	// WarnAmbiguousExact: several exact candidates existed and the amount
	// tie-break picked one; the rejected siblings are listed in Detail.
	WarnAmbiguousExact WarningKind = "ambiguous_exact"
	// WarnNearThreshold: a fuzzy match was accepted within the warning band
	// above the acceptance threshold.
	WarnNearThreshold WarningKind = "near_threshold_accept"
	// WarnDuplicateMerged: duplicate commission lines with identical amounts
	// were summed into one effective line.
	WarnDuplicateMerged WarningKind = "duplicate_merged"
	// WarnDuplicateConflict: duplicate commission lines with differing
	// amounts were left separate and flagged.
	WarnDuplicateConflict WarningKind = "duplicate_conflict"
	// WarnFuzzyPreempted: a fuzzy claim was displaced by a higher-confidence
	// claim on the same line; the displaced order records a near-miss.
	WarnFuzzyPreempted WarningKind = "fuzzy_preempted"
)

// Warning is a non-fatal audit note. Warnings never block output.
type Warning struct {
	Kind     WarningKind `json:"kind"`
	Provider string      `json:"provider_id,omitempty"`
	OrderID  string      `json:"order_id,omitempty"`
	LineID   string      `json:"line_id,omitempty"`
	Detail   string      `json:"detail"`
}

// Ledger accompanies every run report so that no record silently disappears.
type Ledger struct {
	Rejects  []Reject  `json:"rejects"`
	Warnings []Warning `json:"warnings"`
}

// Append merges another ledger into this one.
func (l *Ledger) Append(other Ledger) {
	l.Rejects = append(l.Rejects, other.Rejects...)
	l.Warnings = append(l.Warnings, other.Warnings...)
}
