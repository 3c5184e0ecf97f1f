package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaxTreatment describes how the expected commission amount on an order is
// stated (net of tax, or gross including tax).
type TaxTreatment string

const (
	TaxNet   TaxTreatment = "net"
	TaxGross TaxTreatment = "gross"
)

// Order represents a sales order from the internal system of record.
// Immutable once ingested; downstream results reference it by OrderID.
type Order struct {
	OrderID      string          `json:"order_id"`
	RawCode      string          `json:"confirmation_code_raw"`
	Code         string          `json:"confirmation_code"` // normalized
	RawProvider  string          `json:"provider_raw"`
	Provider     string          `json:"provider_id"` // normalized
	Expected     decimal.Decimal `json:"expected_commission_amount"`
	Currency     string          `json:"currency"`
	BookingDate  time.Time       `json:"booking_date"`
	TaxTreatment TaxTreatment    `json:"tax_treatment"`
}

// BookingPeriod returns the order's booking month as "YYYY-MM", used for KPI
// period attribution when no commission line participates in the result.
func (o Order) BookingPeriod() string {
	return o.BookingDate.Format("2006-01")
}

// CommissionLine represents one billing line from an external provider's
// commission statement. LineID is unique within a provider file.
type CommissionLine struct {
	LineID   string          `json:"line_id"`
	RawCode  string          `json:"confirmation_code_raw"`
	Code     string          `json:"confirmation_code"` // normalized
	Provider string          `json:"provider_id"`       // normalized
	Billed   decimal.Decimal `json:"billed_amount"`
	Currency string          `json:"currency"`
	Period   string          `json:"statement_period"` // "YYYY-MM"

	// MergedFrom lists the constituent line ids when duplicate lines with
	// identical amounts were folded into this one before matching.
	MergedFrom []string `json:"merged_from,omitempty"`
}
