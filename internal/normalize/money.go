package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// excelEpoch is the serial-date origin used by Excel workbooks.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// ParseAmount parses a monetary field as provider files actually write them:
// currency symbols, thousands separators, surrounding spaces, and
// accounting-style "(123.45)" negatives.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("malformed amount %q", raw)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("malformed amount %q: %w", raw, err)
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}

// ParseDate parses a date cell, accepting ISO dates and Excel serial
// numbers (origin 1899-12-30).
func ParseDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range []string{"2006-01-02", "01/02/2006", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil && serial > 0 {
		return SerialDate(serial), nil
	}
	return time.Time{}, fmt.Errorf("malformed date %q", raw)
}

// SerialDate converts an Excel serial day count to a UTC time.
func SerialDate(serial float64) time.Time {
	return excelEpoch.Add(time.Duration(serial * 24 * float64(time.Hour)))
}

// ParsePeriod validates a "YYYY-MM" statement period.
func ParsePeriod(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if _, err := time.Parse("2006-01", s); err != nil {
		return "", fmt.Errorf("malformed statement period %q", raw)
	}
	return s, nil
}
