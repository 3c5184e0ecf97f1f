package gateway

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"commission-reconciler/internal/domain"
	"commission-reconciler/internal/normalize"
)

// Orders CSV column layout (header row required):
// order_id, confirmation_code, provider, expected_commission, currency, booking_date, tax_treatment
//
// Commissions CSV column layout (header row required):
// line_id, confirmation_code, provider, billed_amount, currency, statement_period
const (
	orderColumns      = 7
	commissionColumns = 6
)

// CSVFeedRepository implements the FeedRepository interface for CSV feeds.
// Row-level parse failures become ledger rejects; only an unreadable file is
// an error.
type CSVFeedRepository struct{}

// NewCSVFeedRepository creates a new repository instance.
func NewCSVFeedRepository() *CSVFeedRepository {
	return &CSVFeedRepository{}
}

// GetOrders reads and parses the orders CSV feed.
func (r *CSVFeedRepository) GetOrders(ctx context.Context, path string) ([]domain.Order, []domain.Reject, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open orders file %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	// Skip header
	if _, err := reader.Read(); err != nil {
		return nil, nil, fmt.Errorf("failed to read header from %s: %w", path, err)
	}

	source := filepath.Base(path)
	var orders []domain.Order
	var rejects []domain.Reject
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("error reading record from %s: %w", path, err)
		}

		order, reject := parseOrderRow(record, source)
		if reject != nil {
			rejects = append(rejects, *reject)
			continue
		}
		orders = append(orders, order)
	}
	return orders, rejects, nil
}

// GetCommissionLines reads and parses multiple commission statement CSV files.
func (r *CSVFeedRepository) GetCommissionLines(ctx context.Context, paths []string) ([]domain.CommissionLine, []domain.Reject, error) {
	var lines []domain.CommissionLine
	var rejects []domain.Reject

	for _, path := range paths {
		file, err := os.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open commission file %s: %w", path, err)
		}

		reader := csv.NewReader(file)
		reader.FieldsPerRecord = -1
		if _, err := reader.Read(); err != nil {
			file.Close()
			return nil, nil, fmt.Errorf("failed to read header from %s: %w", path, err)
		}

		source := filepath.Base(path)
		for {
			record, err := reader.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				file.Close()
				return nil, nil, fmt.Errorf("error reading record from %s: %w", path, err)
			}

			line, reject := parseCommissionRow(record, source)
			if reject != nil {
				rejects = append(rejects, *reject)
				continue
			}
			lines = append(lines, line)
		}
		file.Close()
	}
	return lines, rejects, nil
}

func parseOrderRow(record []string, source string) (domain.Order, *domain.Reject) {
	if len(record) < orderColumns {
		return domain.Order{}, &domain.Reject{
			Source:   source,
			RecordID: firstField(record),
			Reason:   fmt.Sprintf("expected %d columns, got %d", orderColumns, len(record)),
		}
	}
	expected, err := normalize.ParseAmount(record[3])
	if err != nil {
		return domain.Order{}, &domain.Reject{
			Source:   source,
			RecordID: record[0],
			Field:    "expected_commission",
			Reason:   err.Error(),
		}
	}
	bookingDate, err := normalize.ParseDate(record[5])
	if err != nil {
		return domain.Order{}, &domain.Reject{
			Source:   source,
			RecordID: record[0],
			Field:    "booking_date",
			Reason:   err.Error(),
		}
	}
	treatment := domain.TaxTreatment(strings.ToLower(strings.TrimSpace(record[6])))
	if treatment == "" {
		treatment = domain.TaxNet
	}
	if treatment != domain.TaxNet && treatment != domain.TaxGross {
		return domain.Order{}, &domain.Reject{
			Source:   source,
			RecordID: record[0],
			Field:    "tax_treatment",
			Reason:   fmt.Sprintf("unknown tax treatment %q", record[6]),
		}
	}
	return domain.Order{
		OrderID:      strings.TrimSpace(record[0]),
		RawCode:      record[1],
		RawProvider:  record[2],
		Expected:     expected,
		Currency:     strings.ToUpper(strings.TrimSpace(record[4])),
		BookingDate:  bookingDate,
		TaxTreatment: treatment,
	}, nil
}

func parseCommissionRow(record []string, source string) (domain.CommissionLine, *domain.Reject) {
	if len(record) < commissionColumns {
		return domain.CommissionLine{}, &domain.Reject{
			Source:   source,
			RecordID: firstField(record),
			Reason:   fmt.Sprintf("expected %d columns, got %d", commissionColumns, len(record)),
		}
	}
	billed, err := normalize.ParseAmount(record[3])
	if err != nil {
		return domain.CommissionLine{}, &domain.Reject{
			Source:   source,
			RecordID: record[0],
			Field:    "billed_amount",
			Reason:   err.Error(),
		}
	}
	period, err := normalize.ParsePeriod(record[5])
	if err != nil {
		return domain.CommissionLine{}, &domain.Reject{
			Source:   source,
			RecordID: record[0],
			Field:    "statement_period",
			Reason:   err.Error(),
		}
	}
	return domain.CommissionLine{
		LineID:   strings.TrimSpace(record[0]),
		RawCode:  record[1],
		Provider: record[2],
		Billed:   billed,
		Currency: strings.ToUpper(strings.TrimSpace(record[4])),
		Period:   period,
	}, nil
}

func firstField(record []string) string {
	if len(record) > 0 {
		return record[0]
	}
	return ""
}
