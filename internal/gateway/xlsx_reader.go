package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"commission-reconciler/internal/domain"
)

// XLSXFeedRepository implements the FeedRepository interface for Excel
// workbooks. Sheet names are addressed case-insensitively; column headers
// are matched by name, so provider workbooks can order columns freely.
type XLSXFeedRepository struct {
	OrdersSheet      string
	CommissionsSheet string
}

// NewXLSXFeedRepository creates a repository reading the given sheet names
// (defaults: "orders" and "commissions").
func NewXLSXFeedRepository(ordersSheet, commissionsSheet string) *XLSXFeedRepository {
	if ordersSheet == "" {
		ordersSheet = "orders"
	}
	if commissionsSheet == "" {
		commissionsSheet = "commissions"
	}
	return &XLSXFeedRepository{OrdersSheet: ordersSheet, CommissionsSheet: commissionsSheet}
}

// GetOrders reads the orders sheet of a workbook.
func (r *XLSXFeedRepository) GetOrders(ctx context.Context, path string) ([]domain.Order, []domain.Reject, error) {
	rows, source, err := readSheet(path, r.OrdersSheet)
	if err != nil {
		return nil, nil, err
	}
	cols, err := headerIndex(rows, source,
		"order_id", "confirmation_code", "provider", "expected_commission", "currency", "booking_date", "tax_treatment")
	if err != nil {
		return nil, nil, err
	}

	var orders []domain.Order
	var rejects []domain.Reject
	for _, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		record := []string{
			cell(row, cols["order_id"]),
			cell(row, cols["confirmation_code"]),
			cell(row, cols["provider"]),
			cell(row, cols["expected_commission"]),
			cell(row, cols["currency"]),
			cell(row, cols["booking_date"]),
			cell(row, cols["tax_treatment"]),
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

// GetCommissionLines reads the commissions sheet of each workbook.
func (r *XLSXFeedRepository) GetCommissionLines(ctx context.Context, paths []string) ([]domain.CommissionLine, []domain.Reject, error) {
	var lines []domain.CommissionLine
	var rejects []domain.Reject
	for _, path := range paths {
		rows, source, err := readSheet(path, r.CommissionsSheet)
		if err != nil {
			return nil, nil, err
		}
		cols, err := headerIndex(rows, source,
			"line_id", "confirmation_code", "provider", "billed_amount", "currency", "statement_period")
		if err != nil {
			return nil, nil, err
		}
		for _, row := range rows[1:] {
			if blankRow(row) {
				continue
			}
			record := []string{
				cell(row, cols["line_id"]),
				cell(row, cols["confirmation_code"]),
				cell(row, cols["provider"]),
				cell(row, cols["billed_amount"]),
				cell(row, cols["currency"]),
				cell(row, cols["statement_period"]),
			}
			line, reject := parseCommissionRow(record, source)
			if reject != nil {
				rejects = append(rejects, *reject)
				continue
			}
			lines = append(lines, line)
		}
	}
	return lines, rejects, nil
}

// readSheet opens a workbook and returns the rows of the named sheet,
// matching the name case-insensitively.
func readSheet(path, sheet string) ([][]string, string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	name := ""
	for _, candidate := range f.GetSheetList() {
		if strings.EqualFold(strings.TrimSpace(candidate), sheet) {
			name = candidate
			break
		}
	}
	if name == "" {
		return nil, "", fmt.Errorf("workbook %s has no sheet %q (available: %s)", path, sheet, strings.Join(f.GetSheetList(), ", "))
	}

	rows, err := f.GetRows(name)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read sheet %s of %s: %w", name, path, err)
	}
	if len(rows) == 0 {
		return nil, "", fmt.Errorf("sheet %s of %s is empty", name, path)
	}
	return rows, fmt.Sprintf("%s!%s", path, name), nil
}

// headerIndex maps required column names to their positions in the header
// row, matching trimmed and lowercased.
func headerIndex(rows [][]string, source string, required ...string) (map[string]int, error) {
	cols := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	var missing []string
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%s is missing columns: %s", source, strings.Join(missing, ", "))
	}
	return cols, nil
}

func cell(row []string, idx int) string {
	if idx < len(row) {
		return row[idx]
	}
	return ""
}

func blankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
