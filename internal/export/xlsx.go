// Package export renders a run report for the reporting layer: an Excel
// workbook with the audit sheets the finance team consumes, mirroring the
// layout of the historical reconciliation workbook.
package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"commission-reconciler/internal/domain"
)

// Workbook sheet names, fixed by the downstream dashboard.
const (
	SheetMatches           = "matches"
	SheetCommissionGap     = "commission_gap"
	SheetOrdersMissing     = "orders_missing_commission"
	SheetCommissionsOrphan = "commissions_missing_orders"
	SheetSummary           = "summary"
	SheetProviderSummary   = "provider_summary"
	SheetExceptions        = "exceptions"
)

// WriteWorkbook renders the report into an XLSX workbook at path.
func WriteWorkbook(report *domain.RunReport, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	var matched, gaps, missing, orphans []domain.DiscrepancyRecord
	for _, rec := range report.Discrepancies {
		switch rec.Category {
		case domain.CategoryOK:
			matched = append(matched, rec)
		case domain.CategoryUnderbilled, domain.CategoryOverbilled:
			matched = append(matched, rec)
			gaps = append(gaps, rec)
		case domain.CategoryMissingCommission:
			missing = append(missing, rec)
		case domain.CategoryOrphanCommission:
			orphans = append(orphans, rec)
		}
	}

	if err := f.SetSheetName("Sheet1", SheetMatches); err != nil {
		return fmt.Errorf("rename default sheet: %w", err)
	}
	if err := writeRecordSheet(f, SheetMatches, matched); err != nil {
		return err
	}
	if err := writeRecordSheet(f, SheetCommissionGap, gaps); err != nil {
		return err
	}
	if err := writeRecordSheet(f, SheetOrdersMissing, missing); err != nil {
		return err
	}
	if err := writeRecordSheet(f, SheetCommissionsOrphan, orphans); err != nil {
		return err
	}
	if err := writeSummarySheet(f, report.Summary); err != nil {
		return err
	}
	if err := writeProviderSheet(f, report.KPIs); err != nil {
		return err
	}
	if err := writeExceptionsSheet(f, report.Ledger); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

func writeRecordSheet(f *excelize.File, sheet string, records []domain.DiscrepancyRecord) error {
	if err := ensureSheet(f, sheet); err != nil {
		return err
	}
	header := []interface{}{"OrderID", "LineID", "Provider", "Period", "Category", "ExpectedCommissionUSD", "BilledCommissionUSD", "CommissionGapUSD"}
	if err := setRow(f, sheet, 1, header); err != nil {
		return err
	}
	for i, rec := range records {
		row := []interface{}{
			rec.OrderID,
			rec.LineID,
			rec.Provider,
			rec.Period,
			string(rec.Category),
			rec.Expected.InexactFloat64(),
			rec.Billed.InexactFloat64(),
			rec.Expected.Sub(rec.Billed).InexactFloat64(),
		}
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeSummarySheet(f *excelize.File, rows []domain.SummaryRow) error {
	if err := ensureSheet(f, SheetSummary); err != nil {
		return err
	}
	header := []interface{}{"Category", "Records", "ExpectedCommissionUSD", "BilledCommissionUSD", "CommissionGapUSD"}
	if err := setRow(f, SheetSummary, 1, header); err != nil {
		return err
	}
	for i, row := range rows {
		values := []interface{}{
			row.Category,
			row.Records,
			row.Expected.InexactFloat64(),
			row.Billed.InexactFloat64(),
			row.Gap.InexactFloat64(),
		}
		if err := setRow(f, SheetSummary, i+2, values); err != nil {
			return err
		}
	}
	return nil
}

func writeProviderSheet(f *excelize.File, kpis []domain.ProviderKPI) error {
	if err := ensureSheet(f, SheetProviderSummary); err != nil {
		return err
	}
	header := []interface{}{
		"Provider", "Period", "OK", "MissingCommission", "OrphanCommission", "Underbilled", "Overbilled",
		"TotalExpectedUSD", "TotalBilledUSD", "LeakageUSD",
	}
	if err := setRow(f, SheetProviderSummary, 1, header); err != nil {
		return err
	}
	for i, kpi := range kpis {
		row := []interface{}{
			kpi.Provider,
			kpi.Period,
			kpi.OKCount,
			kpi.MissingCommissionCount,
			kpi.OrphanCommissionCount,
			kpi.UnderbilledCount,
			kpi.OverbilledCount,
			kpi.TotalExpected.InexactFloat64(),
			kpi.TotalBilled.InexactFloat64(),
			kpi.Leakage.InexactFloat64(),
		}
		if err := setRow(f, SheetProviderSummary, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeExceptionsSheet(f *excelize.File, ledger domain.Ledger) error {
	if err := ensureSheet(f, SheetExceptions); err != nil {
		return err
	}
	header := []interface{}{"Type", "Source", "RecordID", "Field", "Provider", "OrderID", "LineID", "Detail"}
	if err := setRow(f, SheetExceptions, 1, header); err != nil {
		return err
	}
	rowIdx := 2
	for _, rej := range ledger.Rejects {
		row := []interface{}{"reject", rej.Source, rej.RecordID, rej.Field, "", "", "", rej.Reason}
		if err := setRow(f, SheetExceptions, rowIdx, row); err != nil {
			return err
		}
		rowIdx++
	}
	for _, warn := range ledger.Warnings {
		row := []interface{}{string(warn.Kind), "", "", "", warn.Provider, warn.OrderID, warn.LineID, warn.Detail}
		if err := setRow(f, SheetExceptions, rowIdx, row); err != nil {
			return err
		}
		rowIdx++
	}
	return nil
}

func ensureSheet(f *excelize.File, sheet string) error {
	if idx, _ := f.GetSheetIndex(sheet); idx >= 0 {
		return nil
	}
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheet, err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}
