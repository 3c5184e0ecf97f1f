package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"commission-reconciler/internal/domain"
	"commission-reconciler/internal/export"
	"commission-reconciler/internal/gateway"
	"commission-reconciler/internal/rules"
	"commission-reconciler/internal/usecase"
)

func main() {
	// Define command-line flags
	ordersFile := flag.String("orders", "", "Path to the orders feed, CSV or XLSX (required)")
	commissionsStr := flag.String("commissions", "", "Comma-separated paths to commission statement files, CSV or XLSX (required)")
	rulesFile := flag.String("rules", "", "Path to the reconciliation rule set JSON (required)")
	outFile := flag.String("out", "", "Path for the XLSX report workbook (optional)")
	startPeriod := flag.String("start", "", "First period to reconcile, YYYY-MM (optional)")
	endPeriod := flag.String("end", "", "Last period to reconcile, YYYY-MM (optional)")
	verbose := flag.Bool("v", false, "Enable debug logging")
	flag.Parse()

	// Validate required flags
	if *ordersFile == "" || *commissionsStr == "" || *rulesFile == "" {
		fmt.Println("Error: flags -orders, -commissions and -rules are required.")
		flag.Usage()
		os.Exit(1)
	}

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().Timestamp().Logger()

	ruleSet, err := rules.Load(*rulesFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load rule set")
	}

	commissionPaths := strings.Split(*commissionsStr, ",")
	repo, err := buildRepository(*ordersFile, commissionPaths)
	if err != nil {
		log.Fatal().Err(err).Msg("unsupported feed format")
	}

	uc := usecase.NewReconciliationUseCase(repo, ruleSet, log)
	report, err := uc.Run(context.Background(), usecase.RunInput{
		OrdersPath:      *ordersFile,
		CommissionPaths: commissionPaths,
		PeriodStart:     *startPeriod,
		PeriodEnd:       *endPeriod,
	})
	if err != nil {
		var confErr *domain.ConfigurationError
		if errors.As(err, &confErr) {
			log.Fatal().Err(err).Msg("reconciliation aborted by configuration error")
		}
		log.Fatal().Err(err).Msg("reconciliation failed")
	}

	if *outFile != "" {
		if err := export.WriteWorkbook(report, *outFile); err != nil {
			log.Fatal().Err(err).Msg("failed to write report workbook")
		}
		log.Info().Str("path", *outFile).Msg("report workbook written")
	}

	// Print the report summary as formatted JSON to stdout
	output, err := json.MarshalIndent(struct {
		RunID      string               `json:"run_id"`
		Summary    []domain.SummaryRow  `json:"summary"`
		KPIs       []domain.ProviderKPI `json:"provider_kpis"`
		Rejects    int                  `json:"reject_count"`
		Warnings   int                  `json:"warning_count"`
		Matched    int                  `json:"matched_count"`
		Orders     int                  `json:"order_count"`
		Commission int                  `json:"commission_line_count"`
	}{
		RunID:      report.RunID,
		Summary:    report.Summary,
		KPIs:       report.KPIs,
		Rejects:    len(report.Ledger.Rejects),
		Warnings:   len(report.Ledger.Warnings),
		Matched:    report.MatchedCount,
		Orders:     report.OrderCount,
		Commission: report.CommissionLineCount,
	}, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to marshal report")
	}
	fmt.Println(string(output))
}

// buildRepository picks the gateway by file extension. Mixed CSV/XLSX feeds
// are not supported in one run.
func buildRepository(ordersPath string, commissionPaths []string) (usecase.FeedRepository, error) {
	ext := strings.ToLower(filepath.Ext(ordersPath))
	for _, p := range commissionPaths {
		if strings.ToLower(filepath.Ext(p)) != ext {
			return nil, fmt.Errorf("orders and commission feeds must share one format, got %s and %s", ext, filepath.Ext(p))
		}
	}
	switch ext {
	case ".csv":
		return gateway.NewCSVFeedRepository(), nil
	case ".xlsx":
		return gateway.NewXLSXFeedRepository("", ""), nil
	default:
		return nil, fmt.Errorf("unsupported feed extension %q", ext)
	}
}
