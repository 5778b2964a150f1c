// Package core has core logic for building day reports, trends and exports.
package core

import (
	"context"
	"time"

	"github.com/huangsam/stimstrain/internal/contract"
	"github.com/huangsam/stimstrain/internal/outwriter"
)

// ExecutorFunc defines the function signature for executing different report modes.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error

// ExecuteReport builds the day report and prints it.
// It serves as the main entry point for the 'report' mode.
func ExecuteReport(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	start := time.Now()
	report, err := GetDayReport(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	return outwriter.PrintDayReport(report, cfg, time.Since(start))
}

// ExecuteTrend builds the multi-day trend and prints it.
func ExecuteTrend(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	start := time.Now()
	points, err := GetTrend(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	return outwriter.PrintTrend(points, cfg, time.Since(start))
}

// ExecuteCorrelate correlates a day with its heart-rate data and prints it.
func ExecuteCorrelate(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	start := time.Now()
	report, err := GetHRCorrelation(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	return outwriter.PrintCorrelation(report, cfg, time.Since(start))
}

// ExecuteExport writes the enriched buckets of a day.
func ExecuteExport(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	start := time.Now()
	payload, err := GetExport(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	return outwriter.PrintExport(payload, cfg, time.Since(start))
}
