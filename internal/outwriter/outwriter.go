// Package outwriter has output and writer logic.
package outwriter

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/huangsam/stimstrain/internal/contract"
	"golang.org/x/term"
)

// reportPrecision is the number of decimals printed for minutes and rates.
const reportPrecision = 1

// GetMaxTableURLWidth calculates the maximum width for URLs in table output
// based on terminal width and the fixed columns of the export table.
func GetMaxTableURLWidth(cfg *contract.Config) int {
	var termWidth int

	// Check for absolute width override from flag/env
	if cfg.Width > 0 {
		termWidth = cfg.Width
	}

	if termWidth == 0 {
		detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detectedWidth <= 0 {
			termWidth = 80 // Conservative default for narrow terminals and CI
		} else {
			termWidth = detectedWidth
		}
	}

	// Minute + Focus + Switches + Scrolls + Short-form + Audio + Category with borders/padding
	baseWidth := 85

	available := termWidth - baseWidth
	if available < 15 {
		return 15
	}
	if available > 70 {
		return 70
	}
	return available
}

// strainLabel returns the strain label, colored for terminals when enabled.
func strainLabel(score float64, cfg *contract.Config) string {
	if cfg.UseColors {
		return contract.GetColorLabel(score)
	}
	return contract.GetPlainLabel(score)
}

// formatOptional renders a nullable value, using placeholder when it is absent.
func formatOptional(v *float64, fmtFloat func(float64) string, placeholder string) string {
	if v == nil {
		return placeholder
	}
	return fmtFloat(*v)
}

// formatClock renders epoch ms as a local wall-clock time.
func formatClock(ms *int64, loc *time.Location) string {
	if ms == nil {
		return "-"
	}
	return time.UnixMilli(*ms).In(loc).Format("15:04")
}

// formatHourFrac renders fractional hours as HH:MM.
func formatHourFrac(h float64) string {
	minutes := int(h*60 + 0.5)
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// joinFlags lists the names whose flag is set.
func joinFlags(names []string, flags []bool) string {
	var parts []string
	for i, on := range flags {
		if on {
			parts = append(parts, names[i])
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}
