package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
)

// Strain label constants.
const (
	OverloadedValue = "Overloaded" // Overloaded value
	HighValue       = "High"       // High value
	ModerateValue   = "Moderate"   // Moderate value
	LowValue        = "Low"        // Low value
)

// Color variables for console output.
var (
	OverloadedColor = color.New(color.FgRed, color.Bold)     // OverloadedColor represents standard danger.
	HighColor       = color.New(color.FgMagenta, color.Bold) // HighColor represents strong, distinct warning.
	ModerateColor   = color.New(color.FgYellow)              // ModerateColor represents standard caution, not bold.
	LowColor        = color.New(color.FgCyan)                // LowColor represents a calm day.
)

// GetPlainLabel returns a plain text label for a 0-100 strain score.
// This is the core logic used for CSV, JSON, and table printing.
func GetPlainLabel(score float64) string {
	switch {
	case score >= 80:
		return OverloadedValue
	case score >= 60:
		return HighValue
	case score >= 40:
		return ModerateValue
	default:
		return LowValue
	}
}

// GetColorLabel returns a colored text label for console output (table).
func GetColorLabel(score float64) string {
	text := GetPlainLabel(score)

	switch text {
	case OverloadedValue:
		return OverloadedColor.Sprint(text)
	case HighValue:
		return HighColor.Sprint(text)
	case ModerateValue:
		return ModerateColor.Sprint(text)
	default: // "Low"
		return LowColor.Sprint(text)
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. An empty path selects os.Stdout.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// GetDBFilePath returns the path to the default SQLite DB file.
func GetDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".stimstrain.db"
	}
	return filepath.Join(homeDir, ".stimstrain", "stimstrain.db")
}

// TruncateURL truncates a URL to a maximum width with an ellipsis suffix.
// Requires maxWidth > 3 so that at least one character of content survives.
func TruncateURL(rawURL string, maxWidth int) string {
	runes := []rune(rawURL)
	if len(runes) > maxWidth && maxWidth > 3 {
		return string(runes[:maxWidth-3]) + "..."
	}
	return rawURL
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
