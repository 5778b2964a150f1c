// Package main provides a performance benchmarking tool for the stimstrain CLI.
// It seeds synthetic ledgers of different sizes, times the read commands against each,
// treating the first successful run as cold and averaging the rest as warm,
// and writes CSV output for performance analysis.
//
// Prerequisites:
// - stimstrain binary installed and available in PATH
//
// Usage: go run benchmark/main.go [work-dir]
//
//	work-dir: Directory where the synthetic SQLite ledgers are created
package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/huangsam/stimstrain/core/classify"
	"github.com/huangsam/stimstrain/internal/iostore"
	"github.com/huangsam/stimstrain/schema"
)

// BenchmarkResult holds the cold run and average of warm runs of one command.
type BenchmarkResult struct {
	Ledger   string
	Command  string
	ColdTime string
	WarmTime string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	WorkDir  string
	Timeout  time.Duration
	Runs     int
	EndDate  time.Time
	Ledgers  map[string]int // name -> days of activity
	Commands [][]string
}

// syntheticURLs cycles through work, feed and video categories.
var syntheticURLs = []string{
	"https://github.com/huangsam/stimstrain",
	"https://www.reddit.com/",
	"https://www.youtube.com/watch?v=abc",
	"https://www.youtube.com/shorts/xyz",
	"https://open.spotify.com/track/1",
	"https://x.com/home",
}

func main() {
	// Parse command line arguments
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s [work-dir]\n", os.Args[0])
		os.Exit(1)
	}

	config := BenchmarkConfig{
		WorkDir: os.Args[1],
		Timeout: 2 * time.Minute,
		Runs:    5,
		EndDate: time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
		Ledgers: map[string]int{"week": 7, "quarter": 90},
		Commands: [][]string{
			{"report"},
			{"trend", "--days", "90"},
			{"export", "--output", "csv"},
		},
	}

	if err := checkPrerequisites(config); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	results, err := runBenchmarks(config)
	if err != nil {
		fmt.Printf("Benchmark failed: %v\n", err)
		os.Exit(1)
	}

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// checkPrerequisites verifies that the binary and work directory exist
func checkPrerequisites(config BenchmarkConfig) error {
	if _, err := exec.LookPath("stimstrain"); err != nil {
		return fmt.Errorf("stimstrain binary not found in PATH")
	}
	if _, err := os.Stat(config.WorkDir); os.IsNotExist(err) {
		return fmt.Errorf("work directory %s not found", config.WorkDir)
	}
	return nil
}

// seedLedger writes days of synthetic 10-hour browsing sessions ending at end.
func seedLedger(ctx context.Context, path string, days int, end time.Time) error {
	_ = os.Remove(path)
	store, err := iostore.NewLedgerStore(schema.SQLiteBackend, path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	for d := range days {
		day := end.AddDate(0, 0, -d)
		date := day.Format("2006-01-02")
		for m := 9 * 60; m < 19*60; m++ {
			url := syntheticURLs[(m/15+d)%len(syntheticURLs)]
			b := schema.Bucket{
				Date:           date,
				Minute:         schema.FormatMinute(m),
				Timestamp:      day.Add(time.Duration(m) * time.Minute).UnixMilli(),
				Hour:           m / 60,
				FocusedSeconds: 45 + m%15,
				Switches:       m % 3,
				Scrolls:        m % 20,
				Clicks:         m % 4,
				Category:       classify.Classify(url),
				URL:            url,
			}
			if err := store.PutBucket(ctx, b); err != nil {
				return fmt.Errorf("failed to seed %s: %w", b.Key(), err)
			}
		}
	}
	return nil
}

// runBenchmarks seeds every ledger and times each command against it
func runBenchmarks(config BenchmarkConfig) ([]BenchmarkResult, error) {
	var results []BenchmarkResult
	ctx := context.Background()

	fmt.Printf("Starting benchmark: %d ledgers, %v timeout, %d runs\n", len(config.Ledgers), config.Timeout, config.Runs)

	for name, days := range config.Ledgers {
		path := filepath.Join(config.WorkDir, "bench_"+name+".db")
		fmt.Printf("Seeding %s ledger (%d days)\n", name, days)
		if err := seedLedger(ctx, path, days, config.EndDate); err != nil {
			return nil, err
		}

		for _, args := range config.Commands {
			command := strings.Join(args, " ")
			fmt.Printf("Running %s on %s\n", command, name)
			cold, warm := runBenchmark(config, path, args)
			result := BenchmarkResult{Ledger: name, Command: args[0], ColdTime: "TIMEOUT", WarmTime: "TIMEOUT"}
			if cold > 0 {
				result.ColdTime = fmt.Sprintf("%.3fs", cold)
			}
			if len(warm) > 0 {
				var sum float64
				for _, t := range warm {
					sum += t
				}
				result.WarmTime = fmt.Sprintf("%.3fs", sum/float64(len(warm)))
			}
			fmt.Printf("  Cold time: %s, Warm average: %s\n", result.ColdTime, result.WarmTime)
			results = append(results, result)
		}
	}
	return results, nil
}

// runBenchmark executes a command multiple times and returns cold time and warm times
func runBenchmark(config BenchmarkConfig, dbPath string, command []string) (coldTime float64, warmTimes []float64) {
	args := append([]string{}, command...)
	args = append(args, "--date", config.EndDate.Format("2006-01-02"), "--timezone", "UTC")

	var times []float64
	for range config.Runs {
		ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
		start := time.Now()

		cmd := exec.CommandContext(ctx, "stimstrain", args...)
		cmd.Env = append(os.Environ(),
			"STIMSTRAIN_STORE_BACKEND=sqlite",
			"STIMSTRAIN_STORE_DB_CONNECT="+dbPath,
		)
		if err := cmd.Run(); err == nil {
			times = append(times, time.Since(start).Seconds())
		}
		cancel()
	}

	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
	}
	return
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("/tmp/stimstrain_benchmark_%s.csv", timestamp)

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"ledger", "cmd", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, result := range results {
		if err := writer.Write([]string{result.Ledger, result.Command, result.ColdTime, result.WarmTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")
	for _, result := range results {
		fmt.Printf("  %-8s %-8s: Cold: %s, Warm: %s\n", result.Ledger, result.Command, result.ColdTime, result.WarmTime)
	}
}
