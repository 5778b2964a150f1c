package contract

import (
	"fmt"
	"strings"
	"time"

	"github.com/huangsam/stimstrain/core/algo"
	"github.com/huangsam/stimstrain/schema"
)

// Default values for configuration.
const (
	DefaultTrendDays      = 7
	MaxTrendDays          = 90
	DefaultKeepDays       = 30
	DefaultAccrueInterval = 5 * time.Second
	DefaultFlushInterval  = 30 * time.Second
	DefaultLookupTimeout  = 250 * time.Millisecond
	DefaultPersistRetries = 3
)

// DateFormat is the calendar date representation used for keys and flags.
const DateFormat = "2006-01-02"

// TrackerConfig holds the settings of the long-running activity runtime.
type TrackerConfig struct {
	AccrueInterval time.Duration
	FlushInterval  time.Duration
	LookupTimeout  time.Duration
	PersistRetries int
	Debug          bool
}

// Config holds the runtime configuration.
// This struct remains the "final, validated" config.
type Config struct {
	Date       string         // YYYY-MM-DD in Location
	Days       int            // trend length
	Location   *time.Location // local time zone of the ledger
	Output     schema.OutputMode
	OutputFile string
	Width      int // Terminal width override (0 = auto-detect)
	UseColors  bool

	StoreBackend   schema.DatabaseBackend
	StoreDBConnect string // Please use env var as this is plaintext

	Correlation algo.CorrelationConfig
	RestingHR   *float64 // overrides the device-reported resting rate

	Tracker  TrackerConfig
	KeepDays int
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// --- Fields from rootCmd.PersistentFlags() ---
	Date           string `mapstructure:"date"`
	Days           int    `mapstructure:"days"`
	Timezone       string `mapstructure:"timezone"`
	Output         string `mapstructure:"output"`
	OutputFile     string `mapstructure:"output-file"`
	Width          int    `mapstructure:"width"`
	Color          string `mapstructure:"color"`
	StoreBackend   string `mapstructure:"store-backend"`
	StoreDBConnect string `mapstructure:"store-db-connect"`

	// --- Correlation overrides ---
	StimThreshold       *float64 `mapstructure:"stim-threshold"`
	StimMinSeconds      *int     `mapstructure:"stim-min-seconds"`
	HRLagMinutes        *int     `mapstructure:"hr-lag-minutes"`
	HRDecayMinutes      *int     `mapstructure:"hr-decay-minutes"`
	GrowthWindowMinutes *int     `mapstructure:"growth-window-minutes"`
	GrowthMinBPM        *float64 `mapstructure:"growth-min-bpm"`
	GrowthStartHour     *int     `mapstructure:"growth-start-hour"`
	GrowthEndHour       *int     `mapstructure:"growth-end-hour"`
	ElevatedBPM         *float64 `mapstructure:"elevated-bpm"`
	ElevatedPct         *float64 `mapstructure:"elevated-pct"`
	StartHour           *float64 `mapstructure:"start-hour"`
	EndHour             *float64 `mapstructure:"end-hour"`
	RestingHR           float64  `mapstructure:"resting-hr"` // 0 means unset

	// --- Fields from trackCmd.Flags() ---
	AccrueInterval string `mapstructure:"accrue-interval"`
	FlushInterval  string `mapstructure:"flush-interval"`
	LookupTimeout  string `mapstructure:"lookup-timeout"`
	PersistRetries int    `mapstructure:"persist-retries"`
	Debug          bool   `mapstructure:"debug"`

	// --- Fields from eventsCmd.Flags() ---
	KeepDays int `mapstructure:"keep-days"`
}

// Clone returns a copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	if c.RestingHR != nil {
		v := *c.RestingHR
		clone.RestingHR = &v
	}
	return &clone
}

// CloneWithDate creates a copy of the Config pointing at another day.
func (c *Config) CloneWithDate(date string) *Config {
	clone := c.Clone()
	clone.Date = date
	return clone
}

// Today returns the current date in the configured location.
func (c *Config) Today() string {
	return time.Now().In(c.Loc()).Format(DateFormat)
}

// IsToday reports whether the configured date is the current day.
func (c *Config) IsToday() bool {
	return c.Date == c.Today()
}

// Loc returns the ledger time zone, defaulting to the local zone.
func (c *Config) Loc() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processDate(cfg, input); err != nil {
		return err
	}
	if err := processCorrelation(cfg, input); err != nil {
		return err
	}
	return processTracker(cfg, input)
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("store-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("store-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// validateSimpleInputs processes and validates the output and store fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width

	colors := true
	if input.Color != "" {
		parsed, err := ParseBoolString(input.Color)
		if err != nil {
			return fmt.Errorf("invalid --color value: %w", err)
		}
		colors = parsed
	}
	cfg.UseColors = colors

	if input.Width < 0 {
		return fmt.Errorf("width must be non-negative (received %d)", input.Width)
	}

	output := input.Output
	if output == "" {
		output = string(schema.TextOut)
	}
	cfg.Output = schema.OutputMode(strings.ToLower(output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json, parquet", input.Output)
	}

	backend := input.StoreBackend
	if backend == "" {
		backend = string(schema.SQLiteBackend)
	}
	cfg.StoreBackend = schema.DatabaseBackend(strings.ToLower(backend))
	if _, ok := schema.ValidDatabaseBackends[cfg.StoreBackend]; !ok {
		return fmt.Errorf("invalid store backend '%s'. must be sqlite, mysql, postgresql, none", input.StoreBackend)
	}
	cfg.StoreDBConnect = input.StoreDBConnect
	if err := ValidateDatabaseConnectionString(cfg.StoreBackend, cfg.StoreDBConnect); err != nil {
		return err
	}

	cfg.KeepDays = input.KeepDays
	if cfg.KeepDays == 0 {
		cfg.KeepDays = DefaultKeepDays
	}
	if cfg.KeepDays < 1 {
		return fmt.Errorf("keep-days must be at least 1 (received %d)", input.KeepDays)
	}
	return nil
}

// processDate resolves the time zone, the target date and the trend length.
func processDate(cfg *Config, input *ConfigRawInput) error {
	loc := time.Local
	if tz := strings.TrimSpace(input.Timezone); tz != "" && !strings.EqualFold(tz, "local") {
		parsed, err := time.LoadLocation(tz)
		if err != nil {
			return fmt.Errorf("invalid timezone '%s': %w", input.Timezone, err)
		}
		loc = parsed
	}
	cfg.Location = loc

	date, err := ResolveDate(input.Date, loc)
	if err != nil {
		return err
	}
	cfg.Date = date

	days, err := ValidateDays(input.Days)
	if err != nil {
		return err
	}
	cfg.Days = days
	return nil
}

// ResolveDate turns "today", "yesterday", an empty string or YYYY-MM-DD into a calendar date in loc.
func ResolveDate(raw string, loc *time.Location) (string, error) {
	date := strings.TrimSpace(raw)
	switch strings.ToLower(date) {
	case "", "today":
		return time.Now().In(loc).Format(DateFormat), nil
	case "yesterday":
		return time.Now().In(loc).AddDate(0, 0, -1).Format(DateFormat), nil
	}
	if _, err := time.ParseInLocation(DateFormat, date, loc); err != nil {
		return "", fmt.Errorf("invalid date '%s'. expected YYYY-MM-DD, today or yesterday", raw)
	}
	return date, nil
}

// ValidateDays applies the trend default and bounds; zero selects the default.
func ValidateDays(days int) (int, error) {
	if days == 0 {
		return DefaultTrendDays, nil
	}
	if days < 1 || days > MaxTrendDays {
		return 0, fmt.Errorf("days must be between 1 and %d (received %d)", MaxTrendDays, days)
	}
	return days, nil
}

// processCorrelation layers the correlation overrides over the defaults.
func processCorrelation(cfg *Config, input *ConfigRawInput) error {
	c := algo.DefaultCorrelationConfig()
	setFloat := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	setInt := func(dst *int, src *int) {
		if src != nil {
			*dst = *src
		}
	}
	setFloat(&c.StimulationStrainThreshold, input.StimThreshold)
	setInt(&c.StimulationMinSeconds, input.StimMinSeconds)
	setInt(&c.LagMinutes, input.HRLagMinutes)
	setInt(&c.DecayMinutes, input.HRDecayMinutes)
	setInt(&c.GrowthWindowMinutes, input.GrowthWindowMinutes)
	setFloat(&c.GrowthMinBPM, input.GrowthMinBPM)
	setInt(&c.GrowthStartHour, input.GrowthStartHour)
	setInt(&c.GrowthEndHour, input.GrowthEndHour)
	setFloat(&c.ElevatedBPM, input.ElevatedBPM)
	setFloat(&c.ElevatedPct, input.ElevatedPct)
	setFloat(&c.StartHour, input.StartHour)
	setFloat(&c.EndHour, input.EndHour)
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid correlation settings: %w", err)
	}
	cfg.Correlation = c

	cfg.RestingHR = nil
	if input.RestingHR < 0 || input.RestingHR >= 250 {
		return fmt.Errorf("resting-hr must be between 0 and 250 (received %v)", input.RestingHR)
	}
	if input.RestingHR > 0 {
		v := input.RestingHR
		cfg.RestingHR = &v
	}
	return nil
}

// processTracker parses the runtime intervals.
func processTracker(cfg *Config, input *ConfigRawInput) error {
	parse := func(name, raw string, def time.Duration) (time.Duration, error) {
		if strings.TrimSpace(raw) == "" {
			return def, nil
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			return 0, fmt.Errorf("invalid %s '%s': %w", name, raw, err)
		}
		if d <= 0 {
			return 0, fmt.Errorf("%s must be positive (received %s)", name, raw)
		}
		return d, nil
	}

	var err error
	t := TrackerConfig{Debug: input.Debug}
	if t.AccrueInterval, err = parse("accrue-interval", input.AccrueInterval, DefaultAccrueInterval); err != nil {
		return err
	}
	if t.FlushInterval, err = parse("flush-interval", input.FlushInterval, DefaultFlushInterval); err != nil {
		return err
	}
	if t.LookupTimeout, err = parse("lookup-timeout", input.LookupTimeout, DefaultLookupTimeout); err != nil {
		return err
	}
	if t.AccrueInterval < time.Second || t.FlushInterval < time.Second {
		return fmt.Errorf("accrue-interval and flush-interval must be at least 1s")
	}

	t.PersistRetries = input.PersistRetries
	if t.PersistRetries == 0 {
		t.PersistRetries = DefaultPersistRetries
	}
	if t.PersistRetries < 0 || t.PersistRetries > 10 {
		return fmt.Errorf("persist-retries must be between 0 and 10 (received %d)", input.PersistRetries)
	}
	cfg.Tracker = t
	return nil
}
