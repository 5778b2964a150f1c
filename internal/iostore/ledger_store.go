package iostore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	"github.com/huangsam/stimstrain/internal/contract"
	"github.com/huangsam/stimstrain/schema"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver
)

// Table names of the ledger.
const (
	bucketsTable    = "activity_buckets"
	eventsTable     = "activity_events"
	heartRateTable  = "heart_rate_days"
	activitiesTable = "physical_activities"
	stateTable      = "tracker_state"
	migrationsTable = "schema_migrations"
)

// ledgerTables lists the tables owned by the ledger.
var ledgerTables = []string{bucketsTable, eventsTable, heartRateTable, activitiesTable, stateTable}

// bucketColumns is the column order used for every bucket read and write.
var bucketColumns = []string{
	"bucket_key", "bucket_date", "bucket_minute", "bucket_ts", "bucket_hour",
	"focused_seconds", "switches", "scrolls", "scroll_distance", "clicks",
	"shorts_count", "reels_count", "tiktoks_count",
	"stimulation_seconds", "youtube_watch_seconds", "spotify_seconds", "other_music_seconds", "audio_playing_seconds",
	"category", "url",
}

// eventColumns is the column order used for every event read and write.
var eventColumns = []string{"event_id", "event_date", "ts", "event_type", "tab_id", "domain", "category", "url", "focused"}

// LedgerStoreImpl handles durable storage operations using various database backends.
type LedgerStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
	connStr string
}

var _ contract.LedgerStore = &LedgerStoreImpl{} // Compile-time check

// resolveSQLiteDSN returns the SQLite path, defaulting to the home directory file.
func resolveSQLiteDSN(connStr string) (string, error) {
	dbPath := connStr
	if dbPath == "" {
		dbPath = GetDBFilePath()
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create directory for SQLite database %q: %w", dbPath, err)
		}
	}
	return dbPath, nil
}

// openDB opens and pings a connection for the backend.
func openDB(backend schema.DatabaseBackend, connStr string) (*sql.DB, error) {
	var db *sql.DB
	var err error

	switch backend {
	case schema.SQLiteBackend:
		dbPath, pathErr := resolveSQLiteDSN(connStr)
		if pathErr != nil {
			return nil, pathErr
		}
		db, err = sql.Open("sqlite", dbPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite database at %q: %w. Check that the directory is writable", dbPath, err)
		}
		// Limit SQLite to a single open connection to avoid "database is locked" errors
		db.SetMaxOpenConns(1)

	case schema.MySQLBackend:
		// connStr should be:
		// user:password@tcp(host:port)/dbname
		db, err = sql.Open("mysql", connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to open MySQL database: %w. Check connection string format: user:password@tcp(host:port)/dbname", err)
		}

	case schema.PostgreSQLBackend:
		// connStr should be:
		// host=localhost port=5432 user=postgres password=mysecretpassword dbname=postgres
		db, err = sql.Open("pgx", connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to open PostgreSQL database: %w. Check connection string format: host=localhost port=5432 user=postgres dbname=mydb", err)
		}

	default:
		return nil, fmt.Errorf("unsupported store backend: %s. Must be sqlite, mysql, postgresql, or none", backend)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s database. Check that the server is running and connection parameters are valid: %w", backend, err)
	}
	return db, nil
}

// NewLedgerStore migrates the schema to the latest version and returns a store
// for the backend. The none backend yields a no-op store.
func NewLedgerStore(backend schema.DatabaseBackend, connStr string) (*LedgerStoreImpl, error) {
	for _, table := range ledgerTables {
		if err := validateTableName(table); err != nil {
			return nil, err
		}
	}

	if backend == schema.NoneBackend {
		return &LedgerStoreImpl{backend: backend, connStr: connStr}, nil
	}

	db, err := openDB(backend, connStr)
	if err != nil {
		return nil, err
	}

	if err := migrateDB(db, backend, -1, io.Discard); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &LedgerStoreImpl{
		db:      db,
		backend: backend,
		connStr: connStr,
	}, nil
}

// disabled reports whether the store is a no-op.
func (s *LedgerStoreImpl) disabled() bool {
	return s.backend == schema.NoneBackend || s.db == nil
}

// selectQuery builds a SELECT of cols from table with an optional tail clause.
func (s *LedgerStoreImpl) selectQuery(table string, cols []string, tail string) string {
	return fmt.Sprintf("SELECT %s FROM %s %s", strings.Join(cols, ", "), quoteTableName(table, s.backend), tail)
}

// ph returns the n-th placeholder for this backend.
func (s *LedgerStoreImpl) ph(n int) string {
	return placeholder(s.backend, n)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func bucketArgs(b schema.Bucket) []any {
	return []any{
		b.Key(), b.Date, b.Minute, b.Timestamp, b.Hour,
		b.FocusedSeconds, b.Switches, b.Scrolls, b.ScrollDistance, b.Clicks,
		b.ShortsCount, b.ReelsCount, b.TiktoksCount,
		b.StimulationSeconds, b.YouTubeWatchSeconds, b.SpotifySeconds, b.OtherMusicSeconds, b.AudioPlayingSeconds,
		string(b.Category), b.URL,
	}
}

func scanBucket(row rowScanner) (schema.Bucket, error) {
	var b schema.Bucket
	var key, category string
	err := row.Scan(
		&key, &b.Date, &b.Minute, &b.Timestamp, &b.Hour,
		&b.FocusedSeconds, &b.Switches, &b.Scrolls, &b.ScrollDistance, &b.Clicks,
		&b.ShortsCount, &b.ReelsCount, &b.TiktoksCount,
		&b.StimulationSeconds, &b.YouTubeWatchSeconds, &b.SpotifySeconds, &b.OtherMusicSeconds, &b.AudioPlayingSeconds,
		&category, &b.URL,
	)
	b.Category = schema.Category(category)
	return b, err
}

// PutBucket upserts a bucket keyed by date and minute.
func (s *LedgerStoreImpl) PutBucket(ctx context.Context, b schema.Bucket) error {
	if s.disabled() {
		return nil
	}
	query := upsertQuery(s.backend, bucketsTable, bucketColumns, []string{"bucket_key"})
	if _, err := s.db.ExecContext(ctx, query, bucketArgs(b)...); err != nil {
		return fmt.Errorf("failed to save bucket %s: %w", b.Key(), err)
	}
	return nil
}

// GetBucket returns the bucket for key, or nil when absent.
func (s *LedgerStoreImpl) GetBucket(ctx context.Context, key string) (*schema.Bucket, error) {
	if s.disabled() {
		return nil, nil
	}
	query := s.selectQuery(bucketsTable, bucketColumns, "WHERE bucket_key = "+s.ph(1))
	b, err := scanBucket(s.db.QueryRowContext(ctx, query, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load bucket %s: %w", key, err)
	}
	return &b, nil
}

// GetBucketsForDate returns the buckets of a day ordered by minute.
func (s *LedgerStoreImpl) GetBucketsForDate(ctx context.Context, date string) ([]schema.Bucket, error) {
	return s.queryBuckets(ctx, "WHERE bucket_date = "+s.ph(1)+" ORDER BY bucket_minute", date)
}

// GetBucketsInRange returns the buckets between two dates (inclusive) ordered by date and minute.
func (s *LedgerStoreImpl) GetBucketsInRange(ctx context.Context, startDate, endDate string) ([]schema.Bucket, error) {
	tail := fmt.Sprintf("WHERE bucket_date >= %s AND bucket_date <= %s ORDER BY bucket_date, bucket_minute", s.ph(1), s.ph(2))
	return s.queryBuckets(ctx, tail, startDate, endDate)
}

func (s *LedgerStoreImpl) queryBuckets(ctx context.Context, tail string, args ...any) ([]schema.Bucket, error) {
	buckets := []schema.Bucket{}
	if s.disabled() {
		return buckets, nil
	}
	rows, err := s.db.QueryContext(ctx, s.selectQuery(bucketsTable, bucketColumns, tail), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query buckets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		b, err := scanBucket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bucket: %w", err)
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

// AppendEvent writes a raw event. Re-appending the same id overwrites it.
func (s *LedgerStoreImpl) AppendEvent(ctx context.Context, e schema.Event) error {
	if s.disabled() {
		return nil
	}
	var focused any
	if e.Focused != nil {
		focused = *e.Focused
	}
	query := upsertQuery(s.backend, eventsTable, eventColumns, []string{"event_id"})
	args := []any{e.ID, e.Date, e.TS, string(e.Type), e.TabID, e.Domain, string(e.Category), e.URL, focused}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to append event %s: %w", e.ID, err)
	}
	return nil
}

// GetEventsForDate returns the events of a day ascending by time.
func (s *LedgerStoreImpl) GetEventsForDate(ctx context.Context, date string) ([]schema.Event, error) {
	events := []schema.Event{}
	if s.disabled() {
		return events, nil
	}
	query := s.selectQuery(eventsTable, eventColumns, "WHERE event_date = "+s.ph(1)+" ORDER BY ts, event_id")
	rows, err := s.db.QueryContext(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var e schema.Event
		var eventType, category string
		var focused sql.NullBool
		if err := rows.Scan(&e.ID, &e.Date, &e.TS, &eventType, &e.TabID, &e.Domain, &category, &e.URL, &focused); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Type = schema.EventType(eventType)
		e.Category = schema.Category(category)
		if focused.Valid {
			v := focused.Bool
			e.Focused = &v
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// ClearEventsBefore deletes events dated before date and returns the number removed.
func (s *LedgerStoreImpl) ClearEventsBefore(ctx context.Context, date string) (int64, error) {
	if s.disabled() {
		return 0, nil
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE event_date < %s", quoteTableName(eventsTable, s.backend), s.ph(1))
	res, err := s.db.ExecContext(ctx, query, date)
	if err != nil {
		return 0, fmt.Errorf("failed to prune events: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the underlying DB connection.
func (s *LedgerStoreImpl) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
