//go:build database

package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/huangsam/stimstrain/internal/iostore"
	"github.com/huangsam/stimstrain/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestStimstrainWithMySQL tests the stimstrain CLI with a MySQL backend.
func TestStimstrainWithMySQL(t *testing.T) {
	ctx := context.Background()

	// Start MySQL container
	req := testcontainers.ContainerRequest{
		Image:        "mysql:8",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "secret123",
			"MYSQL_DATABASE":      "stimstrain",
		},
		WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").WithStartupTimeout(60 * time.Second),
	}
	mysqlC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = mysqlC.Terminate(ctx) }()

	// Get connection details
	host, err := mysqlC.Host(ctx)
	require.NoError(t, err)
	port, err := mysqlC.MappedPort(ctx, "3306")
	require.NoError(t, err)

	connStr := fmt.Sprintf("root:secret123@tcp(%s:%s)/stimstrain?parseTime=true", host, port.Port())

	verifyLedgerStore(t, schema.MySQLBackend, connStr)
	runBackendScenario(t, map[string]string{
		"STIMSTRAIN_STORE_BACKEND":    "mysql",
		"STIMSTRAIN_STORE_DB_CONNECT": connStr,
	})
}

// TestStimstrainWithPostgres tests the stimstrain CLI with a PostgreSQL backend.
func TestStimstrainWithPostgres(t *testing.T) {
	ctx := context.Background()

	// Start Postgres container
	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_HOST_AUTH_METHOD": "trust",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = pgC.Terminate(ctx) }()

	// Get connection details
	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connStr := fmt.Sprintf("host=%s port=%s user=postgres dbname=postgres", host, port.Port())

	verifyLedgerStore(t, schema.PostgreSQLBackend, connStr)
	runBackendScenario(t, map[string]string{
		"STIMSTRAIN_STORE_BACKEND":    "postgresql",
		"STIMSTRAIN_STORE_DB_CONNECT": connStr,
	})
}

// verifyLedgerStore round-trips every store against a live database.
func verifyLedgerStore(t *testing.T, backend schema.DatabaseBackend, connStr string) {
	t.Helper()
	ctx := context.Background()

	store, err := iostore.NewLedgerStore(backend, connStr)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	bucket := schema.Bucket{
		Date:           "2025-03-04",
		Minute:         "10:15",
		Timestamp:      time.Date(2025, 3, 4, 10, 15, 0, 0, time.UTC).UnixMilli(),
		Hour:           10,
		FocusedSeconds: 42,
		Scrolls:        9,
		Category:       schema.CategoryRedditFeed,
		URL:            "https://www.reddit.com/",
	}
	require.NoError(t, store.PutBucket(ctx, bucket))
	bucket.FocusedSeconds = 60
	require.NoError(t, store.PutBucket(ctx, bucket)) // upsert

	got, err := store.GetBucket(ctx, schema.BucketKey(bucket.Date, bucket.Minute))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, bucket, *got)

	missing, err := store.GetBucket(ctx, schema.BucketKey("2025-03-04", "11:00"))
	require.NoError(t, err)
	assert.Nil(t, missing)

	for i, date := range []string{"2025-02-01", "2025-03-04"} {
		require.NoError(t, store.AppendEvent(ctx, schema.Event{
			ID:   fmt.Sprintf("evt-%d", i),
			Type: schema.EventActiveTabChanged,
			TS:   time.Date(2025, 3, 4, 10, i, 0, 0, time.UTC).UnixMilli(),
			Date: date,
		}))
	}
	removed, err := store.ClearEventsBefore(ctx, "2025-03-01")
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	events, err := store.GetEventsForDate(ctx, "2025-03-04")
	require.NoError(t, err)
	assert.Len(t, events, 1)

	require.NoError(t, store.SetState(ctx, "session", []byte(`{"windowFocused":true}`)))
	state, err := store.GetState(ctx, "session")
	require.NoError(t, err)
	assert.JSONEq(t, `{"windowFocused":true}`, string(state))

	resting := 55.0
	require.NoError(t, store.PutHeartRate(ctx, schema.HeartRateDay{
		Date:      "2025-03-04",
		Samples:   []schema.HRSample{{TS: bucket.Timestamp, BPM: 71}},
		RestingHR: &resting,
	}))
	hr, err := store.GetHeartRate(ctx, "2025-03-04")
	require.NoError(t, err)
	require.NotNil(t, hr)
	assert.Len(t, hr.Samples, 1)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Equal(t, "2025-03-04", status.NewestBucketDate)
}

// runBackendScenario drives the CLI end to end against the configured backend.
func runBackendScenario(t *testing.T, env map[string]string) {
	t.Helper()
	env["STIMSTRAIN_TIMEZONE"] = "UTC"
	today := time.Now().UTC().Format("2006-01-02")
	midnight := time.Now().UTC().Truncate(24 * time.Hour).UnixMilli()

	_, err := runCommand(t, env, "", "store", "clear")
	require.NoError(t, err)

	out, err := runCommand(t, env, "", "store", "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "migrated")

	_, err = runCommand(t, env, hostEvents, "track", "--accrue-interval", "1s", "--flush-interval", "1s")
	require.NoError(t, err)

	out, err = runCommand(t, env, "", "import-hr", writeHeartRate(t, today, midnight))
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 30 heart rate samples")

	out, err = runCommand(t, env, "", "report", "--output", "json")
	require.NoError(t, err)
	var report schema.DayReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, today, report.Date)
	assert.GreaterOrEqual(t, report.BucketCount, 1)
	assert.NotNil(t, report.HeartRate)

	out, err = runCommand(t, env, "", "correlate", "--output", "csv")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "metric,value"))

	out, err = runCommand(t, env, "", "export", "--output", "csv")
	require.NoError(t, err)
	assert.Contains(t, out, "reddit.com")

	_, err = runCommand(t, env, "", "trend", "--days", "3")
	require.NoError(t, err)

	out, err = runCommand(t, env, "", "events", "prune", "--keep-days", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 0 events")

	out, err = runCommand(t, env, "", "store", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Connected: true")
}
