package core

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/huangsam/stimstrain/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutors_WriteOutputFile(t *testing.T) {
	ctx := context.Background()
	mgr, store := newTestManager(t)
	seedDay(t, store)

	tests := []struct {
		name string
		exec ExecutorFunc
		out  schema.OutputMode
		ok   bool
	}{
		{"report json", ExecuteReport, schema.JSONOut, true},
		{"trend csv", ExecuteTrend, schema.CSVOut, true},
		{"export parquet", ExecuteExport, schema.ParquetOut, true},
		{"report parquet", ExecuteReport, schema.ParquetOut, false},
		{"correlate without heart rate", ExecuteCorrelate, schema.JSONOut, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newTestConfig(testDate)
			cfg.Output = tt.out
			cfg.OutputFile = filepath.Join(t.TempDir(), "out")

			err := tt.exec(ctx, cfg, mgr)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			info, err := os.Stat(cfg.OutputFile)
			require.NoError(t, err)
			assert.Greater(t, info.Size(), int64(0))
		})
	}
}

func TestExecuteReport_JSONMatchesGetDayReport(t *testing.T) {
	ctx := context.Background()
	mgr, store := newTestManager(t)
	seedDay(t, store)

	cfg := newTestConfig(testDate)
	cfg.OutputFile = filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, ExecuteReport(ctx, cfg, mgr))

	data, err := os.ReadFile(cfg.OutputFile)
	require.NoError(t, err)
	var written schema.DayReport
	require.NoError(t, json.Unmarshal(data, &written))

	direct, err := GetDayReport(ctx, newTestConfig(testDate), mgr)
	require.NoError(t, err)
	assert.Equal(t, direct.Strain.Score, written.Strain.Score)
	assert.Equal(t, direct.BucketCount, written.BucketCount)
}
