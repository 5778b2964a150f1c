package iostore

import (
	"database/sql"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/huangsam/stimstrain/schema"
)

// GetStatus returns status information about the record store.
func (s *LedgerStoreImpl) GetStatus() (schema.StoreStatus, error) {
	status := schema.StoreStatus{
		Backend:   string(s.backend),
		Connected: s.db != nil,
		TableRows: map[string]int64{},
	}

	if s.disabled() {
		return status, nil
	}

	for _, table := range ledgerTables {
		var count int64
		row := s.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteTableName(table, s.backend)))
		if err := row.Scan(&count); err != nil {
			return status, fmt.Errorf("failed to count rows of %s: %w", table, err)
		}
		status.TableRows[table] = count
	}

	if status.TableRows[bucketsTable] > 0 {
		var oldest, newest string
		var lastTS int64
		row := s.db.QueryRow(fmt.Sprintf("SELECT MIN(bucket_date), MAX(bucket_date), MAX(bucket_ts) FROM %s",
			quoteTableName(bucketsTable, s.backend)))
		if err := row.Scan(&oldest, &newest, &lastTS); err != nil {
			return status, fmt.Errorf("failed to get bucket range: %w", err)
		}
		status.OldestBucketDate = oldest
		status.NewestBucketDate = newest
		status.LastWriteTime = time.UnixMilli(lastTS)
	}

	status.TableSizeBytes = s.estimateSize(status.TableRows)
	return status, nil
}

// estimateSize returns the on-disk size where the backend exposes it,
// and a rough per-row estimate otherwise.
func (s *LedgerStoreImpl) estimateSize(rows map[string]int64) int64 {
	var total int64
	for _, n := range rows {
		total += n
	}
	fallback := total * 200

	switch s.backend {
	case schema.SQLiteBackend:
		var size int64
		row := s.db.QueryRow("SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()")
		if err := row.Scan(&size); err != nil {
			return 0
		}
		return size

	case schema.MySQLBackend:
		cfg, err := mysql.ParseDSN(s.connStr)
		if err != nil || cfg.DBName == "" {
			return fallback
		}
		var size sql.NullInt64
		row := s.db.QueryRow("SELECT SUM(data_length + index_length) FROM information_schema.tables WHERE table_schema = ?", cfg.DBName)
		if err := row.Scan(&size); err != nil || !size.Valid {
			return fallback
		}
		return size.Int64

	case schema.PostgreSQLBackend:
		var size int64
		for _, table := range ledgerTables {
			var tableSize int64
			if err := s.db.QueryRow("SELECT pg_total_relation_size($1)", table).Scan(&tableSize); err != nil {
				return fallback
			}
			size += tableSize
		}
		return size

	default:
		return fallback
	}
}

// PrintStoreStatus prints store status information.
func PrintStoreStatus(w io.Writer, status schema.StoreStatus) {
	_, _ = fmt.Fprintf(w, "Store Backend: %s\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	if status.NewestBucketDate != "" {
		_, _ = fmt.Fprintf(w, "Bucket Dates: %s to %s\n", status.OldestBucketDate, status.NewestBucketDate)
		_, _ = fmt.Fprintf(w, "Last Bucket: %s\n", status.LastWriteTime.Format("2006-01-02 15:04:05"))
	}
	_, _ = fmt.Fprintf(w, "Store Size: %d bytes\n", status.TableSizeBytes)
	_, _ = fmt.Fprintln(w, "Table Sizes:")
	tables := make([]string, 0, len(status.TableRows))
	for table := range status.TableRows {
		tables = append(tables, table)
	}
	sort.Strings(tables)
	for _, table := range tables {
		_, _ = fmt.Fprintf(w, "  %s: %d rows\n", table, status.TableRows[table])
	}
}
