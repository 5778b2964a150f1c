package iostore

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/huangsam/stimstrain/schema"
)

var tableNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// validateTableName validates that the table name is a safe SQL identifier.
// It ensures the name consists only of alphanumeric characters and underscores,
// starting with a letter or underscore, to prevent SQL injection.
func validateTableName(name string) error {
	if name == "" {
		return fmt.Errorf("table name cannot be empty")
	}
	if !tableNamePattern.MatchString(name) {
		return fmt.Errorf("invalid table name: %s (must match pattern ^[a-zA-Z_][a-zA-Z0-9_]*$)", name)
	}
	return nil
}

// quoteTableName returns the properly quoted table name for the given backend.
func quoteTableName(name string, backend schema.DatabaseBackend) string {
	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf("`%s`", name)
	default: // SQLite and PostgreSQL
		return fmt.Sprintf("\"%s\"", name)
	}
}

// placeholder returns the n-th (1-based) parameter placeholder for the backend.
func placeholder(backend schema.DatabaseBackend, n int) string {
	if backend == schema.PostgreSQLBackend {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// placeholders returns count comma-separated placeholders starting at start.
func placeholders(backend schema.DatabaseBackend, start, count int) string {
	parts := make([]string, count)
	for i := range parts {
		parts[i] = placeholder(backend, start+i)
	}
	return strings.Join(parts, ", ")
}

// upsertQuery returns the backend-specific UPSERT for table keyed by keyCols.
func upsertQuery(backend schema.DatabaseBackend, table string, cols, keyCols []string) string {
	quoted := quoteTableName(table, backend)
	colList := joinColumns(cols)
	values := placeholders(backend, 1, len(cols))

	isKey := make(map[string]bool, len(keyCols))
	for _, k := range keyCols {
		isKey[k] = true
	}
	var updates []string

	switch backend {
	case schema.MySQLBackend:
		for _, c := range cols {
			if !isKey[c] {
				updates = append(updates, fmt.Sprintf("%s = new.%s", c, c))
			}
		}
		return fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) AS new
			ON DUPLICATE KEY UPDATE %s`, quoted, colList, values, strings.Join(updates, ", "))

	case schema.PostgreSQLBackend:
		for _, c := range cols {
			if !isKey[c] {
				updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
			}
		}
		return fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)
			ON CONFLICT (%s) DO UPDATE SET %s`, quoted, colList, values, strings.Join(keyCols, ", "), strings.Join(updates, ", "))

	default: // SQLite
		return fmt.Sprintf(`INSERT OR REPLACE INTO %s (%s) VALUES (%s)`, quoted, colList, values)
	}
}

// joinColumns renders a column list.
func joinColumns(cols []string) string {
	return strings.Join(cols, ", ")
}
