package store

import (
	"database/sql"
	"fmt"
	"strings"
)

// dialect hides the differences between the SQLite and PostgreSQL archives.
type dialect interface {
	// DriverName returns the database/sql driver name.
	DriverName() string

	// Placeholder returns the parameter placeholder for a 1-based index.
	Placeholder(index int) string

	// configure tunes the connection pool and session settings.
	configure(db *sql.DB) error

	// migrate brings an existing schema up to currentSchemaVersion.
	migrate(db *sql.DB) error
}

// dialectFor picks PostgreSQL for postgres:// URLs and SQLite otherwise.
func dialectFor(dsn string) dialect {
	lower := strings.ToLower(dsn)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return postgresDialect{}
	}
	return sqliteDialect{}
}

type sqliteDialect struct{}

func (sqliteDialect) DriverName() string { return "sqlite3" }
func (sqliteDialect) Placeholder(int) string { return "?" }

// configure limits the pool to one connection (SQLite has a single writer,
// and :memory: databases are per connection) and applies pragmas:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//   - foreign key enforcement
func (sqliteDialect) configure(db *sql.DB) error {
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// migrate applies incremental migrations based on user_version.
func (sqliteDialect) migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d",
			version, currentSchemaVersion)
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

type postgresDialect struct{}

func (postgresDialect) DriverName() string { return "pgx" }
func (postgresDialect) Placeholder(index int) string { return fmt.Sprintf("$%d", index) }
func (postgresDialect) configure(*sql.DB) error { return nil }

// migrate is a no-op until the schema gains a second version.
func (postgresDialect) migrate(*sql.DB) error { return nil }

// rebind rewrites ?-style placeholders for d. Queries in this package never
// contain a literal question mark.
func rebind(d dialect, query string) string {
	if _, ok := d.(sqliteDialect); ok {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(d.Placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// statements splits the embedded schema into single statements, dropping
// comments. Drivers differ on multi-statement Exec.
func statements(schema string) []string {
	var lines []string
	for _, line := range strings.Split(schema, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		lines = append(lines, line)
	}

	var out []string
	for _, stmt := range strings.Split(strings.Join(lines, "\n"), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
