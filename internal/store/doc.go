// Package store archives verification runs in SQLite or PostgreSQL.
//
// Three tables hold the archive:
//   - runs: one row per run (scenario, verdict, check count)
//   - run_events: the drained trace, one row per event, in arrival order
//   - run_findings: the report, one row per finding, in report order
//
// # Ordering
//
// Runs are ordered by recorded_seq, a logical clock assigned inside the
// write transaction. Wall time is never stored, so listing is deterministic.
//
// # Database Configuration
//
// SQLite archives use WAL mode, synchronous=NORMAL, a 5 second busy timeout,
// foreign keys, and a single pooled connection. The schema version lives
// in PRAGMA user_version.
//
// PostgreSQL archives are selected with a postgres:// DSN and go through
// the pgx database/sql driver.
package store
