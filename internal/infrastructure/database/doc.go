// Package database provides SQLite connection management and schema
// migrations for Hearth.
//
// The database is opened with WAL journaling and foreign keys enabled,
// and restricted to a single writer connection. Schema migrations are
// embedded in the binary and applied automatically at startup; each
// migration runs in its own transaction so a failure never leaves a
// half-applied script behind.
//
// Migration files live in the top-level migrations directory and follow
// the naming convention YYYYMMDD_HHMMSS_description.up.sql with an
// optional matching .down.sql for rollback.
package database
