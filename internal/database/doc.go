// Package database provides SQLite-based storage for audit reports.
//
// This package implements the AuditDB, which stores one row per completed
// audit: the full evidence report as JSON plus headline columns (verdict,
// violation count, penalty total) so history listings and audit comparison
// don't need to parse every stored report.
//
// Design decision: We use SQLite (via modernc.org/sqlite) instead of other
// databases because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. Sufficient performance for our use case
// 4. WAL mode provides good concurrent read performance
package database
