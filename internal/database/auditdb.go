package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/gpcscan/gpcscan/internal/model"
)

// AuditDB provides SQLite-based storage for completed audit reports.
// It manages connection pooling and provides methods for saving and
// querying audit history.
//
// Design decision: We use a single database file for all audited targets
// rather than one file per target. Compliance audits are re-run over time
// and compared against earlier runs, so history and cross-target queries
// need to span audits.
type AuditDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures AuditDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates an AuditDB at the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*AuditDB, error) {
	dbPath := filepath.Join(dbDir, "gpcscan.db")

	// Check if we should create the database or require it to exist
	if !opts.CreateIfNotExists {
		// Check if database file exists
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		// Ensure directory exists
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Build connection string
	// We use modernc.org/sqlite which uses a different connection string format.
	// When CreateIfNotExists is false, we use mode=rw to prevent creating new files.
	// When CreateIfNotExists is true, we use mode=rwc to allow creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	// SQLite doesn't benefit from multiple connections for writes,
	// but multiple readers can improve performance
	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	adb := &AuditDB{
		db:     db,
		dbPath: dbPath,
	}

	// Enable WAL mode if requested
	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	// Create tables
	if err := adb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return adb, nil
}

// Close closes the database connection.
func (adb *AuditDB) Close() error {
	return adb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (adb *AuditDB) createTables() error {
	schema := `
	-- Audit reports store the complete evidence report as JSON, plus the
	-- headline columns needed to list and compare audits without parsing it.
	-- Audit IDs are timestamped to the second, so a batch started in the
	-- same second shares one ID across targets; uniqueness is per target.
	CREATE TABLE IF NOT EXISTS audit_reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		audit_id TEXT NOT NULL,
		target TEXT NOT NULL,
		jurisdiction TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		verdict TEXT,
		violation_count INTEGER DEFAULT 0,
		max_penalty_usd REAL DEFAULT 0,
		severity_summary TEXT,
		report_json TEXT NOT NULL,
		UNIQUE(audit_id, target)
	);

	CREATE INDEX IF NOT EXISTS idx_reports_target ON audit_reports(target);
	CREATE INDEX IF NOT EXISTS idx_reports_timestamp ON audit_reports(timestamp);
	`

	_, err := adb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveRun persists a completed run's evidence report.
// Uses UPSERT so re-saving the same audit ID and target updates the stored
// report instead of duplicating the row.
func (adb *AuditDB) SaveRun(ctx context.Context, run *model.Run) error {
	if run == nil || run.Report == nil {
		return ErrNoReport
	}

	// Serialize report to JSON
	reportJSON, err := json.Marshal(run.Report)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}

	summary := run.Report.ViolationSummary
	severityJSON, _ := json.Marshal(summary.SeverityBreakdown) //nolint:errcheck,errchkjson // SeverityBreakdown is a simple map; Marshal won't fail

	query := `
	INSERT INTO audit_reports (audit_id, target, jurisdiction, verdict, violation_count, max_penalty_usd, severity_summary, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(audit_id, target) DO UPDATE SET
		jurisdiction = excluded.jurisdiction,
		verdict = excluded.verdict,
		violation_count = excluded.violation_count,
		max_penalty_usd = excluded.max_penalty_usd,
		severity_summary = excluded.severity_summary,
		report_json = excluded.report_json,
		timestamp = CURRENT_TIMESTAMP
	`

	_, err = adb.db.ExecContext(ctx, query,
		run.ID,
		run.Target,
		run.Jurisdiction,
		run.Report.Verdict.Verdict,
		summary.Total,
		summary.MaxPotentialPenaltyUSD,
		string(severityJSON),
		string(reportJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save audit report: %w", err)
	}

	return nil
}

// GetLatestReport retrieves the most recent audit report for a target.
// Returns nil without error if the target has never been audited.
func (adb *AuditDB) GetLatestReport(ctx context.Context, target string) (*model.AuditReport, error) {
	query := `
	SELECT report_json FROM audit_reports
	WHERE target = ?
	ORDER BY timestamp DESC, id DESC
	LIMIT 1
	`

	var reportJSON string
	err := adb.db.QueryRowContext(ctx, query, target).Scan(&reportJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get audit report: %w", err)
	}

	var report model.AuditReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &report, nil
}

// GetReportByAuditID retrieves an audit report by its audit ID. When a
// batch shares the ID across targets, the newest row wins.
// Returns nil without error if no report carries that ID.
func (adb *AuditDB) GetReportByAuditID(ctx context.Context, auditID string) (*model.AuditReport, error) {
	query := `
	SELECT report_json FROM audit_reports
	WHERE audit_id = ?
	ORDER BY timestamp DESC, id DESC
	LIMIT 1
	`

	var reportJSON string
	err := adb.db.QueryRowContext(ctx, query, auditID).Scan(&reportJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get audit report: %w", err)
	}

	var report model.AuditReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &report, nil
}

// GetAuditHistory retrieves all audit reports for a target, newest first.
func (adb *AuditDB) GetAuditHistory(ctx context.Context, target string) ([]*model.AuditReport, error) {
	query := `
	SELECT report_json FROM audit_reports
	WHERE target = ?
	ORDER BY timestamp DESC, id DESC
	`

	rows, err := adb.db.QueryContext(ctx, query, target)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit history: %w", err)
	}
	defer rows.Close()

	var reports []*model.AuditReport
	for rows.Next() {
		var reportJSON string
		if err := rows.Scan(&reportJSON); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}

		var report model.AuditReport
		if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
			continue // Skip malformed reports
		}
		reports = append(reports, &report)
	}

	return reports, rows.Err()
}

// HasRecentAudit checks if a target was audited within the specified duration.
func (adb *AuditDB) HasRecentAudit(ctx context.Context, target string, within time.Duration) (bool, error) {
	query := `
	SELECT COUNT(*) FROM audit_reports
	WHERE target = ? AND timestamp > datetime('now', ?)
	`

	// SQLite datetime modifier format
	modifier := fmt.Sprintf("-%d seconds", int(within.Seconds()))

	var count int
	err := adb.db.QueryRowContext(ctx, query, target, modifier).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check recent audit: %w", err)
	}

	return count > 0, nil
}

// ListAuditedTargets returns all targets with at least one stored report.
func (adb *AuditDB) ListAuditedTargets(ctx context.Context) ([]string, error) {
	query := `
	SELECT DISTINCT target FROM audit_reports
	ORDER BY target
	`

	rows, err := adb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list targets: %w", err)
	}
	defer rows.Close()

	var targets []string
	for rows.Next() {
		var target string
		if err := rows.Scan(&target); err != nil {
			return nil, fmt.Errorf("failed to scan target: %w", err)
		}
		targets = append(targets, target)
	}

	return targets, rows.Err()
}

// AuditRecordMetadata contains summary information about a stored audit.
// This is used for displaying audit history without loading the full report.
type AuditRecordMetadata struct {
	// ID is the unique identifier of the audit row in the database.
	ID int64

	// AuditID is the timestamped audit identifier.
	AuditID string

	// Target is the audited root URL.
	Target string

	// Jurisdiction is the rule set the audit ran under.
	Jurisdiction string

	// Timestamp is when the audit was stored.
	Timestamp time.Time

	// Verdict is the headline opt-out verdict.
	Verdict string

	// ViolationCount is the number of violations in the report.
	ViolationCount int

	// MaxPenaltyUSD is the summed statutory maximum penalty.
	MaxPenaltyUSD float64

	// SeverityCounts contains violation counts by severity level.
	SeverityCounts map[string]int
}

// GetAuditHistoryWithMetadata retrieves audit metadata for a target.
// This is more efficient than GetAuditHistory when only metadata is needed.
func (adb *AuditDB) GetAuditHistoryWithMetadata(ctx context.Context, target string) ([]AuditRecordMetadata, error) {
	query := `
	SELECT id, audit_id, target, jurisdiction, timestamp, verdict, violation_count, max_penalty_usd, severity_summary
	FROM audit_reports
	WHERE target = ?
	ORDER BY timestamp DESC, id DESC
	`

	rows, err := adb.db.QueryContext(ctx, query, target)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit history: %w", err)
	}
	defer rows.Close()

	var results []AuditRecordMetadata
	for rows.Next() {
		var meta AuditRecordMetadata
		var timestamp string
		var verdict sql.NullString
		var severityJSON sql.NullString

		if err := rows.Scan(&meta.ID, &meta.AuditID, &meta.Target, &meta.Jurisdiction,
			&timestamp, &verdict, &meta.ViolationCount, &meta.MaxPenaltyUSD, &severityJSON); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}

		// Parse timestamp
		meta.Timestamp = parseTimestamp(timestamp)
		meta.Verdict = verdict.String

		// Parse severity summary
		if severityJSON.Valid && severityJSON.String != "" {
			if err := json.Unmarshal([]byte(severityJSON.String), &meta.SeverityCounts); err != nil {
				meta.SeverityCounts = make(map[string]int)
			}
		} else {
			meta.SeverityCounts = make(map[string]int)
		}

		results = append(results, meta)
	}

	return results, rows.Err()
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// SQLite may return timestamps in different formats depending on configuration.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	// Return zero time if no format matches
	// This is a fallback to avoid breaking functionality for edge cases
	return time.Time{}
}
