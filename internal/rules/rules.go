package rules

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "embed"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/gpcscan/gpcscan/internal/model"
)

//go:embed seed.sql
var seedSQL string

// Store provides read access to the compliance rule table.
type Store struct {
	db *sql.DB
}

// Open loads the embedded rule seed into a fresh in-memory database.
func Open(ctx context.Context) (*Store, error) {
	return open(ctx, seedSQL)
}

// OpenFile loads a user-supplied SQL seed instead of the embedded one.
// The file uses the same dialect as the embedded seed: statement
// comments start with --, statements end with semicolons, and only
// CREATE, INSERT, ALTER, and DROP statements are executed.
func OpenFile(ctx context.Context, path string) (*Store, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule seed file: %w", err)
	}
	return open(ctx, string(raw))
}

func open(ctx context.Context, seed string) (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory rule database: %w", err)
	}

	// Every new connection to :memory: is a separate empty database,
	// so the pool must be pinned to a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	executed := 0
	for _, stmt := range splitStatements(seed) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			// A malformed statement skips that statement, not the seed.
			slog.Debug("Skipping rule seed statement", "error", err)
			continue
		}
		executed++
	}
	if executed == 0 {
		_ = db.Close()
		return nil, ErrEmptySeed
	}

	slog.Debug("Rule table loaded", "statements", executed)
	return &Store{db: db}, nil
}

// Close releases the in-memory database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close rule database: %w", err)
	}
	return nil
}

// LoadJurisdiction returns every rule whose regulation_id matches the
// jurisdiction, ordered by rule ID. An unknown jurisdiction yields an
// empty slice, not an error; the detectors treat a missing rule as a
// reason to skip, so an empty rule set produces a report with no cited
// violations rather than a failed audit.
func (s *Store) LoadJurisdiction(ctx context.Context, jurisdiction string) ([]model.Rule, error) {
	query := `
	SELECT rule_id, section_citation, rule_title, rule_text,
	       violation_penalty_min, violation_penalty_max
	FROM compliance_rules
	WHERE regulation_id = ?
	ORDER BY rule_id
	`

	rows, err := s.db.QueryContext(ctx, query, jurisdiction)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Read-only query, close error is not actionable

	var loaded []model.Rule
	for rows.Next() {
		var rule model.Rule
		var penaltyMin, penaltyMax sql.NullFloat64
		if err := rows.Scan(&rule.RuleID, &rule.SectionCitation, &rule.RuleTitle,
			&rule.RuleText, &penaltyMin, &penaltyMax); err != nil {
			// A malformed row skips that row, not the jurisdiction.
			slog.Debug("Skipping malformed rule row", "error", err)
			continue
		}
		rule.PenaltyMinUSD = penaltyMin.Float64
		rule.PenaltyMaxUSD = penaltyMax.Float64
		loaded = append(loaded, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rules: %w", err)
	}
	return loaded, nil
}

// Get returns the rule with the given ID, or nil when no such rule
// exists.
func (s *Store) Get(ctx context.Context, ruleID string) (*model.Rule, error) {
	query := `
	SELECT rule_id, section_citation, rule_title, rule_text,
	       violation_penalty_min, violation_penalty_max
	FROM compliance_rules
	WHERE rule_id = ?
	`

	var rule model.Rule
	var penaltyMin, penaltyMax sql.NullFloat64
	err := s.db.QueryRowContext(ctx, query, ruleID).Scan(
		&rule.RuleID, &rule.SectionCitation, &rule.RuleTitle,
		&rule.RuleText, &penaltyMin, &penaltyMax)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}
	rule.PenaltyMinUSD = penaltyMin.Float64
	rule.PenaltyMaxUSD = penaltyMax.Float64
	return &rule, nil
}

// Find returns the first rule whose ID contains any of the fragments,
// or nil when none matches. Detectors look rules up by citation
// fragment (e.g. "135b") so the seed can be swapped for one with
// different rule IDs as long as the citations survive.
func Find(loaded []model.Rule, fragments ...string) *model.Rule {
	for i := range loaded {
		for _, fragment := range fragments {
			if fragment == "" {
				continue
			}
			if strings.Contains(loaded[i].RuleID, fragment) {
				return &loaded[i]
			}
		}
	}
	return nil
}

// splitStatements strips -- comments, splits the seed on semicolons,
// and keeps only statements whose leading keyword is CREATE, INSERT,
// ALTER, or DROP. Anything else in a user-supplied seed (SELECTs,
// PRAGMAs, stray prose) is ignored rather than executed.
func splitStatements(seed string) []string {
	var stripped strings.Builder
	for _, line := range strings.Split(seed, "\n") {
		if i := strings.Index(line, "--"); i >= 0 {
			line = line[:i]
		}
		stripped.WriteString(line)
		stripped.WriteString("\n")
	}

	var statements []string
	for _, stmt := range strings.Split(stripped.String(), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		keyword := strings.ToUpper(strings.Fields(stmt)[0])
		switch keyword {
		case "CREATE", "INSERT", "ALTER", "DROP":
			statements = append(statements, stmt)
		}
	}
	return statements
}
