// Package rules loads the jurisdiction rule table that violation
// detectors cite in their findings.
//
// # Architecture
//
// The rule table ships as an embedded SQL seed (seed.sql) and is
// executed into a fresh in-memory SQLite database when a Store opens,
// so rule lookups never touch the filesystem during an audit. A
// user-supplied seed file can replace the embedded one via OpenFile.
//
// Seeding is deliberately forgiving: comments are stripped, statements
// are split on semicolons, only CREATE, INSERT, ALTER, and DROP
// statements run, and a statement that fails is skipped rather than
// aborting the load. A custom seed with one bad row still yields a
// usable rule set.
//
// # Components
//
//   - Store: read access to the compliance_rules table.
//   - LoadJurisdiction: all rules for one regulation set, ordered by ID.
//   - Find: fragment lookup over a loaded rule slice, used by the
//     detectors to resolve citations like "135b" without hardcoding
//     full rule IDs.
//
// # Usage
//
//	store, err := rules.Open(ctx)
//	if err != nil {
//		return err
//	}
//	defer store.Close()
//
//	loaded, err := store.LoadJurisdiction(ctx, model.JurisdictionCalifornia)
//	if err != nil {
//		return err
//	}
//	rule := rules.Find(loaded, "135b", "1798.135b")
package rules
