// Package config provides configuration structures and utilities for gpcscan.
// It defines the main configuration options for auditing websites: crawl
// budgets, session timing, jurisdiction selection, oracle credentials, and
// report output preferences, plus per-site overrides loaded from YAML.
package config
