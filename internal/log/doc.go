// Package log provides secure logging functionality with automatic sanitization
// of sensitive information, built on top of the standard slog package.
//
// This package extends slog to provide:
//   - Automatic sanitization of sensitive values (API keys, tokens, cookies)
//   - Configurable log levels with verbose mode support
//   - Consistent log formatting across the application
//
// # Security Features
//
// The SecureHandler automatically sanitizes sensitive information in log output:
//   - HTTP headers (Authorization, Cookie, Set-Cookie, X-Api-Key)
//   - Oracle API keys and bearer tokens detected by pattern matching
//   - Passwords, session identifiers, and authentication tokens
//   - Personal data (email addresses, phone numbers) embedded in logged
//     tracker-request URLs
//
// Even in verbose mode, sensitive values are masked to prevent accidental
// exposure of secrets in logs that may be shared or stored. Audit logs are
// routinely attached to compliance tickets; a privacy auditor must not leak
// its own credentials, or the visitor PII it observed in tracker beacons,
// in the process.
//
// # Usage
//
//	// Create a secure logger
//	logger := log.NewSecureLogger(os.Stderr, true) // verbose=true
//
//	// Use as a standard slog.Logger
//	logger.Info("oracle request sent",
//	    "api_key", "sk-abc123",  // Will be masked
//	    "url", "https://example.com",
//	)
//
//	// Set as default logger
//	slog.SetDefault(logger)
package log
