// Package logging provides structured logging for vuedl.
//
// This package wraps Go's standard log/slog package so every component
// logs with the same handler, level and default fields.
//
// # Features
//
//   - Text output for cron mail and terminals (default)
//   - JSON output for log shippers
//   - Default fields (service, version) on all log entries
//   - Verbose mode (-v) forcing debug level
//   - Optional diagnostic file that always receives debug, rotated by size
//
// # Configuration
//
//	logging:
//	  level: "warn"      # debug, info, warn, error
//	  format: "text"     # text, json
//	  output: "stderr"   # stderr, stdout
//	  file: "/var/log/vuedl/vuedl.log"
//
// # Security
//
// Never log the cloud password. HTTP dumps reach the diagnostic file on
// every run, so the cloud client redacts secrets before logging them.
package logging
