// Package config handles loading and validating vuedl configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// The static configuration is read once at startup and never written back.
// Mutable runtime values (token, customer id, watermark) live in the state
// file, see package state.
//
// Security Considerations:
//   - The cloud password and sink tokens should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("/etc/vuedl.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Archive.DataFolder)
package config
