// Package state persists the mutable runtime values of vuedl between runs.
//
// The state file holds the cached bearer token and its expiry, the resolved
// customer id, and the watermark (end of the last fully ingested window):
//
//	token: eyJraWQiOi...
//	token_expiration: 2024-01-01T13:00:00Z
//	customer_id: 123456
//	last_run_end: 2024-01-01T12:54:59Z
//
// Every key is optional so a first run starts from an empty file. Saves are
// atomic (temp file, fsync, rename) so a crash mid-write leaves the previous
// state intact. Exactly one run may use a state file at a time.
package state
