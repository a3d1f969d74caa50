// Package ingest runs one incremental fetch of Vue usage data.
//
// A run moves through fixed phases:
//
//	START -> WINDOW_PLANNED -> CREDENTIAL_READY -> DEVICES_RESOLVED
//	      -> FETCHING_DEVICE (per device channel and scale)
//	      -> WATERMARK_ADVANCED -> DONE
//
// and lands in ABORTED on any fatal error. The window is planned before any
// network call, so a run with less than the minimum window ends idle without
// contacting the cloud.
//
// Delivery is at-least-once. The watermark is written exactly once, after
// every device channel has been fetched, archived and written; a failed run
// leaves it untouched and the next run repeats the identical window. Sinks
// absorb the repeated points because their writes are idempotent.
//
// Checkpoints outside the watermark are written as soon as they are known:
// a renewed credential and a newly resolved customer id are persisted before
// the next request, so a later failure does not force a fresh login.
//
// Immutable run settings live in Config; the mutable runtime state
// (credential, customer id, watermark) is loaded once per run and threaded
// through explicitly.
package ingest
