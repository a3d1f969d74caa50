// Package retry runs an operation under a bounded, fixed-backoff policy.
//
// The same policy guards usage fetches and sink writes: up to Attempts tries,
// a fixed Backoff sleep between them, and the final failure escalated as
// ErrExhausted wrapping the last cause. Errors marked Permanent stop the loop
// at once. Sleeps honour the context so a shutdown signal aborts the wait.
package retry
