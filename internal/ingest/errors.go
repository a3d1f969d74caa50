package ingest

import "errors"

// Domain-specific errors for run orchestration.
var (
	// ErrDeviceFailed means at least one device channel exhausted its fetch
	// or write attempts. The watermark was not advanced.
	ErrDeviceFailed = errors.New("ingest: device ingestion failed")

	// ErrReplayFailed means at least one pending raw file could not be loaded.
	ErrReplayFailed = errors.New("ingest: replay failed")
)
