package ingest

import (
	"context"
	"fmt"

	"github.com/nerrad567/vuedl/internal/archive"
	"github.com/nerrad567/vuedl/internal/usage"
)

// Replay loads raw files still pending in the data folder into the sinks and
// archives each one after it is written. It never touches the watermark or
// the credential.
//
// Files whose names do not parse are skipped and counted. A file that fails
// to load stops the replay unless ContinueOnError is set; the file stays
// pending either way.
func (r *Runner) Replay(ctx context.Context) (*ReplaySummary, error) {
	entries, skipped, err := r.archive.Pending()
	if err != nil {
		return nil, fmt.Errorf("listing pending files: %w", err)
	}

	sum := &ReplaySummary{Skipped: len(skipped)}
	for _, name := range skipped {
		r.logger.Warn("skipping unrecognised file", "file", name)
	}

	var firstErr error
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		n, dest, err := r.replayEntry(ctx, e)
		if err != nil {
			sum.Failed++
			r.logger.Error("replay failed", "file", e.Path, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			if !r.cfg.ContinueOnError {
				break
			}
			continue
		}

		sum.Files++
		sum.Points += n
		r.logger.Debug("replayed", "file", e.Path, "archived", dest, "points", n)
	}

	if firstErr != nil {
		return sum, fmt.Errorf("%w: %d file(s) failed, first: %w", ErrReplayFailed, sum.Failed, firstErr)
	}
	r.logger.Info("replay complete", "files", sum.Files, "points", sum.Points, "skipped", sum.Skipped)
	return sum, nil
}

func (r *Runner) replayEntry(ctx context.Context, e archive.Entry) (int, string, error) {
	body, err := r.archive.Read(e)
	if err != nil {
		return 0, "", err
	}
	raw, err := usage.DecodeRaw(body)
	if err != nil {
		return 0, "", fmt.Errorf("%s: %w", e.Path, err)
	}
	return r.load(ctx, e, raw)
}
