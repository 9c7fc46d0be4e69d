package historysource

import (
	"context"
	"io"
	"time"

	"github.com/techsola/tfvc-migrator/internal/migerr"
)

// Retry policy constants, named in the style of stefanom-schmux's
// internal/config timeout defaults.
const (
	DefaultHistorySourceRetryAttempts = 5
	DefaultHistorySourceRetryBaseMs   = 50
	DefaultHistorySourceRetryMaxMs    = 2000
)

// RetryingSource wraps a Source so that any call failing with a
// migerr.TransientIO-categorized error is retried with bounded exponential
// backoff before the failure is allowed to surface (§7: "retried by the I/O
// layer per its own policy, surfaced only after retries are exhausted").
type RetryingSource struct {
	inner    Source
	attempts int
	baseMs   int
	maxMs    int
	sleep    func(time.Duration)
}

// NewRetryingSource wraps inner with the default retry policy.
func NewRetryingSource(inner Source) *RetryingSource {
	return &RetryingSource{
		inner:    inner,
		attempts: DefaultHistorySourceRetryAttempts,
		baseMs:   DefaultHistorySourceRetryBaseMs,
		maxMs:    DefaultHistorySourceRetryMaxMs,
		sleep:    time.Sleep,
	}
}

func (r *RetryingSource) backoff(attempt int) time.Duration {
	ms := r.baseMs << attempt
	if ms > r.maxMs {
		ms = r.maxMs
	}
	return time.Duration(ms) * time.Millisecond
}

func withRetry[T any](ctx context.Context, r *RetryingSource, call func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 0; attempt < r.attempts; attempt++ {
		v, err := call()
		if err == nil {
			return v, nil
		}
		if !migerr.Is(err, migerr.TransientIO) {
			return zero, err
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}
		r.sleep(r.backoff(attempt))
	}
	return zero, lastErr
}

func (r *RetryingSource) ListChangesets(ctx context.Context, rootPath string, min, max int) ([]ChangesetMeta, error) {
	return withRetry(ctx, r, func() ([]ChangesetMeta, error) { return r.inner.ListChangesets(ctx, rootPath, min, max) })
}

func (r *RetryingSource) ListChangesetChanges(ctx context.Context, changesetID int) ([]Change, error) {
	return withRetry(ctx, r, func() ([]Change, error) { return r.inner.ListChangesetChanges(ctx, changesetID) })
}

func (r *RetryingSource) ListItems(ctx context.Context, scopePaths []string, changeset int) ([]Item, error) {
	return withRetry(ctx, r, func() ([]Item, error) { return r.inner.ListItems(ctx, scopePaths, changeset) })
}

func (r *RetryingSource) FetchContent(ctx context.Context, path string, changeset int) (io.ReadCloser, error) {
	return withRetry(ctx, r, func() (io.ReadCloser, error) { return r.inner.FetchContent(ctx, path, changeset) })
}

func (r *RetryingSource) ListLabels(ctx context.Context, rootPath string) ([]Label, error) {
	return withRetry(ctx, r, func() ([]Label, error) { return r.inner.ListLabels(ctx, rootPath) })
}

func (r *RetryingSource) LabelItems(ctx context.Context, label Label) (int, error) {
	return withRetry(ctx, r, func() (int, error) { return r.inner.LabelItems(ctx, label) })
}

var _ Source = (*RetryingSource)(nil)
