// Package progress reports migration throughput to stderr in the teacher's
// plain stdlib log style: no TUI or progress-bar dependency, since none of
// the retrieved corpus uses one for a linear batch job like this.
package progress

import (
	"log"
	"time"
)

// Reporter tracks changesets processed against a known total and logs a
// line at most once per interval.
type Reporter struct {
	logger    *log.Logger
	total     int
	started   time.Time
	lastEmit  time.Time
	interval  time.Duration
	processed int
}

// New returns a Reporter that logs via logger, against an expected total
// changeset count (0 if unknown), emitting at most once per interval.
func New(logger *log.Logger, total int, interval time.Duration) *Reporter {
	now := time.Now()
	return &Reporter{logger: logger, total: total, started: now, interval: interval}
}

// Advance records that changeset has just finished processing, and emits a
// progress line on the first call and whenever at least one interval has
// elapsed since the last line.
func (r *Reporter) Advance(changeset int) {
	r.processed++
	now := time.Now()
	if now.Sub(r.lastEmit) < r.interval {
		return
	}
	r.lastEmit = now
	r.emit(changeset, now)
}

func (r *Reporter) emit(changeset int, now time.Time) {
	elapsed := now.Sub(r.started)
	rate := float64(r.processed) / elapsed.Seconds()

	if r.total > 0 {
		remaining := r.total - r.processed
		var eta time.Duration
		if rate > 0 {
			eta = time.Duration(float64(remaining)/rate) * time.Second
		}
		r.logger.Printf("changeset %d: %d/%d (%.1f/s, eta %s)", changeset, r.processed, r.total, rate, eta.Round(time.Second))
		return
	}
	r.logger.Printf("changeset %d: %d processed (%.1f/s)", changeset, r.processed, rate)
}

// Done logs a final summary line.
func (r *Reporter) Done() {
	elapsed := time.Since(r.started)
	r.logger.Printf("done: %d changesets in %s", r.processed, elapsed.Round(time.Second))
}
