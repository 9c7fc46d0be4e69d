package concurrency

import (
	"context"
	"errors"
	"sync"
)

// ErrOverlappedCall is returned by Next when it is invoked again before a
// prior, still-outstanding Next call on the same Lookahead has completed.
var ErrOverlappedCall = errors.New("concurrency: overlapping call to Next")

// Source is the async sequence a Lookahead wraps.
type Source[T any] interface {
	// Next returns the next element, or ok=false at end of sequence.
	Next(ctx context.Context) (value T, ok bool, err error)
}

type fetchResult[T any] struct {
	value T
	ok    bool
	err   error
}

// Lookahead wraps a Source so that, at all times, the next element is
// already being fetched: a one-slot bounded channel with an eager
// producer. States (§9): pending (fetch in flight, nothing delivered yet),
// ready_some/ready_end (Next has a result waiting), faulted, and in_call
// (a Next invocation is currently consuming the pending fetch).
type Lookahead[T any] struct {
	ctx context.Context
	src Source[T]

	mu      sync.Mutex
	pending chan fetchResult[T]
	inCall  bool
	faulted bool
	ended   bool

	current    T
	hasCurrent bool
}

// NewLookahead constructs a Lookahead over src and immediately begins
// fetching the first element in the background.
func NewLookahead[T any](ctx context.Context, src Source[T]) *Lookahead[T] {
	l := &Lookahead[T]{ctx: ctx, src: src}
	l.pending = make(chan fetchResult[T], 1)
	go l.fetchInto(l.pending)
	return l
}

func (l *Lookahead[T]) fetchInto(ch chan fetchResult[T]) {
	v, ok, err := l.src.Next(l.ctx)
	ch <- fetchResult[T]{value: v, ok: ok, err: err}
}

// Next returns the pre-fetched outcome and immediately begins fetching the
// element after it. It fails with ErrOverlappedCall if a previous call to
// Next on this Lookahead has not yet returned.
func (l *Lookahead[T]) Next() (T, bool, error) {
	var zero T

	l.mu.Lock()
	if l.inCall {
		l.mu.Unlock()
		return zero, false, ErrOverlappedCall
	}
	if l.faulted || l.ended {
		l.hasCurrent = false
		l.mu.Unlock()
		return zero, false, nil
	}
	l.inCall = true
	pending := l.pending
	l.mu.Unlock()

	res := <-pending

	l.mu.Lock()
	l.inCall = false
	switch {
	case res.err != nil:
		l.faulted = true
		l.hasCurrent = false
		l.mu.Unlock()
		return zero, false, res.err
	case !res.ok:
		l.ended = true
		l.hasCurrent = false
		l.mu.Unlock()
		return zero, false, nil
	default:
		l.current = res.value
		l.hasCurrent = true
		l.pending = make(chan fetchResult[T], 1)
		go l.fetchInto(l.pending)
		l.mu.Unlock()
		return res.value, true, nil
	}
}

// Current returns the most recently yielded element. It is valid only
// after a successful Next call, and is cleared once Next returns
// end-of-sequence or a fault.
func (l *Lookahead[T]) Current() (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.hasCurrent {
		var zero T
		return zero, false
	}
	return l.current, true
}
