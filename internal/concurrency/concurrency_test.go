package concurrency_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techsola/tfvc-migrator/internal/concurrency"
)

func TestBoundedParallelMap_PreservesOrder(t *testing.T) {
	tasks := make([]concurrency.TaskFunc[int], 0, 20)
	for i := 0; i < 20; i++ {
		i := i
		tasks = append(tasks, func(ctx context.Context) (int, error) {
			// Reverse-ish sleep so completion order differs from input order.
			time.Sleep(time.Duration(20-i) * time.Millisecond)
			return i * i, nil
		})
	}
	out, err := concurrency.BoundedParallelMap(context.Background(), tasks, 4)
	require.NoError(t, err)
	for i, v := range out {
		assert.Equal(t, i*i, v)
	}
}

func TestBoundedParallelMap_FailurePropagates(t *testing.T) {
	boom := errors.New("boom")
	tasks := []concurrency.TaskFunc[int]{
		func(ctx context.Context) (int, error) { return 1, nil },
		func(ctx context.Context) (int, error) { return 0, boom },
	}
	_, err := concurrency.BoundedParallelMap(context.Background(), tasks, 2)
	assert.ErrorIs(t, err, boom)
}

type sliceSource struct {
	items []int
	i     int
}

func (s *sliceSource) Next(ctx context.Context) (int, bool, error) {
	if s.i >= len(s.items) {
		return 0, false, nil
	}
	v := s.items[s.i]
	s.i++
	return v, true, nil
}

func TestLookahead_BasicSequence(t *testing.T) {
	l := concurrency.NewLookahead[int](context.Background(), &sliceSource{items: []int{1, 2, 3}})

	_, ok := l.Current()
	assert.False(t, ok, "current is empty until the first successful Next")

	v, ok, err := l.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, v)

	cur, ok := l.Current()
	require.True(t, ok)
	assert.Equal(t, 1, cur)

	v, ok, err = l.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, v)

	v, ok, err = l.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, v)

	_, ok, err = l.Next()
	require.NoError(t, err)
	assert.False(t, ok, "end of sequence")

	_, ok = l.Current()
	assert.False(t, ok, "current cleared at end of sequence")
}

type faultingSource struct{ calls int }

func (s *faultingSource) Next(ctx context.Context) (int, bool, error) {
	s.calls++
	return 0, false, errors.New("source failure")
}

func TestLookahead_FaultThenEndOfSequence(t *testing.T) {
	l := concurrency.NewLookahead[int](context.Background(), &faultingSource{})

	_, _, err := l.Next()
	require.Error(t, err)

	_, ok, err := l.Next()
	require.NoError(t, err, "no spurious overlap error after a fault")
	assert.False(t, ok)
}

type blockingSource struct {
	release chan struct{}
}

func (s *blockingSource) Next(ctx context.Context) (int, bool, error) {
	<-s.release
	return 1, true, nil
}

func TestLookahead_OverlappedCall(t *testing.T) {
	src := &blockingSource{release: make(chan struct{})}
	l := concurrency.NewLookahead[int](context.Background(), src)

	done := make(chan struct{})
	go func() {
		l.Next()
		close(done)
	}()

	// Give the first Next a moment to enter in_call before we overlap it.
	time.Sleep(20 * time.Millisecond)
	_, _, err := l.Next()
	assert.ErrorIs(t, err, concurrency.ErrOverlappedCall)

	close(src.release)
	<-done
}
