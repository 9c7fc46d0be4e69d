package historysource_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techsola/tfvc-migrator/internal/historysource"
	"github.com/techsola/tfvc-migrator/internal/migerr"
)

type stubSource struct {
	failTimes int
	calls     int
	result    []historysource.ChangesetMeta
	permanent error
}

func (s *stubSource) ListChangesets(ctx context.Context, rootPath string, min, max int) ([]historysource.ChangesetMeta, error) {
	s.calls++
	if s.permanent != nil {
		return nil, s.permanent
	}
	if s.calls <= s.failTimes {
		return nil, migerr.Wrap(migerr.TransientIO, errors.New("connection reset"))
	}
	return s.result, nil
}

func (s *stubSource) ListChangesetChanges(ctx context.Context, changesetID int) ([]historysource.Change, error) {
	return nil, nil
}
func (s *stubSource) ListItems(ctx context.Context, scopePaths []string, changeset int) ([]historysource.Item, error) {
	return nil, nil
}
func (s *stubSource) FetchContent(ctx context.Context, path string, changeset int) (io.ReadCloser, error) {
	return nil, nil
}
func (s *stubSource) ListLabels(ctx context.Context, rootPath string) ([]historysource.Label, error) {
	return nil, nil
}
func (s *stubSource) LabelItems(ctx context.Context, label historysource.Label) (int, error) {
	return 0, nil
}

func TestRetryingSource_RetriesTransientFailures(t *testing.T) {
	stub := &stubSource{failTimes: 2, result: []historysource.ChangesetMeta{{ChangesetID: 1}}}
	r := historysource.NewRetryingSource(stub)

	got, err := r.ListChangesets(context.Background(), "$/P", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, stub.result, got)
	assert.Equal(t, 3, stub.calls)
}

func TestRetryingSource_NonTransientFailsImmediately(t *testing.T) {
	stub := &stubSource{permanent: migerr.New(migerr.Configuration, "bad root path")}
	r := historysource.NewRetryingSource(stub)

	_, err := r.ListChangesets(context.Background(), "$/P", 0, 0)
	require.Error(t, err)
	assert.True(t, migerr.Is(err, migerr.Configuration))
	assert.Equal(t, 1, stub.calls)
}

func TestRetryingSource_ExhaustsRetriesAndSurfacesTransientFailure(t *testing.T) {
	stub := &stubSource{failTimes: historysource.DefaultHistorySourceRetryAttempts + 5}
	r := historysource.NewRetryingSource(stub)
	_ = time.Millisecond

	_, err := r.ListChangesets(context.Background(), "$/P", 0, 0)
	require.Error(t, err)
	assert.True(t, migerr.Is(err, migerr.TransientIO))
	assert.Equal(t, historysource.DefaultHistorySourceRetryAttempts, stub.calls)
}
