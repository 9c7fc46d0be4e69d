package labels_test

import (
	"context"
	"io"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techsola/tfvc-migrator/internal/branch"
	"github.com/techsola/tfvc-migrator/internal/historysource"
	"github.com/techsola/tfvc-migrator/internal/labels"
	"github.com/techsola/tfvc-migrator/internal/objectstore"
	"github.com/techsola/tfvc-migrator/internal/planner"
)

type stubHistory struct {
	labels      []historysource.Label
	labelCommit map[string]int
}

func (s *stubHistory) ListChangesets(ctx context.Context, rootPath string, min, max int) ([]historysource.ChangesetMeta, error) {
	return nil, nil
}
func (s *stubHistory) ListChangesetChanges(ctx context.Context, changesetID int) ([]historysource.Change, error) {
	return nil, nil
}
func (s *stubHistory) ListItems(ctx context.Context, scopePaths []string, changeset int) ([]historysource.Item, error) {
	return nil, nil
}
func (s *stubHistory) FetchContent(ctx context.Context, path string, changeset int) (io.ReadCloser, error) {
	return nil, nil
}
func (s *stubHistory) ListLabels(ctx context.Context, rootPath string) ([]historysource.Label, error) {
	return s.labels, nil
}
func (s *stubHistory) LabelItems(ctx context.Context, label historysource.Label) (int, error) {
	return s.labelCommit[label.Name], nil
}

var _ historysource.Source = (*stubHistory)(nil)

type stubStore struct {
	tags map[string]plumbing.Hash
}

func (s *stubStore) BlobFromStream(r io.Reader) (plumbing.Hash, error) { return plumbing.ZeroHash, nil }
func (s *stubStore) TreeFromEntries(entries []objectstore.Entry) (plumbing.Hash, error) {
	return plumbing.ZeroHash, nil
}
func (s *stubStore) TreeHash(commit plumbing.Hash) (plumbing.Hash, error) { return plumbing.ZeroHash, nil }
func (s *stubStore) CommitFrom(author, committer objectstore.Signature, message string, tree plumbing.Hash, parents []plumbing.Hash) (plumbing.Hash, error) {
	return plumbing.ZeroHash, nil
}
func (s *stubStore) SetBranchRef(name string, commit plumbing.Hash) error { return nil }
func (s *stubStore) RemoveBranchRef(name string) error                   { return nil }
func (s *stubStore) SetHead(name string) error                           { return nil }
func (s *stubStore) CreateTag(name string, commit plumbing.Hash, tagger objectstore.Signature, message string) error {
	s.tags[name] = commit
	return nil
}

var _ objectstore.Store = (*stubStore)(nil)

func hash(b byte) plumbing.Hash {
	var h plumbing.Hash
	h[0] = b
	return h
}

func TestTag_SingleBranchAtChangeset(t *testing.T) {
	history := &stubHistory{
		labels:      []historysource.Label{{Name: "v1.0", OwnerPath: "$/Proj", LabelItemsID: "l1"}},
		labelCommit: map[string]int{"v1.0": 5},
	}
	store := &stubStore{tags: make(map[string]plumbing.Hash)}
	trunkID := branch.Identity{CreationChangeset: 1, Path: "$/Proj/Trunk"}
	idx := map[planner.CommitIndexKey]planner.CommitIndexEntry{
		{Changeset: 5, Branch: trunkID}: {Commit: hash(1), Branch: trunkID, Created: true},
	}

	err := labels.Tag(context.Background(), history, store, idx, "$/Proj", objectstore.Signature{Name: "tagger"})
	require.NoError(t, err)
	assert.Equal(t, hash(1), store.tags["v1.0"])
}

func TestTag_MultipleBranchesDisambiguated(t *testing.T) {
	history := &stubHistory{
		labels:      []historysource.Label{{Name: "v1.0"}},
		labelCommit: map[string]int{"v1.0": 5},
	}
	store := &stubStore{tags: make(map[string]plumbing.Hash)}
	trunkID := branch.Identity{CreationChangeset: 1, Path: "$/Proj/Trunk"}
	devID := branch.Identity{CreationChangeset: 2, Path: "$/Proj/Dev"}
	idx := map[planner.CommitIndexKey]planner.CommitIndexEntry{
		{Changeset: 5, Branch: trunkID}: {Commit: hash(1), Branch: trunkID, Created: true},
		{Changeset: 5, Branch: devID}:   {Commit: hash(2), Branch: devID, Created: true},
	}

	err := labels.Tag(context.Background(), history, store, idx, "$/Proj", objectstore.Signature{Name: "tagger"})
	require.NoError(t, err)
	assert.Equal(t, hash(1), store.tags["v1.0-Trunk"])
	assert.Equal(t, hash(2), store.tags["v1.0-Dev"])
}

func TestTag_NoCommitAtChangesetIsSkipped(t *testing.T) {
	history := &stubHistory{
		labels:      []historysource.Label{{Name: "v1.0"}},
		labelCommit: map[string]int{"v1.0": 9},
	}
	store := &stubStore{tags: make(map[string]plumbing.Hash)}
	idx := map[planner.CommitIndexKey]planner.CommitIndexEntry{}

	err := labels.Tag(context.Background(), history, store, idx, "$/Proj", objectstore.Signature{Name: "tagger"})
	require.NoError(t, err)
	assert.Empty(t, store.tags)
}
