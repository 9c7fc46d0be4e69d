package branch_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techsola/tfvc-migrator/internal/branch"
)

func TestRegistry_AddFindDuplicate(t *testing.T) {
	r := branch.NewRegistry()
	require.NoError(t, r.Add(branch.Identity{CreationChangeset: 1, Path: "$/P"}))

	err := r.Add(branch.Identity{CreationChangeset: 5, Path: "$/P"})
	assert.ErrorIs(t, err, branch.ErrDuplicate)

	require.NoError(t, r.NoFurtherChangesUpTo(10))
	id, err := r.Find(10, "$/P/file.txt")
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, "$/P", id.Path)
}

func TestRegistry_MostSpecificWins(t *testing.T) {
	r := branch.NewRegistry()
	require.NoError(t, r.Add(branch.Identity{CreationChangeset: 1, Path: "$/P"}))
	require.NoError(t, r.Add(branch.Identity{CreationChangeset: 2, Path: "$/P/Sub"}))
	require.NoError(t, r.NoFurtherChangesUpTo(10))

	id, err := r.Find(10, "$/P/Sub/file.txt")
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, "$/P/Sub", id.Path)

	id, err = r.Find(10, "$/P/Other.txt")
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, "$/P", id.Path)
}

func TestRegistry_DeleteKeepsHistoricalVisibility(t *testing.T) {
	r := branch.NewRegistry()
	require.NoError(t, r.Add(branch.Identity{CreationChangeset: 1, Path: "$/P"}))
	require.NoError(t, r.Add(branch.Identity{CreationChangeset: 2, Path: "$/P/B"}))
	require.NoError(t, r.NoFurtherChangesUpTo(4))

	_, err := r.Delete(5, "$/P/B")
	require.NoError(t, err)

	id, err := r.Find(4, "$/P/B/file.txt")
	require.NoError(t, err)
	require.NotNil(t, id, "deleted-at-5 branch still visible at changeset 4")

	require.NoError(t, r.NoFurtherChangesUpTo(5))
	id, err = r.Find(5, "$/P/B/file.txt")
	require.NoError(t, err)
	require.NotNil(t, id, "branch '$/P/B' deleted but '$/P' still covers the path")
	assert.Equal(t, "$/P", id.Path)
}

func TestRegistry_Rename(t *testing.T) {
	r := branch.NewRegistry()
	require.NoError(t, r.Add(branch.Identity{CreationChangeset: 1, Path: "$/P"}))
	require.NoError(t, r.NoFurtherChangesUpTo(1))

	old, err := r.Rename(2, "$/P", "$/Q")
	require.NoError(t, err)
	assert.Equal(t, "$/P", old.Path)

	require.NoError(t, r.NoFurtherChangesUpTo(5))

	id, err := r.Find(1, "$/P/file.txt")
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, "$/P", id.Path, "query before rename resolves the old identity")

	id, err = r.Find(5, "$/Q/file.txt")
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, "$/Q", id.Path)
}

func TestRegistry_OutOfOrder(t *testing.T) {
	r := branch.NewRegistry()
	require.NoError(t, r.Add(branch.Identity{CreationChangeset: 5, Path: "$/P"}))
	err := r.Add(branch.Identity{CreationChangeset: 3, Path: "$/Other"})
	assert.ErrorIs(t, err, branch.ErrOutOfOrder)
}

func TestRegistry_DeleteNotFound(t *testing.T) {
	r := branch.NewRegistry()
	_, err := r.Delete(1, "$/Missing")
	assert.ErrorIs(t, err, branch.ErrNotFound)
}

func TestRegistry_FindUnknownChangeset(t *testing.T) {
	r := branch.NewRegistry()
	require.NoError(t, r.Add(branch.Identity{CreationChangeset: 1, Path: "$/P"}))
	_, err := r.Find(100, "$/P/x")
	assert.ErrorIs(t, err, branch.ErrUnknownChangeset)
}
