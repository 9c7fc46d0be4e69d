package mapping_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techsola/tfvc-migrator/internal/mapping"
)

func TestGitPath_PlainRoot(t *testing.T) {
	m := mapping.New("$/P")
	got, ok := m.GitPath("$/P/Sub/file.txt")
	require.True(t, ok)
	assert.Equal(t, "Sub/file.txt", got)

	_, ok = m.GitPath("$/Other/file.txt")
	assert.False(t, ok)
}

func TestGitPath_SubdirRemap(t *testing.T) {
	m := mapping.New("$/B").WithSubdirMapping("$/B/Vendored", "$/B/Vendored/Upstream")
	// Hidden: under target_dir.
	_, ok := m.GitPath("$/B/Vendored/Upstream/file.txt")
	assert.False(t, ok)

	// Rewritten: under branch_dir but not target_dir.
	got, ok := m.GitPath("$/B/Vendored/local.txt")
	require.True(t, ok)
	assert.Equal(t, "Vendored/Upstream/local.txt", got)

	// Outside subdir entirely: falls through to the plain root strip.
	got, ok = m.GitPath("$/B/main.go")
	require.True(t, ok)
	assert.Equal(t, "main.go", got)
}

func TestRenameRoot(t *testing.T) {
	m := mapping.New("$/P")
	renamed, err := m.RenameRoot("$/P", "$/Q")
	require.NoError(t, err)
	assert.Equal(t, "$/Q", renamed.Root)

	withSubdir := m.WithSubdirMapping("$/P/A", "$/P/B")
	_, err = withSubdir.RenameRoot("$/P", "$/Q")
	assert.ErrorIs(t, err, mapping.ErrNotImplemented)
}
