package path_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techsola/tfvc-migrator/internal/path"
)

func TestContainsAndOverlaps(t *testing.T) {
	assert.True(t, path.Contains("$/A", "$/A/B"))
	assert.False(t, path.Contains("$/A", "$/A"))
	assert.True(t, path.IsOrContains("$/A", "$/A"))
	assert.True(t, path.Contains("$/X", "$/x/y"), "containment is case-insensitive")

	t.Run("overlaps matches containment either direction", func(t *testing.T) {
		assert.True(t, path.Overlaps("$/A", "$/A/B"))
		assert.True(t, path.Overlaps("$/A/B", "$/A"))
		assert.False(t, path.Overlaps("$/A", "$/B"))
	})
}

func TestLeaf(t *testing.T) {
	assert.Equal(t, "Sub", path.Leaf("$/A/Sub"))
	assert.Equal(t, "$", path.Leaf("$"))
}

func TestReplaceContaining(t *testing.T) {
	got, err := path.ReplaceContaining("$/A/Sub/file.txt", "$/A", "$/B")
	require.NoError(t, err)
	assert.Equal(t, "$/B/Sub/file.txt", got)

	_, err = path.ReplaceContaining("$/C/x", "$/A", "$/B")
	assert.ErrorIs(t, err, path.ErrNotContained)
}

func TestRemoveContaining(t *testing.T) {
	got, err := path.RemoveContaining("$/A/Sub/file.txt", "$/A")
	require.NoError(t, err)
	assert.Equal(t, "Sub/file.txt", got)

	got, err = path.RemoveContaining("$/A", "$/A")
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestStripCommonTrailingSegments(t *testing.T) {
	cases := []struct {
		name     string
		src, tgt string
		wantSrc  string
		wantTgt  string
	}{
		{"common leaf", "$/A/Sub", "$/B/Sub", "$/A", "$/B"},
		{"fully equal", "$/A/X", "$/A/X", "", ""},
		{"no common suffix", "$/A/Sub", "$/B/Other", "$/A/Sub", "$/B/Other"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gotSrc, gotTgt := path.StripCommonTrailingSegments(tc.src, tc.tgt)
			assert.Equal(t, tc.wantSrc, gotSrc)
			assert.Equal(t, tc.wantTgt, gotTgt)
		})
	}
}

func TestNonOverlappingUnion(t *testing.T) {
	got := path.NonOverlappingUnion([]string{"$/A", "$/A/B", "$/C"})
	assert.ElementsMatch(t, []string{"$/A", "$/C"}, got)

	got = path.NonOverlappingUnion([]string{"$/A/B", "$/A"})
	assert.ElementsMatch(t, []string{"$/A"}, got)
}

func TestSet(t *testing.T) {
	s := path.NewSet()
	s.Add("$/A/B")
	assert.True(t, s.Contains("$/a/b"))
	s.Remove("$/A/B")
	assert.False(t, s.Contains("$/A/B"))
}
