package migrate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/techsola/tfvc-migrator/internal/branch"
	"github.com/techsola/tfvc-migrator/internal/mapping"
	"github.com/techsola/tfvc-migrator/internal/migstate"
)

// TestScopePaths_IncludesEveryBranchNotJustTrunk guards against scoping
// list_items to trunk's current path alone: after a root-path move relocates
// trunk elsewhere, a branch left at its original location must still be
// listed, or it silently stops receiving content (§6 list_items scope_paths
// is plural and pre-unioned; §4.A non_overlapping_union).
func TestScopePaths_IncludesEveryBranchNotJustTrunk(t *testing.T) {
	trunk := branch.Identity{CreationChangeset: 5, Path: "$/Q"}
	dev := branch.Identity{CreationChangeset: 2, Path: "$/P/Dev"}

	state := migstate.MappingState{
		Trunk: trunk,
		BranchMappingsInDepOrder: []migstate.BranchMappingEntry{
			{Branch: dev, Mapping: mapping.New(dev.Path)},
			{Branch: trunk, Mapping: mapping.New(trunk.Path)},
		},
	}

	got := scopePaths(state)
	assert.ElementsMatch(t, []string{"$/P/Dev", "$/Q"}, got)
}

func TestScopePaths_UnionsOverlappingRoots(t *testing.T) {
	trunk := branch.Identity{CreationChangeset: 1, Path: "$/P"}
	dev := branch.Identity{CreationChangeset: 2, Path: "$/P/Dev"}

	state := migstate.MappingState{
		Trunk: trunk,
		BranchMappingsInDepOrder: []migstate.BranchMappingEntry{
			{Branch: trunk, Mapping: mapping.New(trunk.Path)},
			{Branch: dev, Mapping: mapping.New(dev.Path)},
		},
	}

	got := scopePaths(state)
	assert.Equal(t, []string{"$/P"}, got, "a branch nested under another's root must not produce a redundant overlapping scope path")
}
