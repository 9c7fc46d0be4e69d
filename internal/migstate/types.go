package migstate

import (
	"github.com/techsola/tfvc-migrator/internal/branch"
	"github.com/techsola/tfvc-migrator/internal/mapping"
	"github.com/techsola/tfvc-migrator/internal/topology"
)

// AdditionalParent records that, at the owning MappingState's changeset,
// Branch gained an extra commit parent from ParentBranch as of
// ParentChangeset (§3 "Mapping state").
type AdditionalParent struct {
	Branch          branch.Identity
	ParentChangeset int
	ParentBranch    branch.Identity
}

// BranchMappingEntry pairs a live branch identity with its current mapping.
type BranchMappingEntry struct {
	Branch  branch.Identity
	Mapping mapping.Mapping
}

// MappingState is the per-changeset snapshot described in §3: the
// topological operations observed this changeset, the additional-parent
// edges they introduced, the rolling trunk identity, and the full set of
// live branch mappings in an order where every branch follows everything it
// depends on.
type MappingState struct {
	Changeset                int
	Ops                      []topology.Operation
	AdditionalParents        []AdditionalParent
	Trunk                    branch.Identity
	BranchMappingsInDepOrder []BranchMappingEntry
}
