// Package migstate implements the mapping-state iterator (§4.E): folding
// each changeset's topological operations into the live set of branch
// mappings, and producing that set in an order respecting additional-parent
// dependencies so the commit planner can replay branches in the right
// sequence.
package migstate

import (
	"context"
	"strings"

	"github.com/techsola/tfvc-migrator/internal/branch"
	"github.com/techsola/tfvc-migrator/internal/concurrency"
	"github.com/techsola/tfvc-migrator/internal/mapping"
	"github.com/techsola/tfvc-migrator/internal/migerr"
	tpath "github.com/techsola/tfvc-migrator/internal/path"
	"github.com/techsola/tfvc-migrator/internal/topology"
	"github.com/techsola/tfvc-migrator/internal/toposort"
)

// ChangesetChanges is one changeset's worth of path deltas, as reported by
// the History Source.
type ChangesetChanges struct {
	Changeset int
	Changes   []topology.PathChange
}

// ChangesSource is the per-changeset path-delta stream the iterator
// consumes. Implementations typically wrap the History Source's
// list_changeset_changes call (§6), one call per changeset in ascending
// order.
type ChangesSource interface {
	Next(ctx context.Context) (ChangesetChanges, bool, error)
}

type entry struct {
	identity branch.Identity
	mapping  mapping.Mapping
}

// Iterator produces one MappingState per changeset, lazily, in ascending
// changeset order. It owns a topology.Analyzer and prefetches the next
// changeset's changes via an async lookahead over the underlying
// ChangesSource so that downstream I/O can overlap with the next download.
type Iterator struct {
	analyzer       *topology.Analyzer
	lookahead      *concurrency.Lookahead[ChangesetChanges]
	mappings       []entry
	firstChangeset int
	rootPath       string
	emittedFirst   bool
}

// NewIterator seeds the analyzer the same way topology.NewAnalyzer does, and
// begins prefetching changeset changes from src in the background.
func NewIterator(ctx context.Context, src ChangesSource, rootPath string, firstChangeset int, rootChanges []topology.RootPathChange) (*Iterator, error) {
	analyzer, err := topology.NewAnalyzer(rootPath, firstChangeset, rootChanges)
	if err != nil {
		return nil, err
	}
	return &Iterator{
		analyzer:       analyzer,
		lookahead:      concurrency.NewLookahead[ChangesetChanges](ctx, src),
		firstChangeset: firstChangeset,
		rootPath:       rootPath,
	}, nil
}

func (it *Iterator) findIndex(id branch.Identity) int {
	for i, e := range it.mappings {
		if e.identity.Equal(id) {
			return i
		}
	}
	return -1
}

type depKey struct {
	changeset int
	path      string
}

func keyOf(e entry) depKey {
	return depKey{changeset: e.identity.CreationChangeset, path: strings.ToLower(e.identity.Path)}
}

// Next produces the MappingState for the next changeset, or ok=false at the
// end of the changes stream.
func (it *Iterator) Next() (MappingState, bool, error) {
	if !it.emittedFirst {
		it.emittedFirst = true
		trunk := it.analyzer.Trunk()
		it.mappings = []entry{{identity: trunk, mapping: mapping.New(it.rootPath)}}
		return MappingState{
			Changeset:                it.firstChangeset,
			Trunk:                    trunk,
			BranchMappingsInDepOrder: it.snapshotMappings(),
		}, true, nil
	}

	cc, ok, err := it.lookahead.Next()
	if err != nil {
		return MappingState{}, false, err
	}
	if !ok {
		return MappingState{}, false, nil
	}

	ops, err := it.analyzer.AnalyzeChangeset(cc.Changeset, cc.Changes)
	if err != nil {
		return MappingState{}, false, err
	}

	var additionalParents []AdditionalParent

	for _, op := range ops {
		switch o := op.(type) {
		case topology.BranchOp:
			var derived mapping.Mapping
			if tpath.IsOrContains(o.SourceBranch.Path, o.SourceBranchPath) {
				// rename_root(source_branch_path -> new_branch.path) applied
				// to the branched subdirectory itself always collapses to a
				// plain root at new_branch.path (replace_containing of a
				// path against itself).
				derived = mapping.New(o.NewBranch.Path)
			} else {
				// Branch source lies outside the source branch's own root:
				// preserve the documented (open-question) behavior rather
				// than inventing different semantics.
				derived = mapping.New(o.NewBranch.Path).WithSubdirMapping(o.NewBranch.Path, o.SourceBranchPath)
			}
			it.mappings = append(it.mappings, entry{identity: o.NewBranch, mapping: derived})
			additionalParents = append(additionalParents, AdditionalParent{
				Branch: o.NewBranch, ParentChangeset: o.SourceBranchChangeset, ParentBranch: o.SourceBranch,
			})

		case topology.MergeOp:
			additionalParents = append(additionalParents, AdditionalParent{
				Branch: o.TargetBranch, ParentChangeset: o.SourceBranchChangeset, ParentBranch: o.SourceBranch,
			})

		case topology.DeleteOp:
			idx := it.findIndex(o.Branch)
			if idx == -1 {
				return MappingState{}, false, migerr.New(migerr.Invariant, "delete op for branch with no tracked mapping: "+o.Branch.Path)
			}
			it.mappings = append(it.mappings[:idx], it.mappings[idx+1:]...)

		case topology.RenameOp:
			idx := it.findIndex(o.OldIdentity)
			if idx == -1 {
				return MappingState{}, false, migerr.New(migerr.Invariant, "rename op for branch with no tracked mapping: "+o.OldIdentity.Path)
			}
			renamed, err := it.mappings[idx].mapping.RenameRoot(o.OldIdentity.Path, o.NewIdentity.Path)
			if err != nil {
				return MappingState{}, false, migerr.Wrap(migerr.Invariant, err)
			}
			it.mappings[idx] = entry{identity: o.NewIdentity, mapping: renamed}
		}
	}

	parentsOf := make(map[depKey][]depKey, len(additionalParents))
	for _, ap := range additionalParents {
		k := depKey{changeset: ap.Branch.CreationChangeset, path: strings.ToLower(ap.Branch.Path)}
		parentsOf[k] = append(parentsOf[k], depKey{changeset: ap.ParentChangeset, path: strings.ToLower(ap.ParentBranch.Path)})
	}

	ordered, sortErr := toposort.Sort(it.mappings, keyOf, func(e entry) []depKey {
		return parentsOf[keyOf(e)]
	})
	if sortErr != nil {
		return MappingState{}, false, migerr.Wrap(migerr.Invariant, sortErr)
	}
	it.mappings = ordered

	return MappingState{
		Changeset:                cc.Changeset,
		Ops:                      ops,
		AdditionalParents:        additionalParents,
		Trunk:                    it.analyzer.Trunk(),
		BranchMappingsInDepOrder: it.snapshotMappings(),
	}, true, nil
}

func (it *Iterator) snapshotMappings() []BranchMappingEntry {
	out := make([]BranchMappingEntry, len(it.mappings))
	for i, e := range it.mappings {
		out[i] = BranchMappingEntry{Branch: e.identity, Mapping: e.mapping}
	}
	return out
}
