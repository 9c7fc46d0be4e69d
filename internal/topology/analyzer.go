// Package topology implements the topology analyzer (§4.D): from a
// changeset's path changes, it emits the ordered stream of discrete
// topological operations (branch-create, merge, rename, delete,
// root-path-change) that the mapping-state iterator and commit planner fold
// into a branch-and-merge graph.
package topology

import (
	"sort"

	"github.com/techsola/tfvc-migrator/internal/branch"
	"github.com/techsola/tfvc-migrator/internal/migerr"
	tpath "github.com/techsola/tfvc-migrator/internal/path"
)

// Analyzer holds the registry, trunk identity, live-branch path set, and
// pending root-path changes that persist across AnalyzeChangeset calls.
type Analyzer struct {
	registry           *branch.Registry
	trunk              branch.Identity
	currentBranchPaths *tpath.Set
	currentRoot        string
	pendingRootChanges []RootPathChange
}

// NewAnalyzer seeds the analyzer with a trunk branch at rootPath, created
// at firstChangeset, and the (already changeset-ascending-sorted) list of
// configured root-path changes.
func NewAnalyzer(rootPath string, firstChangeset int, rootChanges []RootPathChange) (*Analyzer, error) {
	reg := branch.NewRegistry()
	trunk := branch.Identity{CreationChangeset: firstChangeset, Path: rootPath}
	if err := reg.Add(trunk); err != nil {
		return nil, migerr.Wrap(migerr.Invariant, err)
	}
	if err := reg.NoFurtherChangesUpTo(firstChangeset); err != nil {
		return nil, migerr.Wrap(migerr.Invariant, err)
	}

	sorted := make([]RootPathChange, len(rootChanges))
	copy(sorted, rootChanges)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Changeset < sorted[j].Changeset })

	paths := tpath.NewSet()
	paths.Add(rootPath)

	return &Analyzer{
		registry:           reg,
		trunk:              trunk,
		currentBranchPaths: paths,
		currentRoot:        rootPath,
		pendingRootChanges: sorted,
	}, nil
}

// Trunk returns the current rolling trunk identity.
func (a *Analyzer) Trunk() branch.Identity { return a.trunk }

// Registry exposes the underlying registry for callers that need to resolve
// branches at a point in time outside of AnalyzeChangeset's own bookkeeping.
func (a *Analyzer) Registry() *branch.Registry { return a.registry }

// AnalyzeChangeset runs the five-step algorithm of §4.D against one
// changeset's path changes and returns the ordered operation stream.
func (a *Analyzer) AnalyzeChangeset(changeset int, changes []PathChange) ([]Operation, error) {
	var ops []Operation

	if err := a.applyRootPathRewrite(changeset, &ops); err != nil {
		return nil, err
	}

	if err := a.applyLiveBranchRenames(changeset, changes, &ops); err != nil {
		return nil, err
	}

	if err := a.registry.NoFurtherChangesUpTo(changeset - 1); err != nil {
		return nil, migerr.Wrap(migerr.Invariant, err)
	}

	if err := a.applyBranchesAndMerges(changeset, changes, &ops); err != nil {
		return nil, err
	}

	if err := a.applyDeletes(changeset, changes, &ops); err != nil {
		return nil, err
	}

	return ops, nil
}

func (a *Analyzer) applyRootPathRewrite(changeset int, ops *[]Operation) error {
	if len(a.pendingRootChanges) == 0 {
		return nil
	}
	top := a.pendingRootChanges[0]
	if top.Changeset < changeset {
		return migerr.New(migerr.NotImplemented, "root-path change targeted a changeset that has already passed without being applied")
	}
	if top.Changeset != changeset {
		return nil
	}
	a.pendingRootChanges = a.pendingRootChanges[1:]

	oldRoot := a.currentRoot
	a.currentBranchPaths.Remove(oldRoot)

	oldIdentity, err := a.registry.Rename(changeset, oldRoot, top.NewRootPath)
	if err != nil {
		return migerr.Wrap(migerr.Invariant, err)
	}
	newIdentity := branch.Identity{CreationChangeset: changeset, Path: top.NewRootPath}
	*ops = append(*ops, RenameOp{OldIdentity: oldIdentity, NewIdentity: newIdentity})

	a.currentRoot = top.NewRootPath
	a.currentBranchPaths.Add(top.NewRootPath)
	if a.trunk.Equal(oldIdentity) {
		a.trunk = newIdentity
	}
	return nil
}

func (a *Analyzer) applyLiveBranchRenames(changeset int, changes []PathChange, ops *[]Operation) error {
	for _, c := range changes {
		if !c.ChangeType.Has(Rename) || c.SourceServerItem == nil {
			continue
		}
		if !a.currentBranchPaths.Contains(*c.SourceServerItem) {
			continue
		}
		if c.ChangeType != Rename {
			return migerr.New(migerr.PoorlyUnderstoodCombination, "rename of a live branch path combined with other change flags")
		}

		oldIdentity, err := a.registry.Rename(changeset, *c.SourceServerItem, c.ItemPath)
		if err != nil {
			return migerr.Wrap(migerr.Invariant, err)
		}
		newIdentity := branch.Identity{CreationChangeset: changeset, Path: c.ItemPath}
		*ops = append(*ops, RenameOp{OldIdentity: oldIdentity, NewIdentity: newIdentity})

		a.currentBranchPaths.Remove(*c.SourceServerItem)
		a.currentBranchPaths.Add(c.ItemPath)
		if a.trunk.Equal(oldIdentity) {
			a.trunk = newIdentity
		}
	}
	return nil
}

func (a *Analyzer) applyBranchesAndMerges(changeset int, changes []PathChange, ops *[]Operation) error {
	type mergeKey struct {
		source     branch.Identity
		srcPath    string
		target     branch.Identity
		tgtPath    string
	}
	type branchKey struct {
		source  branch.Identity
		srcPath string
		tgtPath string
	}

	mergeBest := make(map[mergeKey]int)
	branchBest := make(map[branchKey]int)
	var mergeOrder []mergeKey
	var branchOrder []branchKey

	for _, c := range changes {
		var nonRename []MergeSource
		for _, ms := range c.MergeSources {
			if !ms.IsRename {
				nonRename = append(nonRename, ms)
			}
		}
		if len(nonRename) != 1 {
			continue
		}
		ms := nonRename[0]

		sourceBranch, err := a.registry.Find(ms.VersionTo-1, ms.ServerItem)
		if err != nil {
			return migerr.Wrap(migerr.Invariant, err)
		}
		if sourceBranch == nil {
			targetBranch, err := a.registry.Find(changeset-1, c.ItemPath)
			if err != nil {
				return migerr.Wrap(migerr.Invariant, err)
			}
			if targetBranch == nil {
				return migerr.New(migerr.Invariant, "merge source '"+ms.ServerItem+"' resolves to no known branch, and its target is not in a known branch either")
			}
			continue
		}

		srcPath, tgtPath := tpath.StripCommonTrailingSegments(ms.ServerItem, c.ItemPath)

		if c.ChangeType.Has(Merge) {
			targetBranch, err := a.registry.Find(changeset-1, c.ItemPath)
			if err != nil {
				return migerr.Wrap(migerr.Invariant, err)
			}
			if targetBranch == nil {
				return migerr.New(migerr.Invariant, "merge target '"+c.ItemPath+"' resolves to no known branch")
			}
			key := mergeKey{source: *sourceBranch, srcPath: srcPath, target: *targetBranch, tgtPath: tgtPath}
			if cur, ok := mergeBest[key]; !ok {
				mergeOrder = append(mergeOrder, key)
				mergeBest[key] = ms.VersionTo
			} else if ms.VersionTo > cur {
				mergeBest[key] = ms.VersionTo
			}
		} else {
			key := branchKey{source: *sourceBranch, srcPath: srcPath, tgtPath: tgtPath}
			if cur, ok := branchBest[key]; !ok {
				branchOrder = append(branchOrder, key)
				branchBest[key] = ms.VersionTo
			} else if ms.VersionTo > cur {
				branchBest[key] = ms.VersionTo
			}
		}
	}

	// Emit (and apply) branches first, so later merge dedup and any same-
	// changeset lookups see the freshly created identities.
	for _, key := range branchOrder {
		versionTo := branchBest[key]
		newBranch := branch.Identity{CreationChangeset: changeset, Path: key.tgtPath}
		if err := a.registry.Add(newBranch); err != nil {
			return migerr.Wrap(migerr.Invariant, err)
		}
		a.currentBranchPaths.Add(key.tgtPath)
		*ops = append(*ops, BranchOp{
			SourceBranch:          key.source,
			SourceBranchChangeset: versionTo,
			SourceBranchPath:      key.srcPath,
			NewBranch:             newBranch,
		})
	}

	// Dedupe merges within the same (source_branch, target_branch) pair:
	// an outer merge's sub-paths subsume an inner one's.
	type pairKey struct {
		source branch.Identity
		target branch.Identity
	}
	byPair := make(map[pairKey][]mergeKey)
	for _, key := range mergeOrder {
		pk := pairKey{source: key.source, target: key.target}
		byPair[pk] = append(byPair[pk], key)
	}
	suppressed := make(map[mergeKey]bool)
	for _, group := range byPair {
		for _, k := range group {
			for _, other := range group {
				if k == other {
					continue
				}
				if tpath.IsOrContains(other.srcPath, k.srcPath) && tpath.IsOrContains(other.tgtPath, k.tgtPath) && !(other.srcPath == k.srcPath && other.tgtPath == k.tgtPath) {
					suppressed[k] = true
				}
			}
		}
	}

	for _, key := range mergeOrder {
		if suppressed[key] {
			continue
		}
		versionTo := mergeBest[key]
		*ops = append(*ops, MergeOp{
			Changeset:             changeset,
			SourceBranch:          key.source,
			SourceBranchChangeset: versionTo,
			SourceBranchPath:      key.srcPath,
			TargetBranch:          key.target,
			TargetBranchPath:      key.tgtPath,
		})
	}

	return nil
}

func (a *Analyzer) applyDeletes(changeset int, changes []PathChange, ops *[]Operation) error {
	for _, c := range changes {
		if !c.ChangeType.Has(Delete) {
			continue
		}
		if !a.currentBranchPaths.Contains(c.ItemPath) {
			continue
		}
		if c.ChangeType != Delete {
			return migerr.New(migerr.PoorlyUnderstoodCombination, "delete of a live branch path combined with other change flags")
		}
		identity, err := a.registry.Delete(changeset, c.ItemPath)
		if err != nil {
			return migerr.Wrap(migerr.Invariant, err)
		}
		a.currentBranchPaths.Remove(c.ItemPath)
		*ops = append(*ops, DeleteOp{Changeset: changeset, Branch: identity})
	}
	return nil
}
