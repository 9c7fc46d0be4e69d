package planner

import (
	"context"
	"sync"
	"time"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/techsola/tfvc-migrator/internal/authors"
	"github.com/techsola/tfvc-migrator/internal/branch"
	"github.com/techsola/tfvc-migrator/internal/historysource"
	"github.com/techsola/tfvc-migrator/internal/mapping"
	"github.com/techsola/tfvc-migrator/internal/migerr"
	"github.com/techsola/tfvc-migrator/internal/migstate"
	"github.com/techsola/tfvc-migrator/internal/objectstore"
	tpath "github.com/techsola/tfvc-migrator/internal/path"
	"github.com/techsola/tfvc-migrator/internal/topology"
)

// Planner replays one changeset's mapping state into commits, one per live
// branch that needs them, against an objectstore.Store.
type Planner struct {
	store        objectstore.Store
	history      historysource.Source
	authorsMap   authors.Map
	trunkRefName string
	parallelism  int

	mu         sync.Mutex
	blobCache  map[string]plumbing.Hash
	heads      map[branch.Identity]plumbing.Hash
	commitIdx  map[CommitIndexKey]CommitIndexEntry
}

// New constructs a Planner. parallelism is the blob-fetch fan-out degree
// (§4.G).
func New(store objectstore.Store, history historysource.Source, authorsMap authors.Map, trunkRefName string, parallelism int) *Planner {
	return &Planner{
		store:        store,
		history:      history,
		authorsMap:   authorsMap,
		trunkRefName: trunkRefName,
		parallelism:  parallelism,
		blobCache:    make(map[string]plumbing.Hash),
		heads:        make(map[branch.Identity]plumbing.Hash),
		commitIdx:    make(map[CommitIndexKey]CommitIndexEntry),
	}
}

// CommitIndex exposes the accumulated commit index, mainly for tests and
// diagnostics.
func (p *Planner) CommitIndex() map[CommitIndexKey]CommitIndexEntry {
	return p.commitIdx
}

// PlanChangeset runs §4.F's five-step algorithm for one changeset.
func (p *Planner) PlanChangeset(ctx context.Context, state migstate.MappingState, items []historysource.Item, meta historysource.ChangesetMeta) error {
	p.applyRefMovingOps(state.Ops)

	perBranchEntries, err := p.mapItemsToBranches(state, items)
	if err != nil {
		return migerr.WithContext(err, state.Changeset, "map items to branches")
	}

	var allSources []downloadSource
	for _, entries := range perBranchEntries {
		for _, e := range entries {
			allSources = append(allSources, e.source)
		}
	}
	if err := p.materializeBlobs(ctx, allSources); err != nil {
		return migerr.WithContext(err, state.Changeset, "materialize blob content")
	}
	for branchID, entries := range perBranchEntries {
		for i := range entries {
			hash, err := p.resolveBlob(entries[i].source)
			if err != nil {
				return migerr.WithContext(err, state.Changeset, "resolve blob")
			}
			entries[i].blob = hash
		}
		perBranchEntries[branchID] = entries
	}

	author, err := p.authorsMap.Resolve(meta.Author)
	if err != nil {
		return migerr.WithContext(err, state.Changeset, "resolve author")
	}
	committer, err := p.authorsMap.Resolve(meta.CheckedInBy)
	if err != nil {
		return migerr.WithContext(err, state.Changeset, "resolve committer")
	}

	branchOpsThisChangeset := make(map[branch.Identity]bool)
	for _, op := range state.Ops {
		switch o := op.(type) {
		case topology.BranchOp:
			branchOpsThisChangeset[o.NewBranch] = true
		case topology.MergeOp:
			branchOpsThisChangeset[o.TargetBranch] = true
		case topology.RenameOp:
			branchOpsThisChangeset[o.NewIdentity] = true
		}
	}

	for _, bm := range state.BranchMappingsInDepOrder {
		entries := perBranchEntries[bm.Branch]
		treeEntries := make([]objectstore.Entry, 0, len(entries))
		for _, e := range entries {
			treeEntries = append(treeEntries, objectstore.Entry{Path: e.gitPath, Hash: e.blob})
		}
		tree, err := p.store.TreeFromEntries(treeEntries)
		if err != nil {
			return migerr.WithContext(migerr.Wrap(migerr.TransientIO, err), state.Changeset, "build tree")
		}

		var parents []plumbing.Hash
		currentHead, hasHead := p.heads[bm.Branch]
		if hasHead {
			parents = append(parents, currentHead)
		}
		for _, ap := range state.AdditionalParents {
			if !ap.Branch.Equal(bm.Branch) {
				continue
			}
			key := CommitIndexKey{Changeset: ap.ParentChangeset, Branch: ap.ParentBranch}
			entry, ok := p.commitIdx[key]
			if !ok {
				return migerr.New(migerr.Invariant, "commit index missing parent "+ap.ParentBranch.Path+" at changeset")
			}
			parents = append(parents, entry.Commit)
		}

		required := branchOpsThisChangeset[bm.Branch]
		if !required && hasHead {
			headTree, err := p.store.TreeHash(currentHead)
			if err != nil {
				return migerr.WithContext(migerr.Wrap(migerr.TransientIO, err), state.Changeset, "resolve head tree")
			}
			required = headTree != tree
		}
		if !required && !hasHead {
			required = true
		}

		if !required {
			p.commitIdx[CommitIndexKey{Changeset: state.Changeset, Branch: bm.Branch}] = CommitIndexEntry{
				Commit: currentHead, Branch: bm.Branch, Created: false,
			}
			continue
		}

		commitMsg := meta.Comment
		commit, err := p.store.CommitFrom(commitAsOf(author, meta.CreatedDate), commitAsOf(committer, meta.CreatedDate), commitMsg, tree, parents)
		if err != nil {
			return migerr.WithContext(migerr.Wrap(migerr.TransientIO, err), state.Changeset, "create commit")
		}

		refName := BranchRefName(tpath.Leaf(bm.Branch.Path), bm.Branch.Equal(state.Trunk), p.trunkRefName)
		// Absence is expected for a brand new branch; go-git's ref store
		// treats removing a missing ref as a no-op, so any error here is a
		// real I/O failure and propagates.
		if err := p.store.RemoveBranchRef(refName); err != nil {
			return migerr.WithContext(migerr.Wrap(migerr.TransientIO, err), state.Changeset, "remove branch ref")
		}
		if err := p.store.SetBranchRef(refName, commit); err != nil {
			return migerr.WithContext(migerr.Wrap(migerr.TransientIO, err), state.Changeset, "set branch ref")
		}
		if err := p.store.SetHead(refName); err != nil {
			return migerr.WithContext(migerr.Wrap(migerr.TransientIO, err), state.Changeset, "set HEAD")
		}

		p.heads[bm.Branch] = commit
		p.commitIdx[CommitIndexKey{Changeset: state.Changeset, Branch: bm.Branch}] = CommitIndexEntry{
			Commit: commit, Branch: bm.Branch, Created: true,
		}
	}

	return nil
}

func commitAsOf(sig objectstore.Signature, when time.Time) objectstore.Signature {
	sig.When = when
	return sig
}

func (p *Planner) applyRefMovingOps(ops []topology.Operation) {
	for _, op := range ops {
		switch o := op.(type) {
		case topology.DeleteOp:
			refName := BranchRefName(tpath.Leaf(o.Branch.Path), false, p.trunkRefName)
			_ = p.store.RemoveBranchRef(refName)
			delete(p.heads, o.Branch)
		case topology.RenameOp:
			if head, ok := p.heads[o.OldIdentity]; ok {
				delete(p.heads, o.OldIdentity)
				p.heads[o.NewIdentity] = head
			}
		}
	}
}

type mappedEntry struct {
	gitPath string
	blob    plumbing.Hash
	source  downloadSource
}

// mapItemsToBranches implements §4.F step 2.
func (p *Planner) mapItemsToBranches(state migstate.MappingState, items []historysource.Item) (map[branch.Identity][]mappedEntry, error) {
	roots := make([]struct {
		identity branch.Identity
		mapping  mapping.Mapping
	}, len(state.BranchMappingsInDepOrder))
	for i, bm := range state.BranchMappingsInDepOrder {
		roots[i].identity = bm.Branch
		roots[i].mapping = bm.Mapping
	}

	out := make(map[branch.Identity][]mappedEntry, len(roots))
	for _, r := range roots {
		seenGitPaths := make(map[string]bool)
		var entries []mappedEntry

		for _, item := range items {
			if item.IsFolder || item.IsBranch {
				continue
			}
			if item.IsSymbolicLink {
				return nil, migerr.New(migerr.NotImplemented, "symbolic link item: "+item.Path)
			}

			belongsToOtherBranch := false
			for _, other := range roots {
				if other.identity.Equal(r.identity) {
					continue
				}
				if tpath.IsOrContains(r.mapping.Root, other.identity.Path) && tpath.IsOrContains(other.identity.Path, item.Path) {
					belongsToOtherBranch = true
					break
				}
			}
			if belongsToOtherBranch {
				continue
			}

			gitPath, ok := r.mapping.GitPath(item.Path)
			if !ok {
				continue
			}
			if seenGitPaths[gitPath] {
				return nil, migerr.New(migerr.Invariant, "two items in branch "+r.identity.Path+" map to the same git path: "+gitPath)
			}
			seenGitPaths[gitPath] = true

			entries = append(entries, mappedEntry{
				gitPath: gitPath,
				source:  downloadSource{Path: item.Path, ChangesetVersion: item.ChangesetVersion, Size: item.Size, Hash: item.Hash},
			})
		}
		out[r.identity] = entries
	}
	return out, nil
}

// resolveBlob looks up the blob already created for src's content hash by a
// prior call to materializeBlobs, or returns the shared empty blob for
// zero-size sources. It must only be called after materializeBlobs has run
// for this changeset.
func (p *Planner) resolveBlob(src downloadSource) (plumbing.Hash, error) {
	if src.Size == 0 {
		return p.emptyBlobHash()
	}
	p.mu.Lock()
	h, ok := p.blobCache[src.Hash]
	p.mu.Unlock()
	if !ok {
		return plumbing.ZeroHash, migerr.New(migerr.Invariant, "blob not materialized for content hash "+src.Hash)
	}
	return h, nil
}
