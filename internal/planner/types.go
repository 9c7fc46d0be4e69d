// Package planner implements the commit planner / replayer (§4.F): per
// changeset, it maps TFVC items to per-branch Git paths, materializes blob
// content (with CRLF renormalization and a content-addressed blob cache),
// and builds the tree and commit for every branch in dependency order.
package planner

import (
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/techsola/tfvc-migrator/internal/branch"
)

// CommitIndexKey identifies one (changeset, branch) cell of the commit
// index (§4.F step 4 / §9 "the per-changeset commit index is the sole
// lookup for parent commit handles").
type CommitIndexKey struct {
	Changeset int
	Branch    branch.Identity
}

// CommitIndexEntry records what a branch's commit looked like at a given
// changeset, whether or not a new commit was actually created.
type CommitIndexEntry struct {
	Commit  plumbing.Hash
	Branch  branch.Identity
	Created bool
}

// downloadSource is one item's fetchable content, keyed for blob-cache
// lookups by its content hash.
type downloadSource struct {
	Path             string
	ChangesetVersion int
	Size             int64
	Hash             string
}
