package topology

import "github.com/techsola/tfvc-migrator/internal/branch"

// ChangeFlags is the bitset drawn from the TFVC change-type vocabulary
// (§4.D). A single PathChange may carry several of these at once.
type ChangeFlags uint16

const (
	Add ChangeFlags = 1 << iota
	Edit
	Encoding
	Rename
	Delete
	Undelete
	Branch
	Merge
	Lock
	Rollback
	SourceRename
	TargetRename
	Property
)

// Has reports whether f contains every bit set in other.
func (f ChangeFlags) Has(other ChangeFlags) bool { return f&other == other }

// MergeSource is one entry of a change's merge_sources list: an incoming
// contribution from another branch path at a specified version.
type MergeSource struct {
	ServerItem string
	VersionTo  int
	IsRename   bool
}

// PathChange is one per-changeset path delta, as the History Source reports it.
type PathChange struct {
	ItemPath         string
	SourceServerItem *string
	ChangesetVersion int
	ChangeType       ChangeFlags
	MergeSources     []MergeSource
}

// RootPathChange is an input-config entry requesting that, at Changeset,
// the migration root move to NewRootPath.
type RootPathChange struct {
	Changeset   int
	NewRootPath string
}

// Kind discriminates the topological-operation union.
type Kind int

const (
	KindBranch Kind = iota
	KindMerge
	KindRename
	KindDelete
)

// Operation is the tagged union of topological events the analyzer emits.
type Operation interface {
	Kind() Kind
}

// BranchOp records that new_branch was created, copying from
// source_branch_path (at-or-under source_branch.Path) as of
// source_branch_changeset.
type BranchOp struct {
	SourceBranch          branch.Identity
	SourceBranchChangeset int
	SourceBranchPath      string
	NewBranch             branch.Identity
}

func (BranchOp) Kind() Kind { return KindBranch }

// MergeOp records an incoming merge from source_branch_path (under
// source_branch, as of source_branch_changeset) into target_branch_path
// (under target_branch) at Changeset.
type MergeOp struct {
	Changeset             int
	SourceBranch          branch.Identity
	SourceBranchChangeset int
	SourceBranchPath      string
	TargetBranch          branch.Identity
	TargetBranchPath      string
}

func (MergeOp) Kind() Kind { return KindMerge }

// RenameOp records that a live branch's identity changed from OldIdentity
// to NewIdentity.
type RenameOp struct {
	OldIdentity branch.Identity
	NewIdentity branch.Identity
}

func (RenameOp) Kind() Kind { return KindRename }

// DeleteOp records that Branch was deleted at Changeset.
type DeleteOp struct {
	Changeset int
	Branch    branch.Identity
}

func (DeleteOp) Kind() Kind { return KindDelete }
