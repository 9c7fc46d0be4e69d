// Package mapping implements the per-branch projection (§3 "Branch
// mapping", §4.C) from TFVC item paths into Git repository paths for a
// single branch, including the subdirectory remap created when a branch's
// source path was a subdirectory of another branch's root.
package mapping

import (
	"errors"

	tpath "github.com/techsola/tfvc-migrator/internal/path"
)

// ErrNotImplemented is returned by RenameRoot when the mapping already
// carries a subdir remap: the interaction of rename with subdir remap has
// not been validated (spec §9 open question), so it is left unimplemented
// rather than guessed at.
var ErrNotImplemented = errors.New("mapping: rename of a subdir-remapped mapping is not implemented")

// Subdir describes the "branch was created into a subdirectory of the
// source's view" remap: items at-or-under TargetDir are hidden, items
// at-or-under BranchDir are rewritten to TargetDir before the root strip.
type Subdir struct {
	BranchDir string
	TargetDir string
}

// Mapping is the immutable per-branch view: a root directory, plus an
// optional subdirectory remap.
type Mapping struct {
	Root   string
	Subdir *Subdir
}

// New returns a mapping whose root is root, with no subdir remap.
func New(root string) Mapping {
	return Mapping{Root: root}
}

// RenameRoot returns a copy of m with its root rewritten via
// path.ReplaceContaining(m.Root, oldRoot, newRoot). It fails with
// ErrNotImplemented if m carries a Subdir remap.
func (m Mapping) RenameRoot(oldRoot, newRoot string) (Mapping, error) {
	if m.Subdir != nil {
		return Mapping{}, ErrNotImplemented
	}
	newRootPath, err := tpath.ReplaceContaining(m.Root, oldRoot, newRoot)
	if err != nil {
		return Mapping{}, err
	}
	return Mapping{Root: newRootPath}, nil
}

// WithSubdirMapping returns a copy of m carrying the given subdir remap.
func (m Mapping) WithSubdirMapping(branchDir, targetDir string) Mapping {
	return Mapping{Root: m.Root, Subdir: &Subdir{BranchDir: branchDir, TargetDir: targetDir}}
}

// GitPath projects itemPath (a TFVC path) into this branch's Git repository
// path. It returns ("", false) if itemPath is not visible in this branch's
// view at all (hidden behind a subdir remap's target, or simply outside the
// mapping's root).
func (m Mapping) GitPath(itemPath string) (string, bool) {
	if m.Subdir != nil {
		if tpath.IsOrContains(m.Subdir.TargetDir, itemPath) {
			return "", false
		}
		if tpath.IsOrContains(m.Subdir.BranchDir, itemPath) {
			rewritten, err := tpath.ReplaceContaining(itemPath, m.Subdir.BranchDir, m.Subdir.TargetDir)
			if err != nil {
				return "", false
			}
			itemPath = rewritten
		}
	}
	if !tpath.IsOrContains(m.Root, itemPath) {
		return "", false
	}
	rel, err := tpath.RemoveContaining(itemPath, m.Root)
	if err != nil {
		return "", false
	}
	return rel, true
}
