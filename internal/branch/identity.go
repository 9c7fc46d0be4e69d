// Package branch implements branch identity (§3) and the live-branch
// identifier registry (§4.B): an indexed set of live branches kept in
// descending path specificity, supporting add/delete/rename and
// point-in-time lookup.
package branch

import "strings"

// Identity is the immutable value (creation_changeset, path) that uniquely
// identifies a branch. Equality is exact on CreationChangeset and
// case-insensitive on Path. Two identities with the same path but different
// creation changesets are distinct entities, and briefly coexist when an
// older branch is renamed away.
type Identity struct {
	CreationChangeset int
	Path              string
}

// Equal reports whether id and other refer to the same branch identity.
func (id Identity) Equal(other Identity) bool {
	return id.CreationChangeset == other.CreationChangeset && strings.EqualFold(id.Path, other.Path)
}

func (id Identity) String() string {
	return id.Path
}
