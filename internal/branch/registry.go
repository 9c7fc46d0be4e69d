package branch

import (
	"errors"
	"sort"
	"strings"

	tpath "github.com/techsola/tfvc-migrator/internal/path"
)

// ErrOutOfOrder is returned when an operation's changeset does not exceed
// the registry's max-known-changeset.
var ErrOutOfOrder = errors.New("branch: changeset out of order")

// ErrDuplicate is returned by Add when a live branch already exists at the
// given path.
var ErrDuplicate = errors.New("branch: duplicate live path")

// ErrNotFound is returned by Delete/Rename when no live branch exists at
// the given path.
var ErrNotFound = errors.New("branch: no live branch at path")

// ErrUnknownChangeset is returned by Find when asked about a changeset past
// the registry's max-known-changeset.
var ErrUnknownChangeset = errors.New("branch: changeset beyond known history")

type liveEntry struct {
	identity  Identity
	deletedAt *int // nil while live; set on Delete, and on the old side of a Rename
}

// Registry is the indexed, ordered collection of (identity, deleted_at)
// pairs described in §3. Entries are kept sorted by descending path length,
// which is sufficient to realize "descending path specificity": contains(a,
// b) requires len(b) > len(a)+1, so a descendant's path is always strictly
// longer than any of its ancestors'.
type Registry struct {
	entries           []liveEntry
	maxKnownChangeset int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// MaxKnownChangeset returns the highest changeset the registry has sealed
// or otherwise observed.
func (r *Registry) MaxKnownChangeset() int {
	return r.maxKnownChangeset
}

func (r *Registry) resort() {
	sort.SliceStable(r.entries, func(i, j int) bool {
		return len(r.entries[i].identity.Path) > len(r.entries[j].identity.Path)
	})
}

func (r *Registry) liveIndex(p string) int {
	for i, e := range r.entries {
		if e.deletedAt == nil && strings.EqualFold(e.identity.Path, p) {
			return i
		}
	}
	return -1
}

// Add inserts a newly created branch identity. It fails with ErrDuplicate
// if a live branch already occupies new.Path, and with ErrOutOfOrder if
// new.CreationChangeset does not exceed MaxKnownChangeset.
func (r *Registry) Add(new Identity) error {
	if r.liveIndex(new.Path) != -1 {
		return ErrDuplicate
	}
	if new.CreationChangeset <= r.maxKnownChangeset {
		return ErrOutOfOrder
	}
	r.entries = append(r.entries, liveEntry{identity: new})
	r.resort()
	r.maxKnownChangeset = new.CreationChangeset - 1
	return nil
}

// Delete marks the live branch at path as deleted at the given changeset,
// returning its identity. The entry is retained (not removed) so that
// queries at earlier changesets still resolve it.
func (r *Registry) Delete(at int, path string) (Identity, error) {
	idx := r.liveIndex(path)
	if idx == -1 {
		return Identity{}, ErrNotFound
	}
	if at <= r.maxKnownChangeset {
		return Identity{}, ErrOutOfOrder
	}
	id := r.entries[idx].identity
	changeset := at
	r.entries[idx].deletedAt = &changeset
	r.maxKnownChangeset = at - 1
	return id, nil
}

// Rename retires the live branch at oldPath (as Delete would) and inserts a
// new identity (at, newPath) in specificity order, returning the retired
// identity.
func (r *Registry) Rename(at int, oldPath, newPath string) (Identity, error) {
	idx := r.liveIndex(oldPath)
	if idx == -1 {
		return Identity{}, ErrNotFound
	}
	if at <= r.maxKnownChangeset {
		return Identity{}, ErrOutOfOrder
	}
	old := r.entries[idx].identity
	changeset := at
	r.entries[idx].deletedAt = &changeset
	r.entries = append(r.entries, liveEntry{identity: Identity{CreationChangeset: at, Path: newPath}})
	r.resort()
	r.maxKnownChangeset = at - 1
	return old, nil
}

// Find returns the most specific live branch containing itemPath at
// changeset at, or nil if none does. It fails with ErrUnknownChangeset if
// at exceeds MaxKnownChangeset.
func (r *Registry) Find(at int, itemPath string) (*Identity, error) {
	if at > r.maxKnownChangeset {
		return nil, ErrUnknownChangeset
	}
	for _, e := range r.entries {
		if e.deletedAt != nil && *e.deletedAt <= at {
			continue
		}
		if tpath.IsOrContains(e.identity.Path, itemPath) {
			id := e.identity
			return &id, nil
		}
	}
	return nil, nil
}

// NoFurtherChangesUpTo seals the registry at changeset n: later calls to
// Find may query any changeset up to and including n. It fails with
// ErrOutOfOrder if n is less than the current MaxKnownChangeset.
func (r *Registry) NoFurtherChangesUpTo(n int) error {
	if n < r.maxKnownChangeset {
		return ErrOutOfOrder
	}
	r.maxKnownChangeset = n
	return nil
}
