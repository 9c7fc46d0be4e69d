// Package objectstore implements the Object Store external interface (§6):
// blob/tree/commit creation, branch ref and HEAD management, and annotated
// tags, backed by go-git's plumbing layer the same way the teacher's
// pkg/git/commands package drives it directly against a Storer rather than
// through Worktree.Commit.
package objectstore

import (
	"io"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Signature is an author/committer identity plus a timestamp.
type Signature struct {
	Name  string
	Email string
	When  time.Time
}

func (s Signature) toObject() object.Signature {
	return object.Signature{Name: s.Name, Email: s.Email, When: s.When}
}

// Entry is one flat (git_path -> blob) pair destined for a branch's tree.
// All entries are written non-executable regular files; the spec's item
// model carries no executable-bit concept.
type Entry struct {
	Path string
	Hash plumbing.Hash
}

// Store is the Object Store surface the commit planner drives. Identities of
// blobs and trees are content-addressed; commit identity depends on parents
// and metadata, exactly as git itself defines it.
type Store interface {
	// BlobFromStream writes r as a new blob and returns its hash.
	BlobFromStream(r io.Reader) (plumbing.Hash, error)

	// TreeFromEntries builds a (possibly multi-level) tree from a flat set
	// of git-path -> blob-hash entries and returns the root tree's hash.
	TreeFromEntries(entries []Entry) (plumbing.Hash, error)

	// TreeHash returns the tree hash of an existing commit, used by the
	// planner to decide whether a branch's content actually changed.
	TreeHash(commit plumbing.Hash) (plumbing.Hash, error)

	// CommitFrom creates a commit object and returns its hash.
	CommitFrom(author, committer Signature, message string, tree plumbing.Hash, parents []plumbing.Hash) (plumbing.Hash, error)

	// SetBranchRef creates or moves a branch ref to point at commit.
	SetBranchRef(name string, commit plumbing.Hash) error

	// RemoveBranchRef deletes a branch ref.
	RemoveBranchRef(name string) error

	// SetHead points the repository HEAD symbolic ref at the named branch.
	SetHead(name string) error

	// CreateTag creates an annotated tag pointing at commit.
	CreateTag(name string, commit plumbing.Hash, tagger Signature, message string) error
}

// sortTreeEntries orders entries the way git requires: lexicographic by
// name, with directory names compared as if suffixed by "/" so that e.g.
// "foo.go" sorts before "foo/" does not collide with "foo-bar".
func sortTreeEntries(entries []object.TreeEntry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i].Name, entries[j].Name
		if entries[i].Mode == filemode.Dir {
			a += "/"
		}
		if entries[j].Mode == filemode.Dir {
			b += "/"
		}
		return a < b
	})
}

// splitPath splits a git-relative path into its slash-separated segments.
func splitPath(p string) []string {
	return strings.Split(p, "/")
}
