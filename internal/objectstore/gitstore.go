package objectstore

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-git/go-billy/v5/osfs"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/filesystem"
)

// ErrNotEmpty is returned by Open when outDir already contains anything
// other than an empty repository (§7 PreconditionFailure: "target directory
// non-empty with unexpected content").
var ErrNotEmpty = errors.New("objectstore: output directory is not empty")

// GitStore is the go-git-backed Store: a conventional on-disk repository at
// outDir, with the .git metadata directory backed by filesystem.Storage the
// same way the teacher's clone command backs a local repo (there over
// memfs/HybridStorer; here over osfs, since migration output must persist).
type GitStore struct {
	repo *gogit.Repository
}

// Open creates (or reopens) a conventional, non-bare git repository rooted
// at outDir. It fails with ErrNotEmpty if outDir exists, is non-empty, and
// is not itself an already-initialized empty repository.
func Open(outDir string) (*GitStore, error) {
	root := osfs.New(outDir)

	// ReadDir on a directory that does not exist yet is fine: osfs creates
	// parents lazily on first write, so there is nothing to reject.
	if entries, err := root.ReadDir("."); err == nil && len(entries) > 0 {
		onlyGit := len(entries) == 1 && entries[0].Name() == ".git" && entries[0].IsDir()
		if !onlyGit {
			return nil, ErrNotEmpty
		}
	}

	dotGit, err := root.Chroot(".git")
	if err != nil {
		return nil, fmt.Errorf("objectstore: chroot .git: %w", err)
	}
	storer := filesystem.NewStorage(dotGit, cache.NewObjectLRUDefault())

	repo, err := gogit.Init(storer, root)
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryAlreadyExists) {
			repo, err = gogit.Open(storer, root)
		}
		if err != nil {
			return nil, fmt.Errorf("objectstore: init repository: %w", err)
		}
		refs, err := repo.References()
		if err != nil {
			return nil, fmt.Errorf("objectstore: list references: %w", err)
		}
		populated := false
		_ = refs.ForEach(func(ref *plumbing.Reference) error {
			if ref.Type() == plumbing.HashReference {
				populated = true
			}
			return nil
		})
		if populated {
			return nil, ErrNotEmpty
		}
	}

	return &GitStore{repo: repo}, nil
}

func (s *GitStore) BlobFromStream(r io.Reader) (plumbing.Hash, error) {
	obj := s.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)

	w, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("objectstore: open blob writer: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return plumbing.ZeroHash, fmt.Errorf("objectstore: write blob: %w", err)
	}
	if err := w.Close(); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("objectstore: close blob writer: %w", err)
	}

	hash, err := s.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("objectstore: store blob: %w", err)
	}
	return hash, nil
}

// treeNode mirrors the flat-path-to-nested-tree builder pattern: entries are
// collected by directory, then encoded bottom-up.
type treeNode struct {
	children map[string]*treeNode
	files    []object.TreeEntry
}

func newTreeNode() *treeNode {
	return &treeNode{children: make(map[string]*treeNode)}
}

func (s *GitStore) TreeFromEntries(entries []Entry) (plumbing.Hash, error) {
	root := newTreeNode()
	for _, e := range entries {
		insertTreeEntry(root, splitPath(e.Path), object.TreeEntry{Mode: filemode.Regular, Hash: e.Hash})
	}
	return s.encodeTree(root)
}

func insertTreeEntry(node *treeNode, parts []string, leaf object.TreeEntry) {
	if len(parts) == 1 {
		leaf.Name = parts[0]
		node.files = append(node.files, leaf)
		return
	}
	dir := parts[0]
	child, ok := node.children[dir]
	if !ok {
		child = newTreeNode()
		node.children[dir] = child
	}
	insertTreeEntry(child, parts[1:], leaf)
}

func (s *GitStore) encodeTree(node *treeNode) (plumbing.Hash, error) {
	entries := append([]object.TreeEntry(nil), node.files...)
	for name, child := range node.children {
		hash, err := s.encodeTree(child)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		entries = append(entries, object.TreeEntry{Name: name, Mode: filemode.Dir, Hash: hash})
	}
	sortTreeEntries(entries)

	tree := &object.Tree{Entries: entries}
	obj := s.repo.Storer.NewEncodedObject()
	if err := tree.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("objectstore: encode tree: %w", err)
	}
	hash, err := s.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("objectstore: store tree: %w", err)
	}
	return hash, nil
}

func (s *GitStore) TreeHash(commit plumbing.Hash) (plumbing.Hash, error) {
	c, err := s.repo.CommitObject(commit)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("objectstore: resolve commit %s: %w", commit, err)
	}
	return c.TreeHash, nil
}

func (s *GitStore) CommitFrom(author, committer Signature, message string, tree plumbing.Hash, parents []plumbing.Hash) (plumbing.Hash, error) {
	commit := &object.Commit{
		Author:       author.toObject(),
		Committer:    committer.toObject(),
		Message:      message,
		TreeHash:     tree,
		ParentHashes: parents,
	}

	obj := s.repo.Storer.NewEncodedObject()
	if err := commit.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("objectstore: encode commit: %w", err)
	}
	hash, err := s.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("objectstore: store commit: %w", err)
	}
	return hash, nil
}

func branchRefName(name string) plumbing.ReferenceName {
	return plumbing.NewBranchReferenceName(name)
}

func (s *GitStore) SetBranchRef(name string, commit plumbing.Hash) error {
	ref := plumbing.NewHashReference(branchRefName(name), commit)
	if err := s.repo.Storer.SetReference(ref); err != nil {
		return fmt.Errorf("objectstore: set branch ref %q: %w", name, err)
	}
	return nil
}

func (s *GitStore) RemoveBranchRef(name string) error {
	if err := s.repo.Storer.RemoveReference(branchRefName(name)); err != nil {
		return fmt.Errorf("objectstore: remove branch ref %q: %w", name, err)
	}
	return nil
}

func (s *GitStore) SetHead(name string) error {
	head := plumbing.NewSymbolicReference(plumbing.HEAD, branchRefName(name))
	if err := s.repo.Storer.SetReference(head); err != nil {
		return fmt.Errorf("objectstore: set HEAD to %q: %w", name, err)
	}
	return nil
}

func (s *GitStore) CreateTag(name string, commit plumbing.Hash, tagger Signature, message string) error {
	tagObj := &object.Tag{
		Name:       name,
		Tagger:     tagger.toObject(),
		Message:    message,
		TargetType: plumbing.CommitObject,
		Target:     commit,
	}
	obj := s.repo.Storer.NewEncodedObject()
	if err := tagObj.Encode(obj); err != nil {
		return fmt.Errorf("objectstore: encode tag %q: %w", name, err)
	}
	hash, err := s.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return fmt.Errorf("objectstore: store tag %q: %w", name, err)
	}
	ref := plumbing.NewHashReference(plumbing.NewTagReferenceName(name), hash)
	if err := s.repo.Storer.SetReference(ref); err != nil {
		return fmt.Errorf("objectstore: set tag ref %q: %w", name, err)
	}
	return nil
}

var _ Store = (*GitStore)(nil)
