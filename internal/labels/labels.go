// Package labels turns TFVC labels into annotated Git tags (§6 "Persisted
// state"): each label is attached to the commit written for the changeset
// its items were fixed against, with a `-<branch-leaf>` disambiguation
// suffix when more than one branch received a commit at that changeset.
package labels

import (
	"context"

	"github.com/techsola/tfvc-migrator/internal/historysource"
	"github.com/techsola/tfvc-migrator/internal/migerr"
	"github.com/techsola/tfvc-migrator/internal/objectstore"
	tpath "github.com/techsola/tfvc-migrator/internal/path"
	"github.com/techsola/tfvc-migrator/internal/planner"
)

// Tag applies the tags for every label under rootPath, using the planner's
// accumulated commit index to resolve which commit(s) exist at a label's
// changeset.
func Tag(ctx context.Context, history historysource.Source, store objectstore.Store, commitIndex map[planner.CommitIndexKey]planner.CommitIndexEntry, rootPath string, tagger objectstore.Signature) error {
	labelList, err := history.ListLabels(ctx, rootPath)
	if err != nil {
		return migerr.Wrap(migerr.TransientIO, err)
	}

	for _, label := range labelList {
		changeset, err := history.LabelItems(ctx, label)
		if err != nil {
			return migerr.WithContext(migerr.Wrap(migerr.TransientIO, err), changeset, "resolve label items: "+label.Name)
		}

		entries := entriesAt(commitIndex, changeset)
		if len(entries) == 0 {
			// Nothing was committed at this changeset under this branch set
			// (e.g. a label on a path never migrated); nothing to tag.
			continue
		}

		for _, e := range entries {
			name := sanitizeTagName(label.Name)
			if len(entries) > 1 {
				name = name + "-" + sanitizeTagName(tpath.Leaf(e.Branch.Path))
			}
			if err := store.CreateTag(name, e.Commit, tagger, label.Name); err != nil {
				return migerr.WithContext(migerr.Wrap(migerr.TransientIO, err), changeset, "create tag: "+name)
			}
		}
	}
	return nil
}

// entriesAt returns the commit-index entries for commits created at
// changeset, across all branches, ordered deterministically by branch path.
func entriesAt(commitIndex map[planner.CommitIndexKey]planner.CommitIndexEntry, changeset int) []planner.CommitIndexEntry {
	var out []planner.CommitIndexEntry
	for key, entry := range commitIndex {
		if key.Changeset == changeset && entry.Created {
			out = append(out, entry)
		}
	}
	sortEntriesByBranchPath(out)
	return out
}

func sortEntriesByBranchPath(entries []planner.CommitIndexEntry) {
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j-1].Branch.Path > entries[j].Branch.Path; j-- {
			entries[j-1], entries[j] = entries[j], entries[j-1]
		}
	}
}

// sanitizeTagName reuses the ref-name collapsing rule branch refs already
// apply; a label's display name can contain the same TFVC-illegal ref
// characters a branch leaf can.
func sanitizeTagName(name string) string {
	return planner.BranchRefName(name, false, "")
}
