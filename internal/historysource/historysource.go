// Package historysource defines the History Source external interface
// (§6): the read-only surface over the TFVC project-collection the
// migration engine consumes, plus a bounded-retry wrapper for
// TransientIOFailure (§7 propagation policy: "retried by the I/O layer per
// its own policy, surfaced only after retries are exhausted").
package historysource

import (
	"context"
	"io"
	"time"

	"github.com/techsola/tfvc-migrator/internal/topology"
)

// ChangesetMeta is one changeset's commit-level metadata.
type ChangesetMeta struct {
	ChangesetID int
	Author      string
	CheckedInBy string
	CreatedDate time.Time
	Comment     string
}

// Item is one path's state as of a changeset.
type Item struct {
	Path             string
	ChangesetVersion int
	IsFolder         bool
	IsBranch         bool
	IsSymbolicLink   bool
	Size             int64
	Hash             string
}

// Change is one changeset's path delta, before being narrowed into
// topology.PathChange for the analyzer.
type Change struct {
	Item             Item
	ChangeType       topology.ChangeFlags
	SourceServerItem *string
	MergeSources     []topology.MergeSource
}

// Label is a named, fixed view over a set of items as of some changeset.
type Label struct {
	Name         string
	OwnerPath    string
	LabelItemsID string
}

// Source is the read-only interface over the TFVC project collection.
type Source interface {
	// ListChangesets returns, in ascending order, the metadata for every
	// changeset at-or-under rootPath within [min, max] (either bound may be
	// zero to mean unbounded).
	ListChangesets(ctx context.Context, rootPath string, min, max int) ([]ChangesetMeta, error)

	// ListChangesetChanges returns the path deltas for one changeset.
	ListChangesetChanges(ctx context.Context, changesetID int) ([]Change, error)

	// ListItems lists every item, recursively, under the pre-unioned
	// non-overlapping scopePaths as of changeset.
	ListItems(ctx context.Context, scopePaths []string, changeset int) ([]Item, error)

	// FetchContent streams an item's content as of changeset.
	FetchContent(ctx context.Context, path string, changeset int) (io.ReadCloser, error)

	// ListLabels returns every label at-or-under rootPath.
	ListLabels(ctx context.Context, rootPath string) ([]Label, error)

	// LabelItems returns the changeset a label's items were fixed against.
	LabelItems(ctx context.Context, label Label) (int, error)
}
