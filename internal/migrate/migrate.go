// Package migrate wires the History Source, the mapping-state iterator,
// the commit planner, and label tagging into one end-to-end migration run
// (§2 "glue"). It owns no I/O provisioning of its own: callers construct
// the concrete History Source and Object Store (cmd/tfvcmigrate does this
// against a real TFS collection and an on-disk repository) and hand them
// in, the same way the teacher keeps its command implementations
// (pkg/git/commands/*) free of the session/transport wiring that
// constructs them.
package migrate

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/techsola/tfvc-migrator/internal/authors"
	"github.com/techsola/tfvc-migrator/internal/config"
	"github.com/techsola/tfvc-migrator/internal/historysource"
	"github.com/techsola/tfvc-migrator/internal/labels"
	"github.com/techsola/tfvc-migrator/internal/migstate"
	"github.com/techsola/tfvc-migrator/internal/objectstore"
	tpath "github.com/techsola/tfvc-migrator/internal/path"
	"github.com/techsola/tfvc-migrator/internal/planner"
	"github.com/techsola/tfvc-migrator/internal/progress"
	"github.com/techsola/tfvc-migrator/internal/topology"
)

// TrunkRefName is the branch ref name given to the trunk (§4.F step 5).
const TrunkRefName = "main"

const defaultParallelism = 8
const progressInterval = 5 * time.Second

// TaggerIdentity is the annotated-tag author/committer used for every
// label tag, since labels themselves carry no separate identity in the
// History Source model (§6).
var TaggerIdentity = objectstore.Signature{Name: "tfvc-migrator", Email: "tfvc-migrator@localhost"}

// Run replays every changeset in [opts.MinChangeset, opts.MaxChangeset]
// against store, then tags labels. history and store are assumed already
// open; authorsMap is assumed already parsed and validated.
func Run(ctx context.Context, logger *log.Logger, history historysource.Source, store objectstore.Store, authorsMap authors.Map, opts *config.Options) error {
	runID := uuid.New().String()[:8]
	logger.Printf("migration %s: starting %s -> %s", runID, opts.RootPath, opts.OutDir)

	changesetMetas, err := history.ListChangesets(ctx, opts.RootPath, opts.MinChangeset, opts.MaxChangeset)
	if err != nil {
		return err
	}
	if len(changesetMetas) == 0 {
		logger.Printf("migration %s: no changesets in range, nothing to do", runID)
		return nil
	}

	metaByChangeset := make(map[int]historysource.ChangesetMeta, len(changesetMetas))
	for _, m := range changesetMetas {
		metaByChangeset[m.ChangesetID] = m
	}
	firstChangeset := changesetMetas[0].ChangesetID

	src := &changesSource{history: history, changesets: changesetMetas, idx: 1}
	iter, err := migstate.NewIterator(ctx, src, opts.RootPath, firstChangeset, opts.RootPathChanges)
	if err != nil {
		return err
	}

	parallelism := opts.Parallelism
	if parallelism < 1 {
		parallelism = defaultParallelism
	}
	p := planner.New(store, history, authorsMap, TrunkRefName, parallelism)
	reporter := progress.New(logger, len(changesetMetas), progressInterval)

	state, ok, err := iter.Next()
	if err != nil {
		return err
	}
	for ok {
		if meta, tracked := metaByChangeset[state.Changeset]; tracked {
			items, err := history.ListItems(ctx, scopePaths(state), state.Changeset)
			if err != nil {
				return err
			}
			if err := p.PlanChangeset(ctx, state, items, meta); err != nil {
				return err
			}
			reporter.Advance(state.Changeset)
		}

		state, ok, err = iter.Next()
		if err != nil {
			return err
		}
	}
	reporter.Done()

	tagger := TaggerIdentity
	tagger.When = time.Now()
	if err := labels.Tag(ctx, history, store, p.CommitIndex(), opts.RootPath, tagger); err != nil {
		return fmt.Errorf("tagging labels: %w", err)
	}

	logger.Printf("migration %s: done, %d changesets replayed", runID, len(changesetMetas))
	return nil
}

// scopePaths collects every live branch's mapping root and pre-unions them
// (§4.A non_overlapping_union) into the scope_paths list_items expects
// (§6): every branch needs its own subtree listed, not just trunk's, since
// a root-path move can relocate trunk while other branches stay put.
func scopePaths(state migstate.MappingState) []string {
	roots := make([]string, len(state.BranchMappingsInDepOrder))
	for i, bm := range state.BranchMappingsInDepOrder {
		roots[i] = bm.Mapping.Root
	}
	return tpath.NonOverlappingUnion(roots)
}

// changesSource adapts historysource.Source into the migstate.ChangesSource
// the mapping-state iterator drives, skipping index 0: the iterator's
// first Next() call emits the seed state for changesets[0] without
// consuming this source at all (§4.E).
type changesSource struct {
	history    historysource.Source
	changesets []historysource.ChangesetMeta
	idx        int
}

func (s *changesSource) Next(ctx context.Context) (migstate.ChangesetChanges, bool, error) {
	if s.idx >= len(s.changesets) {
		return migstate.ChangesetChanges{}, false, nil
	}
	meta := s.changesets[s.idx]
	s.idx++

	changes, err := s.history.ListChangesetChanges(ctx, meta.ChangesetID)
	if err != nil {
		return migstate.ChangesetChanges{}, false, err
	}
	return migstate.ChangesetChanges{Changeset: meta.ChangesetID, Changes: convertChanges(changes)}, true, nil
}

func convertChanges(changes []historysource.Change) []topology.PathChange {
	out := make([]topology.PathChange, len(changes))
	for i, c := range changes {
		out[i] = topology.PathChange{
			ItemPath:         c.Item.Path,
			SourceServerItem: c.SourceServerItem,
			ChangesetVersion: c.Item.ChangesetVersion,
			ChangeType:       c.ChangeType,
			MergeSources:     c.MergeSources,
		}
	}
	return out
}
