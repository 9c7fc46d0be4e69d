package planner

import (
	"bytes"
	"context"
	"io"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/techsola/tfvc-migrator/internal/concurrency"
	"github.com/techsola/tfvc-migrator/internal/migerr"
)

func isBinary(data []byte) bool {
	return bytes.IndexByte(data, 0) >= 0
}

// renormalizeCRLF replaces every CR LF pair with a bare LF, left to right,
// non-overlapping (§8 testable property 10).
func renormalizeCRLF(data []byte) []byte {
	return bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
}

// emptyBlobKey is the cache key shared by every zero-size item.
const emptyBlobKey = ""

func (p *Planner) emptyBlobHash() (plumbing.Hash, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if h, ok := p.blobCache[emptyBlobKey]; ok {
		return h, nil
	}
	h, err := p.store.BlobFromStream(bytes.NewReader(nil))
	if err != nil {
		return plumbing.ZeroHash, migerr.Wrap(migerr.TransientIO, err)
	}
	p.blobCache[emptyBlobKey] = h
	return h, nil
}

// materializeBlobs fetches and stores every distinct (by content hash)
// non-empty download source not already cached, bounded-parallel on the
// fetch side, with blob creation and cache insertion serialized through
// p.mu since the Object Store is single-writer (§5 shared-resource policy).
func (p *Planner) materializeBlobs(ctx context.Context, sources []downloadSource) error {
	seen := make(map[string]bool)
	var toFetch []downloadSource
	for _, s := range sources {
		if s.Size == 0 {
			continue
		}
		p.mu.Lock()
		_, cached := p.blobCache[s.Hash]
		p.mu.Unlock()
		if cached || seen[s.Hash] {
			continue
		}
		seen[s.Hash] = true
		toFetch = append(toFetch, s)
	}

	tasks := make([]concurrency.TaskFunc[struct{}], len(toFetch))
	for i, src := range toFetch {
		src := src
		tasks[i] = func(ctx context.Context) (struct{}, error) {
			rc, err := p.history.FetchContent(ctx, src.Path, src.ChangesetVersion)
			if err != nil {
				return struct{}{}, migerr.Wrap(migerr.TransientIO, err)
			}
			data, err := io.ReadAll(rc)
			_ = rc.Close()
			if err != nil {
				return struct{}{}, migerr.Wrap(migerr.TransientIO, err)
			}

			if !isBinary(data) && bytes.Contains(data, []byte("\r\n")) {
				data = renormalizeCRLF(data)
			}

			p.mu.Lock()
			defer p.mu.Unlock()
			if _, ok := p.blobCache[src.Hash]; ok {
				return struct{}{}, nil
			}
			hash, err := p.store.BlobFromStream(bytes.NewReader(data))
			if err != nil {
				return struct{}{}, migerr.Wrap(migerr.TransientIO, err)
			}
			p.blobCache[src.Hash] = hash
			return struct{}{}, nil
		}
	}

	_, err := concurrency.BoundedParallelMap(ctx, tasks, p.parallelism)
	return err
}
