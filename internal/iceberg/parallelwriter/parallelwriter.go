// Package parallelwriter fans a large pending-file list out across the
// shared worker pool and writes each slice's manifests concurrently
// (spec.md §4.3). Grounded on the teacher's
// server/metadata/iceberg.WorkerPool/Worker dispatch, generalized from
// a single fire-and-forget task queue into grouped, ordered work so the
// assembler can concatenate each group's manifests back in a
// deterministic, input-derived order.
package parallelwriter

import (
	"context"

	"github.com/TFMV/icesnap/internal/model"
	"github.com/TFMV/icesnap/internal/workerpool"
)

// MinFileGroupSize is the number of pending files per group below
// which additional parallelism stops paying for itself (spec.md §4.3).
const MinFileGroupSize = 10_000

// WriteFunc writes one contiguous group of pending files into one or
// more manifest files and returns them in append order.
type WriteFunc func(ctx context.Context, group []model.PendingFile) ([]model.ManifestFile, error)

// WriteGroups partitions files into P = max(1, min(pool.Size(),
// ceil(len(files)/MinFileGroupSize))) contiguous groups and writes each
// concurrently via the shared pool, calling write once per group. The
// first group to fail cancels every other in-flight group; manifests
// from groups that complete before cancellation are discarded along
// with it, since a partial result set can't be committed. On success,
// every group's manifests are concatenated in group order, preserving
// the deterministic, by-append-order ordering spec.md requires.
func WriteGroups(ctx context.Context, files []model.PendingFile, pool *workerpool.Pool, write WriteFunc) ([]model.ManifestFile, error) {
	if len(files) == 0 {
		return nil, nil
	}

	groups := partition(files, groupCount(len(files), pool.Size()))

	results, err := workerpool.RunIndexed(ctx, pool, len(groups), func(ctx context.Context, i int) ([]model.ManifestFile, error) {
		return write(ctx, groups[i])
	})
	if err != nil {
		return nil, err
	}

	var out []model.ManifestFile
	for _, group := range results {
		out = append(out, group...)
	}
	return out, nil
}

func groupCount(numFiles, poolSize int) int {
	byMinSize := (numFiles + MinFileGroupSize - 1) / MinFileGroupSize
	p := poolSize
	if byMinSize < p {
		p = byMinSize
	}
	if p < 1 {
		p = 1
	}
	return p
}

func partition(files []model.PendingFile, groups int) [][]model.PendingFile {
	if groups < 1 {
		groups = 1
	}
	size := (len(files) + groups - 1) / groups
	out := make([][]model.PendingFile, 0, groups)
	for start := 0; start < len(files); start += size {
		end := start + size
		if end > len(files) {
			end = len(files)
		}
		out = append(out, files[start:end])
	}
	return out
}
