package producer

import (
	"context"
	"strconv"
	"sync"

	"github.com/TFMV/icesnap/internal/iceberg/iofs"
	"github.com/TFMV/icesnap/internal/iceberg/manifest"
	"github.com/TFMV/icesnap/internal/iceberg/parallelwriter"
	"github.com/TFMV/icesnap/internal/iceberg/tableprops"
	"github.com/TFMV/icesnap/internal/model"
	"github.com/TFMV/icesnap/internal/paths"
	"github.com/TFMV/icesnap/internal/workerpool"
	"github.com/rs/zerolog"
)

// writerDeps bundles the collaborators every concrete producer needs
// to turn PendingFiles into manifests. Shared across producers rather
// than duplicated per type.
type writerDeps struct {
	fileio     iofs.FileIO
	pathMgr    paths.Manager
	pool       *workerpool.Pool
	namespace  []string
	tableName  string
	commitUUID string
	logger     zerolog.Logger
}

// writeFiles partitions pending files across the shared worker pool and
// writes them into one or more manifest files of the given content
// kind, tagging every entry status uniformly (ADDED or DELETED). The
// paths written (completed or not) are returned alongside the
// manifests so the caller can track them for cleanup.
func (d writerDeps) writeFiles(
	ctx context.Context,
	files []model.PendingFile,
	status model.EntryStatus,
	content model.FileContent,
	base *model.TableMetadata,
	seq int64,
	indexes *manifest.IndexAllocator,
	rowIDs *manifest.RowIDAllocator,
) ([]model.ManifestFile, []string, error) {
	if len(files) == 0 {
		return nil, nil, nil
	}

	targetSize := tableprops.ManifestTargetSizeFrom(base.Properties)
	var writtenMu writtenTracker

	out, err := parallelwriter.WriteGroups(ctx, files, d.pool, func(ctx context.Context, group []model.PendingFile) ([]model.ManifestFile, error) {
		w := manifest.NewRollingWriter(ctx, d.fileio, d.pathMgr, d.namespace, d.tableName, d.commitUUID,
			content, base.CurrentSchemaID, targetSize, indexes, rowIDs, d.logger)

		for _, f := range group {
			if err := w.Add(model.ManifestEntry{
				Status:             status,
				DataSequenceNumber: seq,
				FileSequenceNumber: seq,
				File:               f,
			}); err != nil {
				writtenMu.add(w.WrittenPaths())
				return nil, err
			}
		}

		completed, err := w.Close()
		writtenMu.add(w.WrittenPaths())
		return completed, err
	})

	return out, writtenMu.paths, err
}

// writtenTracker accumulates manifest paths opened across concurrent
// group writers for later cleanup bookkeeping. Safe for concurrent use
// since WriteGroups invokes its callback from multiple goroutines.
type writtenTracker struct {
	mu    sync.Mutex
	paths []string
}

func (t *writtenTracker) add(paths []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.paths = append(t.paths, paths...)
}

// cleanPaths deletes every path in paths, logging but not failing on
// individual delete errors — matching spec.md §4.6's "any exception
// during cleanup is logged and swallowed".
func cleanPaths(ctx context.Context, fileio iofs.FileIO, logger zerolog.Logger, paths []string, committed map[string]struct{}) error {
	for _, p := range paths {
		if _, ok := committed[p]; ok {
			continue
		}
		if err := fileio.Delete(ctx, p); err != nil {
			logger.Warn().Err(err).Str("path", p).Msg("failed to clean up uncommitted manifest")
		}
	}
	return nil
}

func formatInt(n int64) string { return strconv.FormatInt(n, 10) }
