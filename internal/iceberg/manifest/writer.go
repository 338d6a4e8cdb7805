// Package manifest implements the Manifest Writer / Rolling Writer and
// the Manifest Metadata Enricher (spec.md §4.1, §4.2). Grounded on the
// teacher's server/metadata/iceberg.MetadataGenerator.GenerateManifest
// and AvroCodec.ConvertTableFileToManifestEntry, generalized from a
// single-shot JSON dump into a size-bounded, rolling Avro OCF writer,
// and from a fixed "status=1 added, snapshot_id=time.Now()" stub into
// entries the caller controls (status, sequence numbers, owning
// snapshot id resolved later by the enricher).
package manifest

import (
	"context"
	"sync/atomic"

	"github.com/TFMV/icesnap/internal/avro"
	"github.com/TFMV/icesnap/internal/iceberg/iofs"
	"github.com/TFMV/icesnap/internal/model"
	"github.com/TFMV/icesnap/internal/paths"
	"github.com/TFMV/icesnap/internal/richerrors"
	"github.com/rs/zerolog"
)

// IndexAllocator hands out unique manifest file index numbers across
// every group writer in one commit attempt, so concurrently-writing
// groups never race onto the same "<commitUUID>-m<index>.avro" path.
// RowIDAllocator likewise hands out a shared, monotonically advancing row-id
// watermark (format >= 3 only) across that same set of group writers,
// per SPEC_FULL.md §9's resolution of the nextRowId open question:
// the watermark is monotonic across every roll of every group writer
// belonging to one Apply call, not reset per file or per group.
type IndexAllocator struct {
	next atomic.Int64
}

// NewIndexAllocator starts index allocation at 0.
func NewIndexAllocator() *IndexAllocator { return &IndexAllocator{} }

func (a *IndexAllocator) allocate() int {
	return int(a.next.Add(1) - 1)
}

// RowIDAllocator hands out a shared, monotonically advancing row-id
// watermark across every group writer in one Apply call.
type RowIDAllocator struct {
	next atomic.Int64
}

// NewRowIDAllocator seeds the watermark at base.
func NewRowIDAllocator(base int64) *RowIDAllocator {
	a := &RowIDAllocator{}
	a.next.Store(base)
	return a
}

func (a *RowIDAllocator) advance(rows int64) int64 {
	return a.next.Add(rows)
}

// Value returns the allocator's current watermark.
func (a *RowIDAllocator) Value() int64 { return a.next.Load() }

// RollingWriter serializes data or delete file entries into one or
// more size-bounded manifest files, rolling onto a fresh file whenever
// the current one exceeds targetSizeBytes (spec.md §4.1).
type RollingWriter struct {
	ctx             context.Context
	fileio          iofs.FileIO
	pathMgr         paths.Manager
	namespace       []string
	tableName       string
	commitUUID      string
	content         model.FileContent
	partitionSpecID int
	targetSizeBytes int64
	logger          zerolog.Logger

	indexes *IndexAllocator
	rowIDs  *RowIDAllocator

	current       *avro.ManifestEncoder
	currentPath   string
	currentCounts fileCounts

	completed []model.ManifestFile
	written   []string // every path opened, for cleanup of partials on error
}

type fileCounts struct {
	added, existing, deleted             int
	addedRows, existingRows, deletedRows int64
}

// NewRollingWriter constructs a writer for one manifest content kind.
// indexes and rowIDs are shared across every group writer belonging to
// the same commit attempt (see IndexAllocator/RowIDAllocator); pass a
// fresh pair per attempt, not per group.
func NewRollingWriter(
	ctx context.Context,
	fileio iofs.FileIO,
	pathMgr paths.Manager,
	namespace []string,
	tableName string,
	commitUUID string,
	content model.FileContent,
	partitionSpecID int,
	targetSizeBytes int64,
	indexes *IndexAllocator,
	rowIDs *RowIDAllocator,
	logger zerolog.Logger,
) *RollingWriter {
	return &RollingWriter{
		ctx:             ctx,
		fileio:          fileio,
		pathMgr:         pathMgr,
		namespace:       namespace,
		tableName:       tableName,
		commitUUID:      commitUUID,
		content:         content,
		partitionSpecID: partitionSpecID,
		targetSizeBytes: targetSizeBytes,
		indexes:         indexes,
		rowIDs:          rowIDs,
		logger:          logger,
	}
}

// Add writes one entry, rolling onto a fresh manifest file first if
// the current one has already crossed the size threshold.
func (w *RollingWriter) Add(entry model.ManifestEntry) error {
	if w.current == nil {
		if err := w.openNext(); err != nil {
			return err
		}
	}

	if err := w.current.Write(entry); err != nil {
		return richerrors.New(ManifestIOFailed, "write manifest entry", err).
			AddContext("path", w.currentPath)
	}

	switch entry.Status {
	case model.StatusAdded:
		w.currentCounts.added++
		w.currentCounts.addedRows += entry.File.RecordCount
		if w.rowIDs != nil {
			w.rowIDs.advance(entry.File.RecordCount)
		}
	case model.StatusExisting:
		w.currentCounts.existing++
		w.currentCounts.existingRows += entry.File.RecordCount
	case model.StatusDeleted:
		w.currentCounts.deleted++
		w.currentCounts.deletedRows += entry.File.RecordCount
	}

	if w.current.BytesWritten() >= w.targetSizeBytes {
		return w.roll()
	}
	return nil
}

// Close finalizes any open manifest file and returns every completed
// ManifestFile in append order.
func (w *RollingWriter) Close() ([]model.ManifestFile, error) {
	if w.current != nil {
		if err := w.roll(); err != nil {
			return nil, err
		}
	}
	return w.completed, nil
}

// WrittenPaths returns every manifest path this writer opened,
// completed or not — the uncommitted-file set a producer hands to
// CleanUncommitted on a failed attempt (spec.md §4.1).
func (w *RollingWriter) WrittenPaths() []string { return w.written }

func (w *RollingWriter) openNext() error {
	path := w.pathMgr.ManifestPath(w.namespace, w.tableName, w.commitUUID, w.indexes.allocate())

	wc, err := w.fileio.Create(w.ctx, path)
	if err != nil {
		return richerrors.New(ManifestIOFailed, "open manifest file", err).
			AddContext("path", path)
	}
	enc, err := avro.NewManifestEncoder(wc)
	if err != nil {
		wc.Close()
		return richerrors.New(ManifestIOFailed, "init manifest encoder", err).
			AddContext("path", path)
	}

	w.current = enc
	w.currentPath = path
	w.currentCounts = fileCounts{}
	w.written = append(w.written, path)
	return nil
}

func (w *RollingWriter) roll() error {
	length := w.current.BytesWritten()
	if err := w.current.Close(); err != nil {
		return richerrors.New(ManifestIOFailed, "close manifest file", err).
			AddContext("path", w.currentPath)
	}

	w.completed = append(w.completed, model.ManifestFile{
		Path:               w.currentPath,
		Length:             length,
		PartitionSpecID:    w.partitionSpecID,
		Content:            w.content,
		AddedFilesCount:    w.currentCounts.added,
		ExistingFilesCount: w.currentCounts.existing,
		DeletedFilesCount:  w.currentCounts.deleted,
		AddedRowsCount:     w.currentCounts.addedRows,
		ExistingRowsCount:  w.currentCounts.existingRows,
		DeletedRowsCount:   w.currentCounts.deletedRows,
	})

	w.logger.Debug().
		Str("path", w.currentPath).
		Int64("length", length).
		Int("added_files", w.currentCounts.added).
		Msg("rolled manifest file")

	w.current = nil
	w.currentPath = ""
	return nil
}
