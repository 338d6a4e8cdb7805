package producer

import (
	"context"
	"sync"

	"github.com/TFMV/icesnap/internal/iceberg/iofs"
	"github.com/TFMV/icesnap/internal/iceberg/manifest"
	"github.com/TFMV/icesnap/internal/model"
	"github.com/TFMV/icesnap/internal/paths"
	"github.com/TFMV/icesnap/internal/workerpool"
	"github.com/rs/zerolog"
)

// RowDeltaProducer adds data files together with position and/or
// equality delete files in one commit — row-level changes, as opposed
// to OverwriteProducer's whole-file replacement. Grounded on the
// teacher's IcebergComponent "DELETE" branch generalized to carry both
// an added-file set and two distinct delete-file kinds.
type RowDeltaProducer struct {
	deps             writerDeps
	added            []model.PendingFile
	positionDeletes  []model.PendingFile
	equalityDeletes  []model.PendingFile

	mu           sync.Mutex
	writtenPaths []string
}

// NewRowDeltaProducer constructs an empty row-delta producer.
func NewRowDeltaProducer(fileio iofs.FileIO, pathMgr paths.Manager, pool *workerpool.Pool, namespace []string, tableName, commitUUID string, logger zerolog.Logger) *RowDeltaProducer {
	return &RowDeltaProducer{
		deps: writerDeps{
			fileio:     fileio,
			pathMgr:    pathMgr,
			pool:       pool,
			namespace:  namespace,
			tableName:  tableName,
			commitUUID: commitUUID,
			logger:     logger,
		},
	}
}

// AddFile stages one newly added data file.
func (p *RowDeltaProducer) AddFile(f model.PendingFile) {
	f.Content = model.ContentData
	p.added = append(p.added, f)
}

// AddPositionDelete stages one position-delete file.
func (p *RowDeltaProducer) AddPositionDelete(f model.PendingFile) {
	f.Content = model.ContentPositionDeletes
	p.positionDeletes = append(p.positionDeletes, f)
}

// AddEqualityDelete stages one equality-delete file.
func (p *RowDeltaProducer) AddEqualityDelete(f model.PendingFile) {
	f.Content = model.ContentEqualityDeletes
	p.equalityDeletes = append(p.equalityDeletes, f)
}

// Operation reports "overwrite": row-level deltas are recorded as an
// overwrite operation in snapshot metadata, per spec.md §4.7.
func (p *RowDeltaProducer) Operation() string { return "overwrite" }

func (p *RowDeltaProducer) Apply(ctx context.Context, base *model.TableMetadata, parent *model.Snapshot) ([]model.ManifestFile, error) {
	seq := base.NextSequenceNumberValue()
	indexes := manifest.NewIndexAllocator()
	rowIDs := manifest.NewRowIDAllocator(base.NextRowID())

	var all []model.ManifestFile

	dataManifests, written, err := p.deps.writeFiles(ctx, p.added, model.StatusAdded, model.ContentData, base, seq, indexes, rowIDs)
	p.recordWritten(written)
	if err != nil {
		return nil, err
	}
	all = append(all, dataManifests...)

	posManifests, written, err := p.deps.writeFiles(ctx, p.positionDeletes, model.StatusAdded, model.ContentPositionDeletes, base, seq, indexes, rowIDs)
	p.recordWritten(written)
	if err != nil {
		return nil, err
	}
	all = append(all, posManifests...)

	eqManifests, written, err := p.deps.writeFiles(ctx, p.equalityDeletes, model.StatusAdded, model.ContentEqualityDeletes, base, seq, indexes, rowIDs)
	p.recordWritten(written)
	if err != nil {
		return nil, err
	}
	all = append(all, eqManifests...)

	return all, nil
}

func (p *RowDeltaProducer) recordWritten(paths []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writtenPaths = append(p.writtenPaths, paths...)
}

func (p *RowDeltaProducer) Summary() model.SummaryDelta {
	var addedRecords, addedSize int64
	for _, f := range p.added {
		addedRecords += f.RecordCount
		addedSize += f.FileSizeInBytes
	}
	var posDeleteFiles, eqDeleteFiles int64
	for range p.positionDeletes {
		posDeleteFiles++
	}
	for range p.equalityDeletes {
		eqDeleteFiles++
	}
	return model.SummaryDelta{
		Operation: p.Operation(),
		Values: map[string]string{
			"added-records":           formatInt(addedRecords),
			"added-data-files":        formatInt(int64(len(p.added))),
			"added-files-size":        formatInt(addedSize),
			"added-position-deletes":  formatInt(posDeleteFiles),
			"added-equality-deletes":  formatInt(eqDeleteFiles),
		},
	}
}

func (p *RowDeltaProducer) CleanUncommitted(ctx context.Context, committed map[string]struct{}) error {
	p.mu.Lock()
	paths := append([]string(nil), p.writtenPaths...)
	p.mu.Unlock()
	return cleanPaths(ctx, p.deps.fileio, p.deps.logger, paths, committed)
}
