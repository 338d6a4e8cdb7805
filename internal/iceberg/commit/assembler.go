// Package commit implements the Snapshot Assembler and Commit Driver
// (spec.md §4.5, §4.6): the orchestration layer that turns a
// producer's manifest output into a durably committed snapshot via
// optimistic concurrency against TableOperations. Grounded on the
// teacher's server/metadata/iceberg.MetadataGenerator.UpdateMetadataFile
// (the single-shot, non-retrying analogue) and RetryWithBackoff
// (server/metadata/iceberg/retry.go) for the attempt loop itself.
package commit

import (
	"context"

	"github.com/TFMV/icesnap/internal/iceberg/iofs"
	"github.com/TFMV/icesnap/internal/iceberg/manifest"
	"github.com/TFMV/icesnap/internal/iceberg/producer"
	"github.com/TFMV/icesnap/internal/iceberg/summary"
	"github.com/TFMV/icesnap/internal/model"
	"github.com/TFMV/icesnap/internal/paths"
	"github.com/TFMV/icesnap/internal/richerrors"
	"github.com/rs/zerolog"
)

// Assembler runs one commit attempt's worth of manifest and snapshot
// assembly (spec.md §4.5's 12-step sequence), independent of the retry
// loop that drives it.
type Assembler struct {
	fileio  iofs.FileIO
	pathMgr paths.Manager
	enr     *manifest.Enricher
	logger  zerolog.Logger
}

// NewAssembler constructs an Assembler over the given storage seam.
func NewAssembler(fileio iofs.FileIO, pathMgr paths.Manager, logger zerolog.Logger) *Assembler {
	return &Assembler{
		fileio:  fileio,
		pathMgr: pathMgr,
		enr:     manifest.NewEnricher(fileio),
		logger:  logger,
	}
}

// AttemptResult is everything one Apply call produces: a candidate
// snapshot not yet committed and the manifest-list path it was written
// to.
type AttemptResult struct {
	Snapshot         *model.Snapshot
	ManifestListPath string
}

// Apply runs the 12-step assembly sequence against refreshed base
// metadata. namespace/tableName/commitUUID/attempt together determine
// the manifest-list's on-disk path; env is merged into the new
// snapshot's summary at the lowest precedence (spec.md §4.4, §9).
func (a *Assembler) Apply(
	ctx context.Context,
	ops TableOperations,
	prod producer.Producer,
	namespace []string,
	tableName string,
	targetBranch string,
	commitUUID string,
	attempt int,
	snapshotID int64,
	env map[string]string,
) (*AttemptResult, error) {
	// 1. Refresh base metadata.
	base, err := ops.Refresh(ctx)
	if err != nil {
		return nil, err
	}

	// 2. Resolve parent = latest snapshot on the target branch (nullable).
	// Reject tag targets before any I/O (spec.md §8 universal 6).
	var parent *model.Snapshot
	if ref, ok := base.Ref(targetBranch); ok {
		if ref.Kind == model.RefTag {
			return nil, richerrors.Newf(ErrTagTarget, "commit target %q resolves to a tag, not a branch", targetBranch)
		}
		parent = base.SnapshotByID(ref.SnapshotID)
	}

	// 4. Producer validation, if the concrete producer declares one.
	if v, ok := prod.(producer.Validator); ok {
		if err := v.Validate(ctx, base, parent); err != nil {
			return nil, err
		}
	}

	// 3. Compute a new sequence number.
	seq := base.NextSequenceNumberValue()

	// 5. Producer apply -> ordered manifest list (unattributed).
	rawManifests, err := prod.Apply(ctx, base, parent)
	if err != nil {
		return nil, err
	}

	// 6. Allocate the manifest-list output path and writer.
	listPath := a.pathMgr.ManifestListPath(namespace, tableName, snapshotID, attempt, commitUUID)

	// 7. Enrich manifests one at a time, in input order; enrichment
	// does not fan out across goroutines or the worker pool.
	enriched, err := a.enrichAll(ctx, rawManifests, snapshotID)
	if err != nil {
		return nil, err
	}

	// 8. Write enriched entries into the manifest-list.
	if err := a.writeManifestList(ctx, listPath, enriched); err != nil {
		return nil, err
	}

	// 10. Row id bookkeeping for format >= 3. A rollback reuses an
	// earlier snapshot's manifests verbatim and assigns no new rows, so
	// the watermark carries forward unchanged instead of double-counting
	// rows that were already assigned when those manifests were first
	// written.
	_, isRollback := prod.(producer.SnapshotTargeter)
	var nextRowID, assignedRows *int64
	if base.FormatVersion >= 3 {
		if isRollback {
			nrid := base.NextRowID()
			nextRowID = &nrid
		} else {
			baseNext := base.NextRowID()
			total := assignedRowCount(enriched)
			nrid := baseNext + total
			nextRowID = &nrid
			assignedRows = &total
		}
	}

	var parentID *int64
	if parent != nil {
		id := parent.SnapshotID
		parentID = &id
	}

	delta := prod.Summary()

	// 11. REPLACE invariant, redundant with Validate but enforced here
	// too so a producer that skips Validator still can't violate it.
	if delta.Operation == "replace" {
		if err := enforceReplaceInvariant(delta); err != nil {
			return nil, err
		}
	}

	previous := map[string]string{}
	if parent != nil {
		previous = parent.Summary
	}

	snap := &model.Snapshot{
		SequenceNumber:   seq,
		SnapshotID:       snapshotID,
		ParentSnapshotID: parentID,
		Operation:        delta.Operation,
		Summary:          summary.Aggregate(summary.Delta{Operation: delta.Operation, Values: delta.Values}, previous, env),
		SchemaID:         base.CurrentSchemaID,
		ManifestListPath: listPath,
		Manifests:        enriched,
		NextRowID:        nextRowID,
		AssignedRows:     assignedRows,
	}

	return &AttemptResult{Snapshot: snap, ManifestListPath: listPath}, nil
}

func (a *Assembler) enrichAll(ctx context.Context, manifests []model.ManifestFile, snapshotID int64) ([]model.ManifestFile, error) {
	out := make([]model.ManifestFile, len(manifests))
	for i, mf := range manifests {
		enriched, err := a.enr.Enrich(ctx, mf)
		if err != nil {
			return nil, err
		}
		if !enriched.IsAttributed() {
			id := snapshotID
			enriched.SnapshotID = &id
		}
		out[i] = enriched
	}
	return out, nil
}

func (a *Assembler) writeManifestList(ctx context.Context, path string, manifests []model.ManifestFile) error {
	w, err := a.fileio.Create(ctx, path)
	if err != nil {
		return richerrors.New(ErrManifestListIOFailed, "open manifest-list file", err).AddContext("path", path)
	}
	defer w.Close()

	enc, err := avroManifestListEncoder(w)
	if err != nil {
		return err
	}
	for _, mf := range manifests {
		if err := enc.Write(mf); err != nil {
			return richerrors.New(ErrManifestListIOFailed, "write manifest-list entry", err).AddContext("path", path)
		}
	}
	return enc.Close()
}

func assignedRowCount(manifests []model.ManifestFile) int64 {
	var total int64
	for _, mf := range manifests {
		total += mf.AddedRowsCount
	}
	return total
}

func enforceReplaceInvariant(delta model.SummaryDelta) error {
	added := parseOrZero(delta.Get("added-records"))
	deleted := parseOrZero(delta.Get("deleted-records"))
	if added > deleted {
		return richerrors.Newf(ErrValidationFailed,
			"replace invariant violated: added_records (%d) > deleted_records (%d)", added, deleted)
	}
	return nil
}
