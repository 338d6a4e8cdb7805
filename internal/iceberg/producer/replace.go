package producer

import (
	"context"
	"strconv"

	"github.com/TFMV/icesnap/internal/iceberg/iofs"
	"github.com/TFMV/icesnap/internal/model"
	"github.com/TFMV/icesnap/internal/paths"
	"github.com/TFMV/icesnap/internal/richerrors"
	"github.com/TFMV/icesnap/internal/workerpool"
	"github.com/rs/zerolog"
)

// ReplaceValidationFailed is returned when a REPLACE commit's declared
// summary violates added_records <= deleted_records.
var ReplaceValidationFailed = richerrors.MustNewCode("iceberg.commit.validation_failed")

// ReplaceProducer behaves exactly like OverwriteProducer but enforces
// the REPLACE invariant (spec.md §4.5 step 11, §8 universal 4): the
// total records added may not exceed the total records removed.
type ReplaceProducer struct {
	*OverwriteProducer
}

// NewReplaceProducer constructs an empty replace producer.
func NewReplaceProducer(fileio iofs.FileIO, pathMgr paths.Manager, pool *workerpool.Pool, namespace []string, tableName, commitUUID string, logger zerolog.Logger) *ReplaceProducer {
	return &ReplaceProducer{OverwriteProducer: NewOverwriteProducer(fileio, pathMgr, pool, namespace, tableName, commitUUID, logger)}
}

func (p *ReplaceProducer) Operation() string { return "replace" }

// Summary delegates to the embedded OverwriteProducer's totals but
// corrects the operation tag — Go doesn't dispatch Operation()
// virtually through embedding, so OverwriteProducer.Summary() would
// otherwise report "overwrite" for a replace commit.
func (p *ReplaceProducer) Summary() model.SummaryDelta {
	delta := p.OverwriteProducer.Summary()
	delta.Operation = p.Operation()
	return delta
}

// Validate enforces added_records <= deleted_records before any I/O or
// CAS attempt runs, per spec.md §8 universal 4.
func (p *ReplaceProducer) Validate(ctx context.Context, base *model.TableMetadata, parent *model.Snapshot) error {
	summary := p.Summary()
	added, _ := strconv.ParseInt(summary.Get("added-records"), 10, 64)
	deleted, _ := strconv.ParseInt(summary.Get("deleted-records"), 10, 64)
	if added > deleted {
		return richerrors.Newf(ReplaceValidationFailed,
			"replace invariant violated: added_records (%d) > deleted_records (%d)", added, deleted)
	}
	return nil
}
