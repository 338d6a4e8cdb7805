package producer

import (
	"context"

	"github.com/TFMV/icesnap/internal/model"
)

// RollbackToSnapshotProducer targets an existing snapshot id, triggering
// the idempotent-rollback branch of the commit driver (spec.md §4.6
// step 2): Apply returns the target snapshot's own manifests unchanged,
// and Apply is never expected to write anything new.
type RollbackToSnapshotProducer struct {
	targetSnapshotID int64
	target           *model.Snapshot
}

// NewRollbackToSnapshotProducer targets an existing snapshot. target is
// supplied by the caller so Apply can return its manifests without any
// I/O; it is not looked up in or checked against base metadata.
func NewRollbackToSnapshotProducer(targetSnapshotID int64, target *model.Snapshot) *RollbackToSnapshotProducer {
	return &RollbackToSnapshotProducer{targetSnapshotID: targetSnapshotID, target: target}
}

// TargetSnapshotID returns the snapshot id this producer rolls back to,
// which the driver uses in place of minting a fresh snapshot id.
func (p *RollbackToSnapshotProducer) TargetSnapshotID() int64 { return p.targetSnapshotID }

func (p *RollbackToSnapshotProducer) Operation() string { return "rollback" }

func (p *RollbackToSnapshotProducer) Apply(ctx context.Context, base *model.TableMetadata, parent *model.Snapshot) ([]model.ManifestFile, error) {
	return p.target.Manifests, nil
}

// Summary returns an empty delta: a rollback reuses an existing
// snapshot's totals verbatim rather than declaring a new delta.
func (p *RollbackToSnapshotProducer) Summary() model.SummaryDelta {
	return model.SummaryDelta{Operation: p.Operation(), Values: map[string]string{}}
}

// CleanUncommitted is a no-op: rollback never writes new manifests.
func (p *RollbackToSnapshotProducer) CleanUncommitted(ctx context.Context, committed map[string]struct{}) error {
	return nil
}
