package commit

import (
	"context"
	"time"

	"github.com/TFMV/icesnap/internal/events"
	"github.com/TFMV/icesnap/internal/iceberg/iofs"
	"github.com/TFMV/icesnap/internal/iceberg/producer"
	"github.com/TFMV/icesnap/internal/iceberg/tableprops"
	"github.com/TFMV/icesnap/internal/model"
	"github.com/TFMV/icesnap/internal/richerrors"
	"github.com/rs/zerolog"
)

// Driver runs the commit state machine for one logical commit (one
// producer instance): Idle -> Attempting -> one of {CASSuccess, Retry,
// FatalCleanup, FatalNoCleanup, UnknownState} (spec.md §4.6). Grounded
// on the teacher's RetryWithBackoff (server/metadata/iceberg/retry.go),
// generalized to retry only on the Conflict taxonomy kind instead of
// every error, and to drive a multi-step attempt (assembler + CAS +
// cleanup) rather than a single opaque operation.
type Driver struct {
	assembler *Assembler
	ops       TableOperations
	fileio    iofs.FileIO
	reporter  func(events.CommitReport)
	listeners []events.Listener[events.CommitReport]
	env       map[string]string
	logger    zerolog.Logger
}

// NewDriver constructs a Driver. reporter may be nil; listeners may be empty.
// fileio is the same storage seam the assembler writes manifest-lists
// through, so the driver can delete the ones that end up orphaned.
func NewDriver(assembler *Assembler, ops TableOperations, fileio iofs.FileIO, reporter func(events.CommitReport), listeners []events.Listener[events.CommitReport], env map[string]string, logger zerolog.Logger) *Driver {
	return &Driver{assembler: assembler, ops: ops, fileio: fileio, reporter: reporter, listeners: listeners, env: env, logger: logger}
}

// Result is what a successful or accepted-no-op Commit call returns.
type Result struct {
	Snapshot *model.Snapshot
	Attempts int
}

// Commit drives the full per-attempt loop against namespace/tableName,
// targeting branch targetBranch (stageOnly=true stages the snapshot
// without moving any ref). It returns once a snapshot has been durably
// committed, a no-effective-change attempt has been silently accepted,
// or a terminal/unknown-state error occurs.
func (d *Driver) Commit(ctx context.Context, prod producer.Producer, namespace []string, tableName, targetBranch string, stageOnly bool) (*Result, error) {
	base, err := d.ops.Current(ctx)
	if err != nil {
		return nil, err
	}
	policy := tableprops.RetryPolicyFrom(base.Properties)

	commitUUID, err := newCommitUUID()
	if err != nil {
		return nil, err
	}

	var snapshotID int64
	if targeter, ok := prod.(producer.SnapshotTargeter); ok {
		// Rollback commits against a snapshot id that must already
		// exist in metadata, not a freshly minted one (spec.md §4.6
		// step 2's idempotent-rollback branch).
		snapshotID = targeter.TargetSnapshotID()
	} else {
		snapshotID = d.nextSnapshotID(base)
	}

	deadline := time.Now().Add(policy.TotalTimeout)
	wait := policy.MinWait
	start := time.Now()

	// manifestLists accumulates every attempt's manifest-list path
	// across the whole retry sequence (spec.md §4.6: "delete every
	// accumulated manifest-list path that is not equal to S's
	// manifest-list location"). A retried attempt's manifest-list isn't
	// deleted on the spot — it's swept in one pass once the loop
	// reaches a terminal outcome, success or failure.
	var manifestLists []string

	for attempt := 1; attempt <= policy.MaxRetries+1; attempt++ {
		if time.Now().After(deadline) {
			if !d.ops.RequireStrictCleanup() {
				d.cleanup(ctx, prod, manifestLists, nil)
			}
			return nil, richerrors.Newc(ErrConflict, "commit retry budget exhausted")
		}

		result, err := d.assembler.Apply(ctx, d.ops, prod, namespace, tableName, targetBranch, commitUUID, attempt, snapshotID, d.env)
		if err != nil {
			// Validation and tag-target errors are terminal. Every
			// manifest-list accumulated so far, across this and any
			// earlier attempt, was never referenced by any committed
			// snapshot, so all of them are swept along with anything
			// the producer wrote, unless the table requires strict
			// cleanup (manifests kept alive for diagnosis/reuse).
			if !d.ops.RequireStrictCleanup() {
				d.cleanup(ctx, prod, manifestLists, nil)
			}
			return nil, err
		}
		manifestLists = append(manifestLists, result.ManifestListPath)

		updated := d.buildUpdatedMetadata(base, result.Snapshot, targetBranch, stageOnly)

		// 3. No effective change: skip the CAS silently, treat as
		// success. Per SPEC_FULL.md §9, every accumulated manifest-list
		// is still an orphan and is still cleaned up; listeners are
		// still skipped (matching the source's silence).
		if metadataEqual(base, updated) {
			d.cleanup(ctx, prod, manifestLists, nil)
			return &Result{Snapshot: result.Snapshot, Attempts: attempt}, nil
		}

		// 4. Mint a fresh uuid each attempt if missing.
		if updated.UUID == "" {
			uuid, err := newCommitUUID()
			if err != nil {
				return nil, err
			}
			updated.UUID = uuid
		}

		// 5. Issue the CAS.
		if err := d.ops.Commit(ctx, base, updated); err != nil {
			if richerrors.HasCode(err, ErrStateUnknown) {
				// Never retried, never cleaned up; propagate verbatim
				// so the caller can reconcile out of band.
				return nil, err
			}

			if !IsRetryable(err) || attempt == policy.MaxRetries+1 {
				if !d.ops.RequireStrictCleanup() {
					d.cleanup(ctx, prod, manifestLists, nil)
				}
				return nil, err
			}

			d.logger.Warn().Err(err).Int("attempt", attempt).Dur("wait", wait).Msg("commit conflict, retrying")

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
			wait = time.Duration(float64(wait) * policy.Multiplier)
			if wait > policy.MaxWait {
				wait = policy.MaxWait
			}

			base, err = d.ops.Refresh(ctx)
			if err != nil {
				return nil, err
			}
			if _, ok := prod.(producer.SnapshotTargeter); !ok && base.SnapshotExists(snapshotID) {
				snapshotID = d.nextSnapshotID(base)
			}
			continue
		}

		// Committed. Clean up every orphan manifest-list from earlier
		// attempts, keeping every manifest the new snapshot references,
		// and notify listeners/metrics.
		committed := map[string]struct{}{result.ManifestListPath: {}}
		for _, mf := range result.Snapshot.Manifests {
			committed[mf.Path] = struct{}{}
		}
		d.cleanup(ctx, prod, manifestLists, committed)
		d.notify(ctx, tableName, result.Snapshot, attempt, start)
		return &Result{Snapshot: result.Snapshot, Attempts: attempt}, nil
	}

	if !d.ops.RequireStrictCleanup() {
		d.cleanup(ctx, prod, manifestLists, nil)
	}
	return nil, richerrors.Newc(ErrConflict, "commit retries exhausted")
}

// buildUpdatedMetadata implements spec.md §4.6 step 2: rollback,
// staged, or branch-advance, depending on whether the candidate
// snapshot id already exists and whether stageOnly was requested.
func (d *Driver) buildUpdatedMetadata(base *model.TableMetadata, candidate *model.Snapshot, targetBranch string, stageOnly bool) *model.TableMetadata {
	updated := base.Clone()

	if base.SnapshotExists(candidate.SnapshotID) {
		updated.Refs[targetBranch] = model.SnapshotRef{SnapshotID: candidate.SnapshotID, Kind: model.RefBranch}
		return updated
	}

	updated.Snapshots[candidate.SnapshotID] = candidate
	if stageOnly {
		return updated
	}

	updated.Refs[targetBranch] = model.SnapshotRef{SnapshotID: candidate.SnapshotID, Kind: model.RefBranch}
	updated.NextSequenceNumber = candidate.SequenceNumber
	if candidate.NextRowID != nil {
		updated.NextRowIDValue = *candidate.NextRowID
	}
	return updated
}

// cleanup runs the producer's uncommitted-file sweep and deletes every
// manifest-list path in manifestLists that isn't in committed. Every
// failure here is logged and swallowed (spec.md §4.6 "any exception
// during cleanup is logged and swallowed").
func (d *Driver) cleanup(ctx context.Context, prod producer.Producer, manifestLists []string, committed map[string]struct{}) {
	if committed == nil {
		committed = map[string]struct{}{}
	}
	if err := prod.CleanUncommitted(ctx, committed); err != nil {
		wrapped := richerrors.New(ErrCleanupFailed, "producer cleanup failed", err)
		d.logger.Warn().Err(wrapped).Msg("producer cleanup failed")
	}
	for _, path := range manifestLists {
		if _, ok := committed[path]; ok {
			continue
		}
		if err := d.fileio.Delete(ctx, path); err != nil {
			wrapped := richerrors.New(ErrCleanupFailed, "orphaned manifest-list cleanup failed", err).AddContext("path", path)
			d.logger.Warn().Err(wrapped).Msg("orphaned manifest-list cleanup failed")
			continue
		}
		d.logger.Debug().Str("path", path).Msg("orphaned manifest-list deleted")
	}
}

// notify broadcasts the completed commit to listeners and the metrics
// reporter. Errors here never fail an otherwise-successful commit.
func (d *Driver) notify(ctx context.Context, tableName string, snap *model.Snapshot, attempts int, start time.Time) {
	report := events.CommitReport{
		TableName:      tableName,
		SnapshotID:     snap.SnapshotID,
		Operation:      snap.Operation,
		SequenceNumber: snap.SequenceNumber,
		Environment:    d.env,
		Metrics:        events.CommitMetrics{Attempts: attempts, TotalDuration: time.Since(start)},
	}
	events.Broadcast(ctx, d.listeners, report, func(err error) {
		d.logger.Warn().Err(err).Msg("listener notification failed")
	})
	if d.reporter != nil {
		d.reporter(report)
	}
}

func (d *Driver) nextSnapshotID(base *model.TableMetadata) int64 {
	id := d.ops.NewSnapshotID()
	for base.SnapshotExists(id) {
		id = d.ops.NewSnapshotID()
	}
	return id
}

func metadataEqual(a, b *model.TableMetadata) bool {
	if len(a.Refs) != len(b.Refs) || len(a.Snapshots) != len(b.Snapshots) {
		return false
	}
	for k, v := range a.Refs {
		if bv, ok := b.Refs[k]; !ok || bv != v {
			return false
		}
	}
	for k := range a.Snapshots {
		if _, ok := b.Snapshots[k]; !ok {
			return false
		}
	}
	return a.NextSequenceNumber == b.NextSequenceNumber && a.NextRowIDValue == b.NextRowIDValue
}
