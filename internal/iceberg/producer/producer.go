// Package producer defines the table-operation contract consumed by
// the Snapshot Assembler (spec.md §4.7) and its concrete variants.
// Grounded on the teacher's IcebergComponent.OnEvent operation-string
// dispatch (server/metadata/iceberg/component.go), generalized from CDC
// row operations (INSERT/UPDATE/DELETE) to table-level operations
// (append/overwrite/replace/row-delta/rollback).
package producer

import (
	"context"

	"github.com/TFMV/icesnap/internal/model"
)

// Producer is the only variation point in the commit pipeline. A
// concrete producer must be deterministic modulo its inputs and must
// never mutate base metadata; it may reuse manifests written on an
// earlier attempt so long as it reports which ones were ultimately
// committed via the set CleanUncommitted receives.
type Producer interface {
	// Operation names the snapshot operation this producer records
	// ("append", "overwrite", "replace", "rollback").
	Operation() string

	// Apply runs once per commit attempt and returns the ordered
	// manifest files (data and delete) this attempt contributes.
	// Manifests are not yet attributed to a snapshot id; the assembler
	// enriches them after Apply returns.
	Apply(ctx context.Context, base *model.TableMetadata, parent *model.Snapshot) ([]model.ManifestFile, error)

	// Summary returns the producer's declared delta for this attempt,
	// aggregated with the previous snapshot's running totals by
	// internal/iceberg/summary.
	Summary() model.SummaryDelta

	// CleanUncommitted removes manifest files this producer wrote that
	// are not present in committed — the post-commit/post-failure
	// orphan sweep described in spec.md §4.6.
	CleanUncommitted(ctx context.Context, committed map[string]struct{}) error
}

// Validator is implemented by producers with a pre-commit invariant to
// check (e.g. ReplaceProducer's added<=deleted rule). Detected via type
// assertion since most producers have nothing to validate.
type Validator interface {
	Validate(ctx context.Context, base *model.TableMetadata, parent *model.Snapshot) error
}

// SnapshotTargeter is implemented by producers that commit against a
// pre-existing snapshot id instead of a freshly minted one (currently
// only RollbackToSnapshotProducer). Detected via type assertion so the
// driver mints a fresh id for every other producer.
type SnapshotTargeter interface {
	TargetSnapshotID() int64
}
