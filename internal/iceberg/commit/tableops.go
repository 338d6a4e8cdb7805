package commit

import (
	"context"

	"github.com/TFMV/icesnap/internal/model"
)

// TableOperations is the narrow collaborator the commit driver depends
// on to read and durably swap table metadata (spec.md §6's
// "TableOperations" consumed collaborator). It is handed to a producer
// and the driver at construction; neither holds a back-reference, so
// there is no cyclic dependency between producer and TableOperations
// (spec.md §9).
type TableOperations interface {
	// Current returns the table's last-known metadata without forcing
	// a refresh from the backing store.
	Current(ctx context.Context) (*model.TableMetadata, error)

	// Refresh re-reads metadata from the backing store and returns the
	// latest value, used at the start of every commit attempt.
	Refresh(ctx context.Context) (*model.TableMetadata, error)

	// Commit attempts an optimistic-concurrency swap from base to
	// updated. It returns a *richerrors.Error tagged ErrConflict if the
	// compare-and-swap lost a race, ErrStateUnknown if the outcome
	// could not be determined, or any other error/code for a terminal
	// failure.
	Commit(ctx context.Context, base, updated *model.TableMetadata) error

	// MetadataFileLocation resolves a metadata file name to a full,
	// storage-relative location.
	MetadataFileLocation(name string) string

	// NewSnapshotID mints a candidate snapshot id. The driver draws
	// again whenever the candidate collides with an id already present
	// in base metadata: before the first attempt, and after each
	// refresh that follows a conflict.
	NewSnapshotID() int64

	// RequireStrictCleanup reports whether terminal failures must skip
	// cleanup. When it returns false, the driver deletes every attempted
	// manifest-list and runs the producer's CleanUncommitted with an
	// empty committed set before returning a terminal error other than
	// an unknown-state outcome; when it returns true, those files are
	// left in place.
	RequireStrictCleanup() bool
}
