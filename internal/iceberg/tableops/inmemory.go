// Package tableops provides a reference TableOperations implementation
// (spec.md §6) backed by an in-process mutex-guarded TableMetadata,
// useful for tests and the cmd/icesnap demo. A durable implementation
// (object-store-backed, with a real optimistic-concurrency primitive)
// is out of scope per spec.md's non-goals on catalog implementations;
// this type exists to give every other package something real to
// commit against.
package tableops

import (
	"context"
	"fmt"
	"sync"

	"github.com/TFMV/icesnap/internal/idgen"
	"github.com/TFMV/icesnap/internal/model"
	"github.com/TFMV/icesnap/internal/richerrors"
	"github.com/google/uuid"
)

// ConflictCode tags a lost compare-and-swap, matching
// commit.ErrConflict's code value so commit.IsRetryable recognizes it
// without importing the commit package here (avoiding an import cycle,
// since commit.TableOperations is implemented, not imported, by this
// package).
var ConflictCode = richerrors.MustNewCode("iceberg.commit.conflict")

// StateUnknownCode tags a commit whose outcome on the backing store
// couldn't be determined, matching commit.ErrStateUnknown's code value
// for the same reason ConflictCode matches commit.ErrConflict's.
var StateUnknownCode = richerrors.MustNewCode("iceberg.commit.state_unknown")

// InMemory is a process-local TableOperations backed by a mutex. Commit
// succeeds only if base matches the currently held metadata by value
// (sequence number and ref set); otherwise it reports a conflict.
type InMemory struct {
	mu                  sync.Mutex
	current             *model.TableMetadata
	basePath            string
	strictCleanup       bool
	injectConflicts     int // remaining forced conflicts, test hook
	injectStateUnknowns int // remaining forced unknown-state errors, test hook
}

// NewInMemory seeds an InMemory table at formatVersion with no snapshots.
func NewInMemory(basePath string, formatVersion int) *InMemory {
	return &InMemory{
		current: &model.TableMetadata{
			FormatVersion: formatVersion,
			UUID:          uuid.NewString(),
			Refs:          map[string]model.SnapshotRef{},
			Snapshots:     map[int64]*model.Snapshot{},
			Properties:    map[string]string{},
		},
		basePath: basePath,
	}
}

// InjectConflicts forces the next n Commit calls to report a conflict
// regardless of actual metadata state — a test hook for exercising the
// driver's retry loop (spec.md §8 universal 7, scenario S3).
func (t *InMemory) InjectConflicts(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.injectConflicts = n
}

// InjectStateUnknown forces the next n Commit calls to report an
// unknown outcome regardless of actual metadata state — a test hook
// for exercising the driver's no-retry, no-cleanup passthrough for
// CommitStateUnknown (spec.md §4.6, scenario S5).
func (t *InMemory) InjectStateUnknown(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.injectStateUnknowns = n
}

// SetStrictCleanup controls RequireStrictCleanup's return value.
func (t *InMemory) SetStrictCleanup(strict bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.strictCleanup = strict
}

func (t *InMemory) Current(ctx context.Context) (*model.TableMetadata, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current.Clone(), nil
}

func (t *InMemory) Refresh(ctx context.Context) (*model.TableMetadata, error) {
	return t.Current(ctx)
}

func (t *InMemory) Commit(ctx context.Context, base, updated *model.TableMetadata) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.injectStateUnknowns > 0 {
		t.injectStateUnknowns--
		return richerrors.Newc(StateUnknownCode, "injected unknown-state outcome")
	}

	if t.injectConflicts > 0 {
		t.injectConflicts--
		return richerrors.Newc(ConflictCode, "injected conflict")
	}

	if base.NextSequenceNumber != t.current.NextSequenceNumber || len(base.Refs) != len(t.current.Refs) {
		return richerrors.Newc(ConflictCode, "base metadata is stale")
	}
	for name, ref := range base.Refs {
		if cur, ok := t.current.Refs[name]; !ok || cur != ref {
			return richerrors.Newc(ConflictCode, "base metadata is stale")
		}
	}

	t.current = updated.Clone()
	return nil
}

func (t *InMemory) MetadataFileLocation(name string) string {
	return fmt.Sprintf("%s/metadata/%s", t.basePath, name)
}

func (t *InMemory) NewSnapshotID() int64 {
	return idgen.NewSnapshotID()
}

func (t *InMemory) RequireStrictCleanup() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.strictCleanup
}
