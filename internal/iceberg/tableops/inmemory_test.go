package tableops

import (
	"context"
	"testing"

	"github.com/TFMV/icesnap/internal/model"
	"github.com/TFMV/icesnap/internal/richerrors"
	"github.com/stretchr/testify/require"
)

func TestInMemory_CommitSucceedsWhenBaseMatchesCurrent(t *testing.T) {
	ops := NewInMemory("/tmp/table", 2)
	base, err := ops.Current(context.Background())
	require.NoError(t, err)

	updated := base.Clone()
	updated.Refs[model.MainBranch] = model.SnapshotRef{SnapshotID: 1, Kind: model.RefBranch}

	require.NoError(t, ops.Commit(context.Background(), base, updated))

	current, err := ops.Current(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), current.Refs[model.MainBranch].SnapshotID)
}

func TestInMemory_CommitFailsOnStaleBase(t *testing.T) {
	ops := NewInMemory("/tmp/table", 2)
	stale, err := ops.Current(context.Background())
	require.NoError(t, err)

	fresh, err := ops.Current(context.Background())
	require.NoError(t, err)
	fresh.Refs[model.MainBranch] = model.SnapshotRef{SnapshotID: 1, Kind: model.RefBranch}
	require.NoError(t, ops.Commit(context.Background(), stale, fresh))

	// stale no longer matches current; a second commit against it must conflict.
	again := stale.Clone()
	again.Refs[model.MainBranch] = model.SnapshotRef{SnapshotID: 2, Kind: model.RefBranch}
	err = ops.Commit(context.Background(), stale, again)
	require.Error(t, err)
	require.True(t, richerrors.HasCode(err, ConflictCode))
}

func TestInMemory_InjectConflictsForcesNFailures(t *testing.T) {
	ops := NewInMemory("/tmp/table", 2)
	ops.InjectConflicts(2)

	base, err := ops.Current(context.Background())
	require.NoError(t, err)

	require.Error(t, ops.Commit(context.Background(), base, base.Clone()))
	require.Error(t, ops.Commit(context.Background(), base, base.Clone()))
	require.NoError(t, ops.Commit(context.Background(), base, base.Clone()))
}

func TestInMemory_NewSnapshotIDIsUnique(t *testing.T) {
	ops := NewInMemory("/tmp/table", 2)
	seen := map[int64]struct{}{}
	for i := 0; i < 20; i++ {
		id := ops.NewSnapshotID()
		_, dup := seen[id]
		require.False(t, dup)
		seen[id] = struct{}{}
	}
}

func TestInMemory_RequireStrictCleanupDefaultsFalse(t *testing.T) {
	ops := NewInMemory("/tmp/table", 2)
	require.False(t, ops.RequireStrictCleanup())
	ops.SetStrictCleanup(true)
	require.True(t, ops.RequireStrictCleanup())
}

func TestInMemory_MetadataFileLocation(t *testing.T) {
	ops := NewInMemory("/tmp/table", 2)
	require.Equal(t, "/tmp/table/metadata/v1.metadata.json", ops.MetadataFileLocation("v1.metadata.json"))
}
