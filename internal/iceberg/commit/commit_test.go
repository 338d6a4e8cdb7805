package commit_test

import (
	"context"
	"sync"
	"testing"

	"github.com/TFMV/icesnap/internal/events"
	"github.com/TFMV/icesnap/internal/iceberg/commit"
	"github.com/TFMV/icesnap/internal/iceberg/iofs"
	"github.com/TFMV/icesnap/internal/iceberg/producer"
	"github.com/TFMV/icesnap/internal/iceberg/tableops"
	"github.com/TFMV/icesnap/internal/model"
	"github.com/TFMV/icesnap/internal/paths"
	"github.com/TFMV/icesnap/internal/rlog"
	"github.com/TFMV/icesnap/internal/workerpool"
	"github.com/stretchr/testify/require"
)

func newTestDriver(t *testing.T) (*commit.Driver, *tableops.InMemory, iofs.FileIO, paths.Manager, *workerpool.Pool) {
	t.Helper()
	fileio := iofs.NewLocal()
	pathMgr := paths.NewLocalManager(t.TempDir())
	pool := workerpool.New(2, rlog.New("test"))
	ops := tableops.NewInMemory(t.TempDir(), 2)
	logger := rlog.New("test")
	assembler := commit.NewAssembler(fileio, pathMgr, logger)
	driver := commit.NewDriver(assembler, ops, fileio, nil, nil, map[string]string{"engine-name": "icesnap"}, logger)
	return driver, ops, fileio, pathMgr, pool
}

// recordingFileIO wraps a real FileIO and records every path passed to
// Delete, so a test can assert exactly which manifest-lists the driver
// swept without needing to stat the filesystem back.
type recordingFileIO struct {
	iofs.FileIO
	mu      sync.Mutex
	deleted []string
}

func (r *recordingFileIO) Delete(ctx context.Context, path string) error {
	r.mu.Lock()
	r.deleted = append(r.deleted, path)
	r.mu.Unlock()
	return r.FileIO.Delete(ctx, path)
}

func TestDriver_AppendCommitSucceeds(t *testing.T) {
	driver, _, fileio, pathMgr, pool := newTestDriver(t)
	p := producer.NewAppendProducer(fileio, pathMgr, pool, []string{"ns"}, "events", "commit-1", rlog.New("test"))
	p.AddFile(model.PendingFile{Path: "a.parquet", RecordCount: 10, FileSizeInBytes: 100})

	result, err := driver.Commit(context.Background(), p, []string{"ns"}, "events", model.MainBranch, false)
	require.NoError(t, err)
	require.Equal(t, 1, result.Attempts)
	require.Equal(t, "append", result.Snapshot.Operation)
}

func TestDriver_RetriesThenSucceedsOnConflict(t *testing.T) {
	driver, ops, fileio, pathMgr, pool := newTestDriver(t)
	ops.InjectConflicts(2)

	p := producer.NewAppendProducer(fileio, pathMgr, pool, []string{"ns"}, "events", "commit-1", rlog.New("test"))
	p.AddFile(model.PendingFile{Path: "a.parquet", RecordCount: 10, FileSizeInBytes: 100})

	result, err := driver.Commit(context.Background(), p, []string{"ns"}, "events", model.MainBranch, false)
	require.NoError(t, err)
	require.Equal(t, 3, result.Attempts, "two injected conflicts then a successful third attempt")
}

func TestDriver_RetriesThenSucceedsOnConflict_OrphanedManifestListsAreDeleted(t *testing.T) {
	recorder := &recordingFileIO{FileIO: iofs.NewLocal()}
	pathMgr := paths.NewLocalManager(t.TempDir())
	pool := workerpool.New(2, rlog.New("test"))
	ops := tableops.NewInMemory(t.TempDir(), 2)
	ops.InjectConflicts(2)
	logger := rlog.New("test")
	assembler := commit.NewAssembler(recorder, pathMgr, logger)
	driver := commit.NewDriver(assembler, ops, recorder, nil, nil, nil, logger)

	p := producer.NewAppendProducer(recorder, pathMgr, pool, []string{"ns"}, "events", "commit-1", rlog.New("test"))
	p.AddFile(model.PendingFile{Path: "a.parquet", RecordCount: 10, FileSizeInBytes: 100})

	result, err := driver.Commit(context.Background(), p, []string{"ns"}, "events", model.MainBranch, false)
	require.NoError(t, err)
	require.Equal(t, 3, result.Attempts)

	require.Len(t, recorder.deleted, 2, "the two failed attempts' manifest-lists must be swept, the committed one kept")
	for _, path := range recorder.deleted {
		require.NotEqual(t, result.Snapshot.ManifestListPath, path, "the committed attempt's manifest-list must survive cleanup")
	}
}

func TestDriver_StateUnknownIsNeverRetriedOrCleaned(t *testing.T) {
	recorder := &recordingFileIO{FileIO: iofs.NewLocal()}
	pathMgr := paths.NewLocalManager(t.TempDir())
	pool := workerpool.New(2, rlog.New("test"))
	ops := tableops.NewInMemory(t.TempDir(), 2)
	ops.InjectStateUnknown(1)
	logger := rlog.New("test")
	assembler := commit.NewAssembler(recorder, pathMgr, logger)
	driver := commit.NewDriver(assembler, ops, recorder, nil, nil, nil, logger)

	p := producer.NewAppendProducer(recorder, pathMgr, pool, []string{"ns"}, "events", "commit-1", rlog.New("test"))
	p.AddFile(model.PendingFile{Path: "a.parquet", RecordCount: 10, FileSizeInBytes: 100})

	result, err := driver.Commit(context.Background(), p, []string{"ns"}, "events", model.MainBranch, false)
	require.Error(t, err)
	require.Nil(t, result)
	require.False(t, commit.IsRetryable(err), "a state-unknown outcome must never be retried")
	require.Empty(t, recorder.deleted, "a state-unknown outcome must never trigger manifest-list cleanup")
}

func TestDriver_CommitOnOneBranchLeavesAnotherBranchUntouched(t *testing.T) {
	driver, ops, fileio, pathMgr, pool := newTestDriver(t)

	base, err := ops.Current(context.Background())
	require.NoError(t, err)
	updated := base.Clone()
	updated.Refs["other-branch"] = model.SnapshotRef{SnapshotID: 0, Kind: model.RefBranch}
	require.NoError(t, ops.Commit(context.Background(), base, updated))

	before, err := ops.Current(context.Background())
	require.NoError(t, err)
	otherBefore := before.Refs["other-branch"]

	p := producer.NewAppendProducer(fileio, pathMgr, pool, []string{"ns"}, "events", "commit-1", rlog.New("test"))
	p.AddFile(model.PendingFile{Path: "a.parquet", RecordCount: 10, FileSizeInBytes: 100})

	_, err = driver.Commit(context.Background(), p, []string{"ns"}, "events", model.MainBranch, false)
	require.NoError(t, err)

	after, err := ops.Current(context.Background())
	require.NoError(t, err)
	require.Equal(t, otherBefore, after.Refs["other-branch"], "a commit against main must not move another branch's ref")
	require.NotEqual(t, before.Refs[model.MainBranch], after.Refs[model.MainBranch], "the targeted branch's ref must advance")
}

func TestDriver_TagTargetIsRejected(t *testing.T) {
	driver, ops, fileio, pathMgr, pool := newTestDriver(t)

	base, err := ops.Current(context.Background())
	require.NoError(t, err)
	updated := base.Clone()
	updated.Refs["release-1"] = model.SnapshotRef{SnapshotID: 0, Kind: model.RefTag}
	require.NoError(t, ops.Commit(context.Background(), base, updated))

	p := producer.NewAppendProducer(fileio, pathMgr, pool, []string{"ns"}, "events", "commit-1", rlog.New("test"))
	p.AddFile(model.PendingFile{Path: "a.parquet", RecordCount: 1, FileSizeInBytes: 1})

	_, err = driver.Commit(context.Background(), p, []string{"ns"}, "events", "release-1", false)
	require.Error(t, err)
	require.False(t, commit.IsRetryable(err))
}

func TestDriver_ReplaceInvariantViolationIsTerminal(t *testing.T) {
	driver, _, fileio, pathMgr, pool := newTestDriver(t)
	p := producer.NewReplaceProducer(fileio, pathMgr, pool, []string{"ns"}, "events", "commit-1", rlog.New("test"))
	p.AddFile(model.PendingFile{Path: "new.parquet", RecordCount: 100, FileSizeInBytes: 100})
	p.DeleteFile(model.PendingFile{Path: "old.parquet", RecordCount: 1, FileSizeInBytes: 1})

	_, err := driver.Commit(context.Background(), p, []string{"ns"}, "events", model.MainBranch, false)
	require.Error(t, err)
	require.False(t, commit.IsRetryable(err))
}

func TestDriver_RollbackRetargetsRefToExistingSnapshot(t *testing.T) {
	driver, _, fileio, pathMgr, pool := newTestDriver(t)

	p1 := producer.NewAppendProducer(fileio, pathMgr, pool, []string{"ns"}, "events", "commit-1", rlog.New("test"))
	p1.AddFile(model.PendingFile{Path: "a.parquet", RecordCount: 10, FileSizeInBytes: 100})
	first, err := driver.Commit(context.Background(), p1, []string{"ns"}, "events", model.MainBranch, false)
	require.NoError(t, err)

	p2 := producer.NewAppendProducer(fileio, pathMgr, pool, []string{"ns"}, "events", "commit-2", rlog.New("test"))
	p2.AddFile(model.PendingFile{Path: "b.parquet", RecordCount: 20, FileSizeInBytes: 200})
	_, err = driver.Commit(context.Background(), p2, []string{"ns"}, "events", model.MainBranch, false)
	require.NoError(t, err)

	rollback := producer.NewRollbackToSnapshotProducer(first.Snapshot.SnapshotID, first.Snapshot)
	result, err := driver.Commit(context.Background(), rollback, []string{"ns"}, "events", model.MainBranch, false)
	require.NoError(t, err)
	require.Equal(t, first.Snapshot.SnapshotID, result.Snapshot.SnapshotID)
}

func TestDriver_NotifiesListenersOnSuccess(t *testing.T) {
	fileio := iofs.NewLocal()
	pathMgr := paths.NewLocalManager(t.TempDir())
	pool := workerpool.New(2, rlog.New("test"))
	ops := tableops.NewInMemory(t.TempDir(), 2)
	logger := rlog.New("test")
	assembler := commit.NewAssembler(fileio, pathMgr, logger)

	var received []events.CommitReport
	listener := recordingListener{reports: &received}
	driver := commit.NewDriver(assembler, ops, fileio, nil, []events.Listener[events.CommitReport]{listener}, nil, logger)

	p := producer.NewAppendProducer(fileio, pathMgr, pool, []string{"ns"}, "events", "commit-1", rlog.New("test"))
	p.AddFile(model.PendingFile{Path: "a.parquet", RecordCount: 1, FileSizeInBytes: 1})

	_, err := driver.Commit(context.Background(), p, []string{"ns"}, "events", model.MainBranch, false)
	require.NoError(t, err)
	require.Len(t, received, 1)
	require.Equal(t, "events", received[0].TableName)
}

type recordingListener struct {
	reports *[]events.CommitReport
}

func (l recordingListener) OnEvent(ctx context.Context, report events.CommitReport) error {
	*l.reports = append(*l.reports, report)
	return nil
}
