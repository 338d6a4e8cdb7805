package manifest

import (
	"context"
	"testing"

	"github.com/TFMV/icesnap/internal/iceberg/iofs"
	"github.com/TFMV/icesnap/internal/model"
	"github.com/TFMV/icesnap/internal/paths"
	"github.com/TFMV/icesnap/internal/rlog"
	"github.com/stretchr/testify/require"
)

func newTestWriter(t *testing.T, targetSize int64, indexes *IndexAllocator, rowIDs *RowIDAllocator) (*RollingWriter, iofs.FileIO, paths.Manager) {
	t.Helper()
	fileio := iofs.NewLocal()
	pathMgr := paths.NewLocalManager(t.TempDir())
	w := NewRollingWriter(context.Background(), fileio, pathMgr, []string{"ns"}, "events", "commit-1",
		model.ContentData, 0, targetSize, indexes, rowIDs, rlog.New("test"))
	return w, fileio, pathMgr
}

func TestRollingWriter_SingleFileNoRoll(t *testing.T) {
	indexes := NewIndexAllocator()
	rowIDs := NewRowIDAllocator(100)
	w, _, _ := newTestWriter(t, 8<<20, indexes, rowIDs)

	err := w.Add(model.ManifestEntry{
		Status: model.StatusAdded,
		File:   model.PendingFile{Path: "data/a.parquet", RecordCount: 10, FileSizeInBytes: 1024},
	})
	require.NoError(t, err)

	completed, err := w.Close()
	require.NoError(t, err)
	require.Len(t, completed, 1)
	require.Equal(t, 1, completed[0].AddedFilesCount)
	require.Equal(t, int64(10), completed[0].AddedRowsCount)
	require.Equal(t, int64(110), rowIDs.Value())
}

func TestRollingWriter_RollsOnTargetSize(t *testing.T) {
	indexes := NewIndexAllocator()
	rowIDs := NewRowIDAllocator(0)
	// A near-zero target forces every Add to roll onto a fresh file.
	w, _, _ := newTestWriter(t, 1, indexes, rowIDs)

	for i := 0; i < 3; i++ {
		err := w.Add(model.ManifestEntry{
			Status: model.StatusAdded,
			File:   model.PendingFile{Path: "data/a.parquet", RecordCount: 1, FileSizeInBytes: 100},
		})
		require.NoError(t, err)
	}

	completed, err := w.Close()
	require.NoError(t, err)
	require.Len(t, completed, 3, "every Add should have rolled onto its own file")

	paths := map[string]struct{}{}
	for _, mf := range completed {
		paths[mf.Path] = struct{}{}
	}
	require.Len(t, paths, 3, "rolled manifest paths must be unique")
}

func TestIndexAllocator_HandsOutUniqueIndexes(t *testing.T) {
	indexes := NewIndexAllocator()
	seen := map[int]struct{}{}
	for i := 0; i < 50; i++ {
		idx := indexes.allocate()
		_, dup := seen[idx]
		require.False(t, dup, "allocator handed out a duplicate index")
		seen[idx] = struct{}{}
	}
}

func TestRowIDAllocator_AdvancesMonotonically(t *testing.T) {
	rowIDs := NewRowIDAllocator(1000)
	require.Equal(t, int64(1010), rowIDs.advance(10))
	require.Equal(t, int64(1015), rowIDs.advance(5))
	require.Equal(t, int64(1015), rowIDs.Value())
}

func TestRollingWriter_SharedAllocatorsAcrossTwoGroupWriters(t *testing.T) {
	indexes := NewIndexAllocator()
	rowIDs := NewRowIDAllocator(0)
	fileio := iofs.NewLocal()
	pathMgr := paths.NewLocalManager(t.TempDir())
	logger := rlog.New("test")

	w1 := NewRollingWriter(context.Background(), fileio, pathMgr, []string{"ns"}, "events", "commit-1",
		model.ContentData, 0, 8<<20, indexes, rowIDs, logger)
	w2 := NewRollingWriter(context.Background(), fileio, pathMgr, []string{"ns"}, "events", "commit-1",
		model.ContentData, 0, 8<<20, indexes, rowIDs, logger)

	require.NoError(t, w1.Add(model.ManifestEntry{Status: model.StatusAdded, File: model.PendingFile{Path: "a", RecordCount: 5}}))
	require.NoError(t, w2.Add(model.ManifestEntry{Status: model.StatusAdded, File: model.PendingFile{Path: "b", RecordCount: 7}}))

	c1, err := w1.Close()
	require.NoError(t, err)
	c2, err := w2.Close()
	require.NoError(t, err)

	require.NotEqual(t, c1[0].Path, c2[0].Path, "two group writers in one attempt must not collide on a filename")
	require.Equal(t, int64(12), rowIDs.Value(), "row-id watermark must be shared, not reset per group")
}
