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

func writeManifest(t *testing.T, entries []model.ManifestEntry) (model.ManifestFile, iofs.FileIO) {
	t.Helper()
	fileio := iofs.NewLocal()
	pathMgr := paths.NewLocalManager(t.TempDir())
	indexes := NewIndexAllocator()
	rowIDs := NewRowIDAllocator(0)
	w := NewRollingWriter(context.Background(), fileio, pathMgr, []string{"ns"}, "events", "commit-1",
		model.ContentData, 0, 8<<20, indexes, rowIDs, rlog.New("test"))

	for _, e := range entries {
		require.NoError(t, w.Add(e))
	}
	completed, err := w.Close()
	require.NoError(t, err)
	require.Len(t, completed, 1)
	return completed[0], fileio
}

func TestEnricher_FreshManifestGetsNoStrongOwner(t *testing.T) {
	mf, fileio := writeManifest(t, []model.ManifestEntry{
		{Status: model.StatusAdded, File: model.PendingFile{Path: "a", RecordCount: 1, PartitionValues: map[string]string{"day": "2026-07-30"}}},
	})

	e := NewEnricher(fileio)
	enriched, err := e.Enrich(context.Background(), mf)
	require.NoError(t, err)
	require.False(t, enriched.IsAttributed(), "a freshly-written manifest's entries carry no real snapshot id yet")
}

func TestEnricher_ExistingEntryOwnerIsInferred(t *testing.T) {
	mf, fileio := writeManifest(t, []model.ManifestEntry{
		{Status: model.StatusExisting, SnapshotID: 42, File: model.PendingFile{Path: "a", RecordCount: 1}},
		{Status: model.StatusExisting, SnapshotID: 7, File: model.PendingFile{Path: "b", RecordCount: 1}},
	})

	e := NewEnricher(fileio)
	enriched, err := e.Enrich(context.Background(), mf)
	require.NoError(t, err)
	require.True(t, enriched.IsAttributed())
	require.Equal(t, int64(42), *enriched.SnapshotID, "falls back to the max existing-entry owner")
}

func TestEnricher_PartitionBoundsAndNulls(t *testing.T) {
	mf, fileio := writeManifest(t, []model.ManifestEntry{
		{Status: model.StatusAdded, File: model.PendingFile{Path: "a", RecordCount: 1, PartitionValues: map[string]string{"day": "2026-01-01"}}},
		{Status: model.StatusAdded, File: model.PendingFile{Path: "b", RecordCount: 1, PartitionValues: map[string]string{"day": "2026-06-15"}}},
		{Status: model.StatusAdded, File: model.PendingFile{Path: "c", RecordCount: 1, PartitionValues: map[string]string{"day": ""}}},
	})

	e := NewEnricher(fileio)
	enriched, err := e.Enrich(context.Background(), mf)
	require.NoError(t, err)
	require.Len(t, enriched.Partitions, 1)
	p := enriched.Partitions[0]
	require.True(t, p.ContainsNull)
	require.Equal(t, "2026-01-01", string(p.LowerBound))
	require.Equal(t, "2026-06-15", string(p.UpperBound))
}

func TestEnricher_AlreadyAttributedIsReturnedUnchanged(t *testing.T) {
	id := int64(99)
	mf := model.ManifestFile{Path: "whatever", SnapshotID: &id}
	e := NewEnricher(iofs.NewLocal())

	enriched, err := e.Enrich(context.Background(), mf)
	require.NoError(t, err)
	require.Equal(t, mf, enriched)
}

func TestEnricher_CachesBySecondCall(t *testing.T) {
	mf, fileio := writeManifest(t, []model.ManifestEntry{
		{Status: model.StatusExisting, SnapshotID: 5, File: model.PendingFile{Path: "a", RecordCount: 1}},
	})

	e := NewEnricher(fileio)
	first, err := e.Enrich(context.Background(), mf)
	require.NoError(t, err)

	// Delete the underlying file: a cache hit must not need to reopen it.
	require.NoError(t, fileio.Delete(context.Background(), mf.Path))

	second, err := e.Enrich(context.Background(), mf)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestEnricher_SequenceNumberBounds(t *testing.T) {
	fileio := iofs.NewLocal()
	pathMgr := paths.NewLocalManager(t.TempDir())
	indexes := NewIndexAllocator()
	rowIDs := NewRowIDAllocator(0)
	w := NewRollingWriter(context.Background(), fileio, pathMgr, []string{"ns"}, "events", "commit-1",
		model.ContentData, 0, 8<<20, indexes, rowIDs, rlog.New("test"))

	require.NoError(t, w.Add(model.ManifestEntry{Status: model.StatusExisting, SnapshotID: 1, DataSequenceNumber: 3, File: model.PendingFile{Path: "a", RecordCount: 1}}))
	require.NoError(t, w.Add(model.ManifestEntry{Status: model.StatusExisting, SnapshotID: 1, DataSequenceNumber: 7, File: model.PendingFile{Path: "b", RecordCount: 1}}))
	completed, err := w.Close()
	require.NoError(t, err)

	e := NewEnricher(fileio)
	enriched, err := e.Enrich(context.Background(), completed[0])
	require.NoError(t, err)
	require.Equal(t, int64(3), enriched.MinSequenceNumber)
	require.Equal(t, int64(7), enriched.SequenceNumber)
}
