// Package model holds the data types shared by every stage of the
// snapshot producer: table metadata, manifests, and snapshots. These
// mirror the teacher's server/metadata/iceberg.ManifestFile/Snapshot
// shapes but are attributed more precisely (owning snapshot id,
// sequence numbers, per-partition summaries) per the producer spec.
package model

import "fmt"

// RefKind distinguishes a mutable branch from an immutable tag.
type RefKind string

const (
	RefBranch RefKind = "branch"
	RefTag    RefKind = "tag"
)

// MainBranch is the conventional default branch name.
const MainBranch = "main"

// SnapshotRef points a named ref at a snapshot id.
type SnapshotRef struct {
	SnapshotID int64
	Kind       RefKind
}

// TableMetadata is the producer's immutable view of table state for one
// commit attempt. A concrete TableOperations implementation owns the
// durable copy; the producer only ever reads this snapshot of it.
type TableMetadata struct {
	FormatVersion       int
	UUID                string
	NextSequenceNumber  int64
	NextRowIDValue      int64
	CurrentSchemaID     int
	Refs                map[string]SnapshotRef
	Snapshots           map[int64]*Snapshot
	Properties          map[string]string
}

// NextSequenceNumberValue returns the sequence number the next snapshot
// committed against this metadata would receive.
func (m *TableMetadata) NextSequenceNumberValue() int64 {
	return m.NextSequenceNumber + 1
}

// NextRowID returns the next unassigned row id (format >= 3 only).
func (m *TableMetadata) NextRowID() int64 {
	return m.NextRowIDValue
}

// Ref looks up a named ref, returning (ref, true) if present.
func (m *TableMetadata) Ref(name string) (SnapshotRef, bool) {
	r, ok := m.Refs[name]
	return r, ok
}

// SnapshotByID returns a snapshot by id, or nil if absent.
func (m *TableMetadata) SnapshotByID(id int64) *Snapshot {
	return m.Snapshots[id]
}

// SnapshotExists reports whether id is already present in metadata.
func (m *TableMetadata) SnapshotExists(id int64) bool {
	_, ok := m.Snapshots[id]
	return ok
}

// Clone makes a deep-enough copy for a producer to mutate locally
// without affecting the base metadata held by TableOperations.
func (m *TableMetadata) Clone() *TableMetadata {
	clone := &TableMetadata{
		FormatVersion:      m.FormatVersion,
		UUID:               m.UUID,
		NextSequenceNumber: m.NextSequenceNumber,
		NextRowIDValue:     m.NextRowIDValue,
		CurrentSchemaID:    m.CurrentSchemaID,
		Refs:               make(map[string]SnapshotRef, len(m.Refs)),
		Snapshots:          make(map[int64]*Snapshot, len(m.Snapshots)),
		Properties:         make(map[string]string, len(m.Properties)),
	}
	for k, v := range m.Refs {
		clone.Refs[k] = v
	}
	for k, v := range m.Snapshots {
		clone.Snapshots[k] = v
	}
	for k, v := range m.Properties {
		clone.Properties[k] = v
	}
	return clone
}

// FileContent distinguishes data files from the two delete file kinds.
type FileContent int

const (
	ContentData FileContent = iota
	ContentPositionDeletes
	ContentEqualityDeletes
)

// EntryStatus is the per-row status of a manifest entry.
type EntryStatus int

const (
	StatusExisting EntryStatus = iota
	StatusAdded
	StatusDeleted
)

// PartitionSpec describes how data files are partitioned. Only the id
// and field count are load-bearing for the producer; full transform
// semantics are a schema-evolution concern and out of scope.
type PartitionSpec struct {
	ID     int
	Fields []PartitionField
}

// PartitionField is one partition column.
type PartitionField struct {
	SourceID int
	Name     string
	Transform string
}

// PendingFile is a data or delete file staged by a producer, not yet
// written into a manifest.
type PendingFile struct {
	Path            string
	FileFormat      string
	Content         FileContent
	PartitionValues map[string]string
	RecordCount     int64
	FileSizeInBytes int64
	SequenceNumber  *int64
}

// ManifestEntry is one row of a manifest file.
type ManifestEntry struct {
	Status             EntryStatus
	SnapshotID         int64
	DataSequenceNumber int64
	FileSequenceNumber int64
	File               PendingFile
}

// PartitionFieldSummary aggregates bounds and null/NaN flags for one
// partition field of one manifest; the enricher emits one per partition
// field name, in order of first appearance among the entries.
type PartitionFieldSummary struct {
	ContainsNull bool
	ContainsNaN  bool
	LowerBound   []byte
	UpperBound   []byte
}

// ManifestFile is a completed manifest, possibly not yet attributed to
// an owning snapshot (SnapshotID nil until the enricher runs).
type ManifestFile struct {
	Path              string
	Length            int64
	PartitionSpecID   int
	Content           FileContent
	SequenceNumber    int64
	MinSequenceNumber int64
	SnapshotID        *int64
	Partitions        []PartitionFieldSummary
	AddedFilesCount   int
	ExistingFilesCount int
	DeletedFilesCount int
	AddedRowsCount    int64
	ExistingRowsCount int64
	DeletedRowsCount  int64
}

// Key identifies a ManifestFile for cache/memoization purposes.
func (mf ManifestFile) Key() string {
	return fmt.Sprintf("%s:%d", mf.Path, mf.Length)
}

// IsAttributed reports whether an owning snapshot id has been assigned.
func (mf ManifestFile) IsAttributed() bool {
	return mf.SnapshotID != nil
}

// SummaryDelta is the producer-declared delta for one commit, prior to
// aggregation with the previous snapshot's running totals.
type SummaryDelta struct {
	Operation string
	Values    map[string]string
}

// Get returns a value from the delta, or "" if absent.
func (d SummaryDelta) Get(key string) string {
	return d.Values[key]
}

// Snapshot is a candidate or durable table snapshot.
type Snapshot struct {
	SequenceNumber   int64
	SnapshotID       int64
	ParentSnapshotID *int64
	TimestampMs      int64
	Operation        string
	Summary          map[string]string
	SchemaID         int
	ManifestListPath string
	Manifests        []ManifestFile
	NextRowID        *int64
	AssignedRows     *int64
}
