package avro

import (
	"fmt"
	"io"

	"github.com/TFMV/icesnap/internal/model"
	"github.com/hamba/avro/v2/ocf"
)

// countingWriter tracks bytes written so the rolling manifest writer
// can decide when to roll onto a fresh file without stat-ing the file
// back from disk.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// ManifestEncoder writes manifest entries to an Avro OCF stream.
type ManifestEncoder struct {
	cw  *countingWriter
	enc *ocf.Encoder
}

// NewManifestEncoder opens a manifest encoder over w.
func NewManifestEncoder(w io.Writer) (*ManifestEncoder, error) {
	cw := &countingWriter{w: w}
	enc, err := ocf.NewEncoder(ManifestEntrySchemaJSON, cw)
	if err != nil {
		return nil, fmt.Errorf("open manifest encoder: %w", err)
	}
	return &ManifestEncoder{cw: cw, enc: enc}, nil
}

// Write appends one manifest entry.
func (e *ManifestEncoder) Write(entry model.ManifestEntry) error {
	rec := manifestEntryRecord{
		Status:             int32(entry.Status),
		SnapshotID:         entry.SnapshotID,
		DataSequenceNumber: entry.DataSequenceNumber,
		FileSequenceNumber: entry.FileSequenceNumber,
		DataFile: dataFileRecord{
			Content:         int32(entry.File.Content),
			FilePath:        entry.File.Path,
			FileFormat:      entry.File.FileFormat,
			Partition:       entry.File.PartitionValues,
			RecordCount:     entry.File.RecordCount,
			FileSizeInBytes: entry.File.FileSizeInBytes,
		},
	}
	return e.enc.Encode(rec)
}

// BytesWritten returns the number of bytes flushed to the underlying
// writer so far — the signal the rolling writer uses against
// MANIFEST_TARGET_SIZE_BYTES.
func (e *ManifestEncoder) BytesWritten() int64 { return e.cw.n }

// Close flushes and closes the OCF stream.
func (e *ManifestEncoder) Close() error { return e.enc.Close() }

// ManifestDecoder reads manifest entries back from an Avro OCF stream.
type ManifestDecoder struct {
	dec *ocf.Decoder
}

// NewManifestDecoder opens a manifest decoder over r.
func NewManifestDecoder(r io.Reader) (*ManifestDecoder, error) {
	dec, err := ocf.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("open manifest decoder: %w", err)
	}
	return &ManifestDecoder{dec: dec}, nil
}

// Next reads the next entry, returning ok=false at end of stream.
func (d *ManifestDecoder) Next() (model.ManifestEntry, bool, error) {
	if !d.dec.HasNext() {
		return model.ManifestEntry{}, false, d.dec.Error()
	}
	var rec manifestEntryRecord
	if err := d.dec.Decode(&rec); err != nil {
		return model.ManifestEntry{}, false, err
	}
	entry := model.ManifestEntry{
		Status:             model.EntryStatus(rec.Status),
		SnapshotID:         rec.SnapshotID,
		DataSequenceNumber: rec.DataSequenceNumber,
		FileSequenceNumber: rec.FileSequenceNumber,
		File: model.PendingFile{
			Path:            rec.DataFile.FilePath,
			FileFormat:      rec.DataFile.FileFormat,
			Content:         model.FileContent(rec.DataFile.Content),
			PartitionValues: rec.DataFile.Partition,
			RecordCount:     rec.DataFile.RecordCount,
			FileSizeInBytes: rec.DataFile.FileSizeInBytes,
		},
	}
	return entry, true, nil
}

// ManifestListEncoder writes ManifestFile rows to an Avro OCF stream.
type ManifestListEncoder struct {
	enc *ocf.Encoder
}

// NewManifestListEncoder opens a manifest-list encoder over w.
func NewManifestListEncoder(w io.Writer) (*ManifestListEncoder, error) {
	enc, err := ocf.NewEncoder(ManifestListEntrySchemaJSON, w)
	if err != nil {
		return nil, fmt.Errorf("open manifest-list encoder: %w", err)
	}
	return &ManifestListEncoder{enc: enc}, nil
}

// Write appends one manifest-file row.
func (e *ManifestListEncoder) Write(mf model.ManifestFile) error {
	var snapshotID int64
	if mf.SnapshotID != nil {
		snapshotID = *mf.SnapshotID
	}
	rec := manifestListEntryRecord{
		ManifestPath:       mf.Path,
		ManifestLength:     mf.Length,
		PartitionSpecID:    int32(mf.PartitionSpecID),
		Content:            int32(mf.Content),
		SequenceNumber:     mf.SequenceNumber,
		MinSequenceNumber:  mf.MinSequenceNumber,
		AddedSnapshotID:    snapshotID,
		AddedFilesCount:    int32(mf.AddedFilesCount),
		ExistingFilesCount: int32(mf.ExistingFilesCount),
		DeletedFilesCount:  int32(mf.DeletedFilesCount),
		AddedRowsCount:     mf.AddedRowsCount,
		ExistingRowsCount:  mf.ExistingRowsCount,
		DeletedRowsCount:   mf.DeletedRowsCount,
	}
	return e.enc.Encode(rec)
}

// Close flushes and closes the OCF stream.
func (e *ManifestListEncoder) Close() error { return e.enc.Close() }
