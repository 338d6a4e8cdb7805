package avro

// dataFileRecord is the on-disk shape of a data/delete file entry,
// tagged for hamba/avro's reflection-based (un)marshaling.
type dataFileRecord struct {
	Content         int32             `avro:"content"`
	FilePath        string            `avro:"file_path"`
	FileFormat      string            `avro:"file_format"`
	Partition       map[string]string `avro:"partition"`
	RecordCount     int64             `avro:"record_count"`
	FileSizeInBytes int64             `avro:"file_size_in_bytes"`
}

// manifestEntryRecord is the on-disk shape of one manifest row.
type manifestEntryRecord struct {
	Status             int32          `avro:"status"`
	SnapshotID         int64          `avro:"snapshot_id"`
	DataSequenceNumber int64          `avro:"data_sequence_number"`
	FileSequenceNumber int64          `avro:"file_sequence_number"`
	DataFile           dataFileRecord `avro:"data_file"`
}

// manifestListEntryRecord is the on-disk shape of one manifest-list row.
type manifestListEntryRecord struct {
	ManifestPath       string `avro:"manifest_path"`
	ManifestLength     int64  `avro:"manifest_length"`
	PartitionSpecID    int32  `avro:"partition_spec_id"`
	Content            int32  `avro:"content"`
	SequenceNumber     int64  `avro:"sequence_number"`
	MinSequenceNumber  int64  `avro:"min_sequence_number"`
	AddedSnapshotID    int64  `avro:"added_snapshot_id"`
	AddedFilesCount    int32  `avro:"added_files_count"`
	ExistingFilesCount int32  `avro:"existing_files_count"`
	DeletedFilesCount  int32  `avro:"deleted_files_count"`
	AddedRowsCount     int64  `avro:"added_rows_count"`
	ExistingRowsCount  int64  `avro:"existing_rows_count"`
	DeletedRowsCount   int64  `avro:"deleted_rows_count"`
}
