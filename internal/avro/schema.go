// Package avro provides the real Avro object-container-file (OCF)
// encoding for manifests and manifest-lists, using hamba/avro/v2. This
// replaces the teacher's server/metadata/iceberg.AvroCodec, which
// wrote JSON payloads behind a hand-rolled, fixed-size "Avro header"
// placeholder (see avro_codec.go/createAvroHeader in the teacher
// source) — here the bytes on disk are genuine Avro OCF streams with
// sync markers, matching spec.md §3/§6.
package avro

import "github.com/hamba/avro/v2"

// ManifestEntrySchemaJSON is the Avro schema for one manifest row,
// grounded on the teacher's avro_schemas.ManifestEntrySchema constant
// but trimmed to the fields the producer actually populates.
const ManifestEntrySchemaJSON = `{
	"type": "record",
	"name": "manifest_entry",
	"namespace": "icesnap",
	"fields": [
		{"name": "status", "type": "int"},
		{"name": "snapshot_id", "type": "long"},
		{"name": "data_sequence_number", "type": "long"},
		{"name": "file_sequence_number", "type": "long"},
		{"name": "data_file", "type": {
			"type": "record",
			"name": "data_file",
			"fields": [
				{"name": "content", "type": "int"},
				{"name": "file_path", "type": "string"},
				{"name": "file_format", "type": "string"},
				{"name": "partition", "type": {"type": "map", "values": "string"}},
				{"name": "record_count", "type": "long"},
				{"name": "file_size_in_bytes", "type": "long"}
			]
		}}
	]
}`

// ManifestListEntrySchemaJSON is the Avro schema for one row of a
// manifest-list file, grounded on the teacher's
// avro_schemas.SnapshotSchema's nested "manifest_file_info" record.
const ManifestListEntrySchemaJSON = `{
	"type": "record",
	"name": "manifest_file",
	"namespace": "icesnap",
	"fields": [
		{"name": "manifest_path", "type": "string"},
		{"name": "manifest_length", "type": "long"},
		{"name": "partition_spec_id", "type": "int"},
		{"name": "content", "type": "int"},
		{"name": "sequence_number", "type": "long"},
		{"name": "min_sequence_number", "type": "long"},
		{"name": "added_snapshot_id", "type": "long"},
		{"name": "added_files_count", "type": "int"},
		{"name": "existing_files_count", "type": "int"},
		{"name": "deleted_files_count", "type": "int"},
		{"name": "added_rows_count", "type": "long"},
		{"name": "existing_rows_count", "type": "long"},
		{"name": "deleted_rows_count", "type": "long"}
	]
}`

var (
	// ManifestEntrySchema is the parsed manifest-entry schema, built
	// once at package init like the teacher's SchemaRegistry.
	ManifestEntrySchema = avro.MustParse(ManifestEntrySchemaJSON)
	// ManifestListEntrySchema is the parsed manifest-list-entry schema.
	ManifestListEntrySchema = avro.MustParse(ManifestListEntrySchemaJSON)
)
