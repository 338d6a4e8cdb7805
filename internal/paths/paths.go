// Package paths resolves the on-disk locations the snapshot producer
// writes to: manifests, manifest-lists, and table metadata. Grounded
// on the teacher's server/paths.PathManager/Manager, trimmed to the
// subset this module needs (no catalog/Parquet/namespace paths, which
// belong to the out-of-scope storage and query layers).
package paths

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Manager resolves table-scoped paths under a single base directory.
type Manager interface {
	// TableManifestDir is where rolled manifest files for a table live.
	TableManifestDir(namespace []string, tableName string) string
	// TableMetadataDir is where manifest-list and metadata json files live.
	TableMetadataDir(namespace []string, tableName string) string
	// ManifestPath builds the path for one rolled manifest file.
	ManifestPath(namespace []string, tableName, commitUUID string, index int) string
	// ManifestListPath builds the path for one manifest-list file.
	ManifestListPath(namespace []string, tableName string, snapshotID int64, attempt int, commitUUID string) string
}

// LocalManager is a filesystem-rooted Manager, grounded on the
// teacher's server/paths.Manager (basePath + filepath.Join helpers).
type LocalManager struct {
	basePath string
}

// NewLocalManager roots a LocalManager at basePath.
func NewLocalManager(basePath string) *LocalManager {
	return &LocalManager{basePath: basePath}
}

func (m *LocalManager) tableDir(namespace []string, tableName string) string {
	ns := strings.Join(namespace, "/")
	return filepath.Join(m.basePath, "tables", ns, tableName)
}

// TableManifestDir returns "<base>/tables/<ns>/<table>/manifests".
func (m *LocalManager) TableManifestDir(namespace []string, tableName string) string {
	return filepath.Join(m.tableDir(namespace, tableName), "manifests")
}

// TableMetadataDir returns "<base>/tables/<ns>/<table>/metadata".
func (m *LocalManager) TableMetadataDir(namespace []string, tableName string) string {
	return filepath.Join(m.tableDir(namespace, tableName), "metadata")
}

// ManifestPath returns "<manifests>/<commitUUID>-m<index>.avro", matching
// spec.md §4.1's naming convention.
func (m *LocalManager) ManifestPath(namespace []string, tableName, commitUUID string, index int) string {
	name := fmt.Sprintf("%s-m%d.avro", commitUUID, index)
	return filepath.Join(m.TableManifestDir(namespace, tableName), name)
}

// ManifestListPath returns "<metadata>/snap-<id>-<attempt>-<uuid>.avro",
// matching spec.md §3/§6's naming convention.
func (m *LocalManager) ManifestListPath(namespace []string, tableName string, snapshotID int64, attempt int, commitUUID string) string {
	name := fmt.Sprintf("snap-%d-%d-%s.avro", snapshotID, attempt, commitUUID)
	return filepath.Join(m.TableMetadataDir(namespace, tableName), name)
}
