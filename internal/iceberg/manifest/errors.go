package manifest

import "github.com/TFMV/icesnap/internal/richerrors"

// Error codes for this package. ManifestIOFailed corresponds to the
// *IO* error taxonomy kind in spec.md §7.
var (
	ManifestIOFailed      = richerrors.MustNewCode("iceberg.manifest.io_failed")
	ManifestEnrichFailed  = richerrors.MustNewCode("iceberg.manifest.enrich_failed")
)
