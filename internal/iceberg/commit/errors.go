package commit

import "github.com/TFMV/icesnap/internal/richerrors"

// Error codes for the commit driver and assembler (spec.md §7).
var (
	// ErrConflict marks an optimistic-concurrency loss; the driver
	// retries it, up to the configured retry policy.
	ErrConflict = richerrors.MustNewCode("iceberg.commit.conflict")

	// ErrStateUnknown marks a commit whose outcome on the remote store
	// could not be determined. Never retried, never cleaned up —
	// surfaced verbatim for out-of-band reconciliation.
	ErrStateUnknown = richerrors.MustNewCode("iceberg.commit.state_unknown")

	// ErrCleanupFailed tags a cleanup-phase failure. Always logged and
	// swallowed; never propagated to the caller.
	ErrCleanupFailed = richerrors.MustNewCode("iceberg.commit.cleanup_failed")

	// ErrManifestListIOFailed tags a failure to open or write the
	// attempt's manifest-list file during assembly. Unlike
	// ErrCleanupFailed, this is a terminal, propagated error — the
	// attempt produced no usable snapshot, so there is nothing to
	// commit and the caller must see the failure.
	ErrManifestListIOFailed = richerrors.MustNewCode("iceberg.commit.manifest_list_io_failed")

	// ErrValidationFailed marks a producer Validate failure or the
	// REPLACE added<=deleted invariant violation. Terminal.
	ErrValidationFailed = richerrors.MustNewCode("iceberg.commit.validation_failed")

	// ErrTagTarget marks an attempt to commit against a name that
	// resolves to an immutable tag (spec.md §8 universal 6). Terminal,
	// rejected before any I/O.
	ErrTagTarget = richerrors.MustNewCode("iceberg.commit.tag_target")
)

// IsRetryable reports whether err should trigger another commit
// attempt. Only the Conflict taxonomy kind is retried (spec.md §4.6,
// §7); every other error — including ErrStateUnknown — terminates the
// loop immediately.
func IsRetryable(err error) bool {
	return richerrors.HasCode(err, ErrConflict)
}
