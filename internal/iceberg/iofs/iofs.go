// Package iofs defines the narrow file I/O seam the snapshot producer
// consumes. The pluggable object store itself is out of scope per
// spec.md §1 ("the pluggable object store used to read/write bytes");
// this package only states the interface plus two concrete adapters so
// the rest of the module has something real to write through.
package iofs

import (
	"context"
	"io"
	"os"
	"path/filepath"
)

// FileIO is the minimal read/write/delete seam manifests and
// manifest-lists are written through.
type FileIO interface {
	Create(ctx context.Context, path string) (io.WriteCloser, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) error
}

// Local is a FileIO backed by the operating system's filesystem.
type Local struct{}

// NewLocal constructs a filesystem-backed FileIO.
func NewLocal() Local { return Local{} }

func (Local) Create(_ context.Context, path string) (io.WriteCloser, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.Create(path)
}

func (Local) Open(_ context.Context, path string) (io.ReadCloser, error) {
	return os.Open(path)
}

func (Local) Delete(_ context.Context, path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
