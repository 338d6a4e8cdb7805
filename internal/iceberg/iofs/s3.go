package iofs

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
)

// S3 is a FileIO backed by any S3-compatible object store, wired via
// minio-go/v7 — one concrete implementation of the pluggable object
// store collaborator named in spec.md §1.
type S3 struct {
	client *minio.Client
	bucket string
}

// NewS3 wraps an already-constructed minio client for one bucket.
func NewS3(client *minio.Client, bucket string) *S3 {
	return &S3{client: client, bucket: bucket}
}

// Open streams an object's bytes.
func (s *S3) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("s3 open %s: %w", path, err)
	}
	return obj, nil
}

// Delete removes an object.
func (s *S3) Delete(ctx context.Context, path string) error {
	return s.client.RemoveObject(ctx, s.bucket, path, minio.RemoveObjectOptions{})
}

// Create returns a pipe writer whose bytes are streamed to the store
// as they're written; Close blocks until the upload finishes.
func (s *S3) Create(ctx context.Context, path string) (io.WriteCloser, error) {
	pr, pw := io.Pipe()

	uploadErr := make(chan error, 1)
	go func() {
		_, err := s.client.PutObject(ctx, s.bucket, path, pr, -1, minio.PutObjectOptions{
			ContentType: "application/avro",
		})
		uploadErr <- err
		pr.CloseWithError(err)
	}()

	return &s3Writer{pw: pw, done: uploadErr}, nil
}

type s3Writer struct {
	pw   *io.PipeWriter
	done chan error
}

func (w *s3Writer) Write(p []byte) (int, error) { return w.pw.Write(p) }

func (w *s3Writer) Close() error {
	if err := w.pw.Close(); err != nil {
		return err
	}
	return <-w.done
}
