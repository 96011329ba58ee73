// Package blob defines a minimal blob storage contract: path-like keys,
// streamed reads and writes, recursive enumeration, and namespace narrowing.
// Backends live in the fs, memory, s3 and gcs subpackages.
package blob

import (
	"context"
	"io"
)

// Blob is a handle to a stored byte sequence. No data is read until Open is
// called; callers must close the returned stream on every exit path.
type Blob interface {
	// Key is the blob's key relative to the store view it came from, always
	// with a leading "/" and forward-slash separators.
	Key() string

	// Open returns a read-only stream of the blob content.
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Storage is a named store of blobs with an implicit folder structure: keys
// can (and often will) look like paths, for example "/datasets/train/x.bin".
//
// Concurrent writes to the same key race at the backend's discretion
// (last-write-wins); callers needing stronger guarantees coordinate
// externally.
type Storage interface {
	// ID describes the backend and its configuration, for humans.
	ID() string

	// Get returns a handle to the blob stored under key. It reports
	// ErrNotFound when no blob exists for the key.
	Get(ctx context.Context, key string) (Blob, error)

	// Put stores the data read from r under key, creating intermediate
	// "directories" as needed and overwriting existing content.
	Put(ctx context.Context, key string, r io.Reader) error

	// Putter returns a writable stream storing directly under key. Closing
	// the stream finalizes the blob.
	Putter(ctx context.Context, key string) (io.WriteCloser, error)

	// Namespace returns a view of this store rooted at prefix. Keys on the
	// view are relative to the prefix and never leak it; namespacing a
	// namespace concatenates prefixes. No data is copied.
	Namespace(ctx context.Context, prefix string) (Storage, error)

	// Walk enumerates every blob in the store, calling fn once per blob.
	// Each call is a fresh traversal; enumeration order is not guaranteed.
	// An error returned by fn stops the walk and is returned unchanged.
	Walk(ctx context.Context, fn func(Blob) error) error
}

// DeletableStorage is a Storage that also supports deleting blobs.
//
// Namespace views of a DeletableStorage remain deletable; assert the returned
// Storage to recover the capability.
type DeletableStorage interface {
	Storage

	// Delete removes the blob stored under key. Deleting a key that does not
	// exist, or that resolves to a directory, is a no-op.
	Delete(ctx context.Context, key string) error
}
