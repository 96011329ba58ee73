// Package fs is a filesystem implementation of the blob storage contract.
// Keys map to paths under a root directory; every operation checks that the
// resolved path stays inside the root.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/tendant/simple-features/pkg/blob"
	"github.com/tendant/simple-features/pkg/instrument"
)

// Config options for the filesystem backend
type Config struct {
	RootDir    string                     // Root directory of the store; must exist
	Instrument instrument.Instrumentation // Optional timing instrumentation
}

// Store is a filesystem implementation of blob.DeletableStorage.
type Store struct {
	root string
	inst instrument.Instrumentation
}

var _ blob.DeletableStorage = (*Store)(nil)

// New creates a filesystem store rooted at cfg.RootDir. The root must be an
// existing directory; symlinks in it are resolved so containment checks work
// on real paths.
func New(cfg Config) (*Store, error) {
	if cfg.RootDir == "" {
		return nil, errors.New("root directory is required")
	}

	abs, err := filepath.Abs(cfg.RootDir)
	if err != nil {
		return nil, fmt.Errorf("resolving root %q: %w", cfg.RootDir, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("root %q refers to a location that doesn't exist: %w", cfg.RootDir, err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("root %q refers to a location that doesn't exist: %w", cfg.RootDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %q is not a directory", cfg.RootDir)
	}

	return &Store{root: resolved, inst: cfg.Instrument}, nil
}

// ID describes the backend and its configuration.
func (s *Store) ID() string {
	return fmt.Sprintf("fs[root_path=%q]", s.root)
}

// resolve maps a key to an absolute path and verifies the result stays
// strictly inside the store root, after following symlinks on whatever part
// of the path already exists.
func (s *Store) resolve(op, key string) (string, error) {
	joined := filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(key, "/")))

	target := joined
	if real, err := filepath.EvalSymlinks(joined); err == nil {
		target = real
	}
	if !s.contains(target) || !s.contains(joined) {
		return "", &blob.StorageError{
			Backend: s.ID(), Op: op, Key: key,
			Err: fmt.Errorf("invalid key: %w", blob.ErrKeyEscapesRoot),
		}
	}
	return joined, nil
}

func (s *Store) contains(path string) bool {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (s *Store) keyFor(path string) string {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return "/" + strings.TrimPrefix(filepath.ToSlash(path), "/")
	}
	return "/" + filepath.ToSlash(rel)
}

func (s *Store) opError(op, key string, err error) error {
	return &blob.StorageError{Backend: s.ID(), Op: op, Key: key, Err: err}
}

// Get returns a handle to the file stored under key. A missing file, or a
// key resolving to a directory, reports blob.ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) (blob.Blob, error) {
	defer instrument.Time(s.inst, "fs.get")()

	path, err := s.resolve("get", key)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return nil, s.opError("get", key, blob.ErrNotFound)
	}
	return &fileBlob{key: s.keyFor(path), path: path, backend: s.ID()}, nil
}

// Put stores the data read from r under key, creating intermediate
// directories as needed and overwriting existing content.
func (s *Store) Put(ctx context.Context, key string, r io.Reader) error {
	defer instrument.Time(s.inst, "fs.put")()

	path, err := s.resolve("put", key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return s.opError("put", key, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return s.opError("put", key, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return s.opError("put", key, err)
	}
	if err := f.Close(); err != nil {
		return s.opError("put", key, err)
	}
	return nil
}

// Putter returns a writable stream storing directly under key. Closing the
// stream finalizes the file.
func (s *Store) Putter(ctx context.Context, key string) (io.WriteCloser, error) {
	path, err := s.resolve("putter", key)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, s.opError("putter", key, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, s.opError("putter", key, err)
	}
	return f, nil
}

// Delete removes the file stored under key. Deleting a missing key, or one
// that resolves to a directory, is a no-op.
func (s *Store) Delete(ctx context.Context, key string) error {
	defer instrument.Time(s.inst, "fs.delete")()

	path, err := s.resolve("delete", key)
	if err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return s.opError("delete", key, err)
	}
	return nil
}

// Namespace returns a new store rooted at prefix, creating the directory if
// absent.
func (s *Store) Namespace(ctx context.Context, prefix string) (blob.Storage, error) {
	path, err := s.resolve("namespace", prefix)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, s.opError("namespace", prefix, err)
	}
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return nil, s.opError("namespace", prefix, err)
	}
	return &Store{root: resolved, inst: s.inst}, nil
}

// Walk enumerates every regular file under the root, one blob per file. Each
// call is a fresh traversal in filesystem order.
func (s *Store) Walk(ctx context.Context, fn func(blob.Blob) error) error {
	defer instrument.Time(s.inst, "fs.walk")()

	var callerErr error
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			callerErr = err
			return fs.SkipAll
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if err := fn(&fileBlob{key: s.keyFor(path), path: path, backend: s.ID()}); err != nil {
			callerErr = err
			return fs.SkipAll
		}
		return nil
	})
	if callerErr != nil {
		return callerErr
	}
	if err != nil {
		return s.opError("walk", "", err)
	}
	return nil
}

// fileBlob is the file implementation of blob.Blob.
type fileBlob struct {
	key     string
	path    string
	backend string
}

func (b *fileBlob) Key() string {
	return b.key
}

func (b *fileBlob) Open(ctx context.Context) (io.ReadCloser, error) {
	f, err := os.Open(b.path)
	if err != nil {
		return nil, &blob.StorageError{Backend: b.backend, Op: "stream", Key: b.key, Err: err}
	}
	return f, nil
}

func (b *fileBlob) String() string {
	return fmt.Sprintf("fileBlob{key=%s}", b.key)
}
