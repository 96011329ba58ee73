// Package memory is an in-memory implementation of the blob storage contract,
// useful for tests and local development.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/tendant/simple-features/pkg/blob"
	"github.com/tendant/simple-features/pkg/instrument"
)

// Config options for the in-memory backend
type Config struct {
	Instrument instrument.Instrumentation // Optional timing instrumentation
}

// Store is an in-memory implementation of blob.DeletableStorage. Namespace
// views share the underlying object map.
type Store struct {
	data   *shared
	prefix string
	inst   instrument.Instrumentation
}

type shared struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

var _ blob.DeletableStorage = (*Store)(nil)

// New creates an empty in-memory store.
func New(cfg Config) *Store {
	return &Store{data: &shared{objects: make(map[string][]byte)}, inst: cfg.Instrument}
}

// ID describes the backend and its configuration.
func (s *Store) ID() string {
	return fmt.Sprintf("memory[namespace=%q]", s.prefix)
}

func (s *Store) fullKey(op, key string) (string, error) {
	clean, err := blob.SanitizeKey(key)
	if err != nil {
		return "", &blob.StorageError{Backend: s.ID(), Op: op, Key: key, Err: err}
	}
	if clean == "" {
		return "", &blob.StorageError{Backend: s.ID(), Op: op, Key: key, Err: fmt.Errorf("empty key")}
	}
	return blob.JoinPrefix(s.prefix, clean), nil
}

// Get returns a handle to the blob stored under key.
func (s *Store) Get(ctx context.Context, key string) (blob.Blob, error) {
	defer instrument.Time(s.inst, "memory.get")()

	clean, err := blob.SanitizeKey(key)
	if err != nil {
		return nil, &blob.StorageError{Backend: s.ID(), Op: "get", Key: key, Err: err}
	}
	if clean == "" {
		return nil, &blob.StorageError{Backend: s.ID(), Op: "get", Key: key, Err: blob.ErrNotFound}
	}
	full := blob.JoinPrefix(s.prefix, clean)

	s.data.mu.RLock()
	data, ok := s.data.objects[full]
	s.data.mu.RUnlock()
	if !ok {
		return nil, &blob.StorageError{Backend: s.ID(), Op: "get", Key: key, Err: blob.ErrNotFound}
	}
	return &memBlob{key: "/" + clean, data: data}, nil
}

// Put stores the data read from r under key.
func (s *Store) Put(ctx context.Context, key string, r io.Reader) error {
	defer instrument.Time(s.inst, "memory.put")()

	full, err := s.fullKey("put", key)
	if err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return &blob.StorageError{Backend: s.ID(), Op: "put", Key: key, Err: err}
	}

	s.data.mu.Lock()
	s.data.objects[full] = data
	s.data.mu.Unlock()
	return nil
}

// Putter returns a writable stream; the blob becomes visible on Close.
func (s *Store) Putter(ctx context.Context, key string) (io.WriteCloser, error) {
	full, err := s.fullKey("putter", key)
	if err != nil {
		return nil, err
	}
	return &memPutter{store: s, key: full}, nil
}

// Delete removes the blob stored under key. Deleting a missing key is a
// no-op.
func (s *Store) Delete(ctx context.Context, key string) error {
	defer instrument.Time(s.inst, "memory.delete")()

	full, err := s.fullKey("delete", key)
	if err != nil {
		return err
	}

	s.data.mu.Lock()
	delete(s.data.objects, full)
	s.data.mu.Unlock()
	return nil
}

// Namespace returns a view of this store rooted at prefix.
func (s *Store) Namespace(ctx context.Context, prefix string) (blob.Storage, error) {
	clean, err := blob.SanitizeKey(prefix)
	if err != nil {
		return nil, &blob.StorageError{Backend: s.ID(), Op: "namespace", Key: prefix, Err: err}
	}
	return &Store{data: s.data, prefix: blob.JoinPrefix(s.prefix, clean), inst: s.inst}, nil
}

// Walk enumerates every blob under this view's namespace. Keys are sorted for
// deterministic iteration, though callers must not rely on order.
func (s *Store) Walk(ctx context.Context, fn func(blob.Blob) error) error {
	defer instrument.Time(s.inst, "memory.walk")()

	want := ""
	if s.prefix != "" {
		want = s.prefix + "/"
	}

	s.data.mu.RLock()
	keys := make([]string, 0, len(s.data.objects))
	for k := range s.data.objects {
		if strings.HasPrefix(k, want) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	s.data.mu.RUnlock()

	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.data.mu.RLock()
		data, ok := s.data.objects[k]
		s.data.mu.RUnlock()
		if !ok {
			continue
		}
		if err := fn(&memBlob{key: "/" + strings.TrimPrefix(k, want), data: data}); err != nil {
			return err
		}
	}
	return nil
}

// memBlob is the in-memory implementation of blob.Blob.
type memBlob struct {
	key  string
	data []byte
}

func (b *memBlob) Key() string {
	return b.key
}

func (b *memBlob) Open(ctx context.Context) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b.data)), nil
}

// memPutter buffers writes and commits the blob on Close.
type memPutter struct {
	store  *Store
	key    string
	buf    bytes.Buffer
	closed bool
}

func (p *memPutter) Write(data []byte) (int, error) {
	return p.buf.Write(data)
}

func (p *memPutter) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true

	p.store.data.mu.Lock()
	p.store.data.objects[p.key] = append([]byte(nil), p.buf.Bytes()...)
	p.store.data.mu.Unlock()
	return nil
}
