// Package gcs is a Google Cloud Storage implementation of the blob storage
// contract. Namespacing works through key-prefix concatenation, exactly as in
// the s3 backend.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/tendant/simple-features/pkg/blob"
	"github.com/tendant/simple-features/pkg/features"
	"github.com/tendant/simple-features/pkg/instrument"
)

const (
	envGoogleCreds   = "GOOGLE_APPLICATION_CREDENTIALS"
	defaultCredsFile = "google_credentials.json"
)

// Config options for the GCS backend
type Config struct {
	Project string // GCP project name, required
	Bucket  string // Bucket name, required
	Prefix  string // Optional initial namespace prefix

	Anonymous     bool   // Unauthenticated access for public buckets
	CredsFileName string // Credentials file name searched in cwd and ~/.di (default: "google_credentials.json")

	Instrument instrument.Instrumentation // Optional timing instrumentation
}

// Store is a GCS bucket implementation of blob.DeletableStorage.
type Store struct {
	client *storage.Client
	bucket string
	prefix string
	inst   instrument.Instrumentation
}

var _ blob.DeletableStorage = (*Store)(nil)

// New creates a GCS-backed store. Unless anonymous, a credentials file is
// discovered in the current directory or ~/.di and exported through
// GOOGLE_APPLICATION_CREDENTIALS when that variable is unset; beyond that,
// credential handling is the SDK's.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Project == "" {
		return nil, errors.New("project name is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}

	var opts []option.ClientOption
	if cfg.Anonymous {
		opts = append(opts, option.WithoutAuthentication())
	} else {
		initCredsEnv(cfg.CredsFileName)
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	prefix, err := blob.SanitizeKey(cfg.Prefix)
	if err != nil {
		return nil, err
	}

	return &Store{
		client: client,
		bucket: cfg.Bucket,
		prefix: prefix,
		inst:   cfg.Instrument,
	}, nil
}

func initCredsEnv(credsName string) {
	if os.Getenv(envGoogleCreds) != "" {
		return
	}
	if credsName == "" {
		credsName = defaultCredsFile
	}
	path, err := features.FindFile(features.CurrentOrHome(), credsName)
	if err != nil {
		slog.Info("no Google credentials file found, deferring to ambient credentials")
		return
	}
	os.Setenv(envGoogleCreds, path)
	slog.Info("reading Google credentials file", "path", path)
}

// ID describes the backend and its configuration.
func (s *Store) ID() string {
	return fmt.Sprintf("gcs[bucket_name=%q, namespace=%q]", s.bucket, s.prefix)
}

func (s *Store) opError(op, key string, err error) error {
	return &blob.StorageError{Backend: s.ID(), Op: op, Key: key, Err: err}
}

func (s *Store) objectKey(op, key string) (string, error) {
	clean, err := blob.SanitizeKey(key)
	if err != nil {
		return "", s.opError(op, key, err)
	}
	full := blob.JoinPrefix(s.prefix, clean)
	if full == "" {
		return "", s.opError(op, key, errors.New("empty key"))
	}
	return full, nil
}

func (s *Store) stripPrefix(bucketKey string) string {
	if s.prefix != "" && len(bucketKey) > len(s.prefix) {
		return "/" + bucketKey[len(s.prefix)+1:]
	}
	return "/" + bucketKey
}

// Get returns a handle to the object stored under key, verifying existence
// with an attributes request.
func (s *Store) Get(ctx context.Context, key string) (blob.Blob, error) {
	defer instrument.Time(s.inst, "gcs.get")()

	full, err := s.objectKey("get", key)
	if err != nil {
		return nil, err
	}
	_, err = s.client.Bucket(s.bucket).Object(full).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, s.opError("get", key, blob.ErrNotFound)
		}
		return nil, s.opError("get", key, err)
	}
	return &gcsBlob{store: s, bucketKey: full}, nil
}

// Put uploads the data read from r under key, overwriting existing content.
func (s *Store) Put(ctx context.Context, key string, r io.Reader) error {
	defer instrument.Time(s.inst, "gcs.put")()

	full, err := s.objectKey("put", key)
	if err != nil {
		return err
	}
	w := s.client.Bucket(s.bucket).Object(full).NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return s.opError("put", key, err)
	}
	if err := w.Close(); err != nil {
		return s.opError("put", key, err)
	}
	return nil
}

// Putter returns a writable stream uploading directly to the object. Closing
// the stream finalizes the upload.
func (s *Store) Putter(ctx context.Context, key string) (io.WriteCloser, error) {
	full, err := s.objectKey("putter", key)
	if err != nil {
		return nil, err
	}
	return s.client.Bucket(s.bucket).Object(full).NewWriter(ctx), nil
}

// Delete removes the object stored under key. Deleting a missing key is a
// no-op.
func (s *Store) Delete(ctx context.Context, key string) error {
	defer instrument.Time(s.inst, "gcs.delete")()

	full, err := s.objectKey("delete", key)
	if err != nil {
		return err
	}
	err = s.client.Bucket(s.bucket).Object(full).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return s.opError("delete", key, err)
	}
	return nil
}

// Namespace returns a view of the bucket under the concatenated prefix.
func (s *Store) Namespace(ctx context.Context, prefix string) (blob.Storage, error) {
	clean, err := blob.SanitizeKey(prefix)
	if err != nil {
		return nil, s.opError("namespace", prefix, err)
	}
	return &Store{
		client: s.client,
		bucket: s.bucket,
		prefix: blob.JoinPrefix(s.prefix, clean),
		inst:   s.inst,
	}, nil
}

// Walk lists every object under the namespace prefix, excluding a key equal
// to the prefix directory marker.
func (s *Store) Walk(ctx context.Context, fn func(blob.Blob) error) error {
	defer instrument.Time(s.inst, "gcs.walk")()

	listPrefix := ""
	if s.prefix != "" {
		listPrefix = s.prefix + "/"
	}
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: listPrefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return s.opError("walk", "", err)
		}
		if attrs.Name == listPrefix {
			continue
		}
		if err := fn(&gcsBlob{store: s, bucketKey: attrs.Name}); err != nil {
			return err
		}
	}
}

// gcsBlob is the GCS implementation of blob.Blob.
type gcsBlob struct {
	store     *Store
	bucketKey string
}

func (b *gcsBlob) Key() string {
	return b.store.stripPrefix(b.bucketKey)
}

func (b *gcsBlob) Open(ctx context.Context) (io.ReadCloser, error) {
	r, err := b.store.client.Bucket(b.store.bucket).Object(b.bucketKey).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, b.store.opError("stream", b.Key(), blob.ErrNotFound)
		}
		return nil, b.store.opError("stream", b.Key(), err)
	}
	return r, nil
}
