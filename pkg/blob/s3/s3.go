// Package s3 is an AWS S3 (and S3-compatible) implementation of the blob
// storage contract.
//
// Namespacing is implemented purely through key-prefix concatenation; the
// "directories" callers see are an illusion over flat bucket keys. The putter
// buffers the whole payload in memory before a single upload call, a
// documented performance caveat of the upload path rather than a correctness
// gap.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/tendant/simple-features/pkg/blob"
	"github.com/tendant/simple-features/pkg/features"
	"github.com/tendant/simple-features/pkg/instrument"
)

const (
	envSharedCreds   = "AWS_SHARED_CREDENTIALS_FILE"
	envAccessKey     = "AWS_ACCESS_KEY_ID"
	envSecretKey     = "AWS_SECRET_ACCESS_KEY"
	defaultCredsFile = "credentials"
)

// Config options for the S3 backend
type Config struct {
	Bucket string // Bucket name, required
	Region string // AWS region (default: us-east-1)
	Prefix string // Optional initial namespace prefix

	AccessKeyID     string // Explicit credentials; default chain when empty
	SecretAccessKey string
	Anonymous       bool   // Unsigned requests for public buckets
	CredsFileName   string // Shared credentials file name searched in cwd and ~/.di (default: "credentials")

	Endpoint     string // Optional custom endpoint for S3-compatible services
	UsePathStyle bool   // Path-style addressing (MinIO and friends)

	Instrument instrument.Instrumentation // Optional timing instrumentation
}

// Store is an S3 bucket implementation of blob.DeletableStorage.
type Store struct {
	client *s3.Client
	bucket string
	prefix string
	inst   instrument.Instrumentation
}

var _ blob.DeletableStorage = (*Store)(nil)

// New creates an S3-backed store. Credential sources, in order: explicit keys
// in cfg, AWS environment variables, a discovered shared credentials file,
// then ambient instance-role credentials, all handled by the SDK's default
// chain beyond choosing which file to point it at.
func New(cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	if !cfg.Anonymous && cfg.AccessKeyID == "" {
		initCredsEnv(cfg.CredsFileName)
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	switch {
	case cfg.Anonymous:
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(aws.AnonymousCredentials{}))
	case cfg.AccessKeyID != "" && cfg.SecretAccessKey != "":
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = cfg.UsePathStyle
		})
	}

	prefix, err := blob.SanitizeKey(cfg.Prefix)
	if err != nil {
		return nil, err
	}

	return &Store{
		client: s3.NewFromConfig(awsCfg, s3Opts...),
		bucket: cfg.Bucket,
		prefix: prefix,
		inst:   cfg.Instrument,
	}, nil
}

// initCredsEnv points the SDK at a discovered shared credentials file when no
// environment credentials are present and the variable is not already set.
// Missing files are fine: the SDK falls through to the instance metadata
// service.
func initCredsEnv(credsName string) {
	if os.Getenv(envAccessKey) != "" && os.Getenv(envSecretKey) != "" {
		slog.Info("reading AWS credentials from environment variables")
		return
	}
	if os.Getenv(envSharedCreds) != "" {
		return
	}
	if credsName == "" {
		credsName = defaultCredsFile
	}
	path, err := features.FindFile(features.CurrentOrHome(), credsName)
	if err != nil {
		slog.Info("no AWS credentials file found, deferring to ambient credentials")
		return
	}
	os.Setenv(envSharedCreds, path)
	slog.Info("reading AWS credentials file", "path", path)
}

// ID describes the backend and its configuration.
func (s *Store) ID() string {
	return fmt.Sprintf("s3[bucket_name=%q, namespace=%q]", s.bucket, s.prefix)
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

// stripPrefix converts a bucket key back to a key relative to this view.
func (s *Store) stripPrefix(bucketKey string) string {
	if s.prefix != "" && len(bucketKey) > len(s.prefix) {
		return "/" + bucketKey[len(s.prefix)+1:]
	}
	return "/" + bucketKey
}

func isNotFound(err error) bool {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) &&
		(apiErr.ErrorCode() == "NotFound" || apiErr.ErrorCode() == "NoSuchKey")
}

// Get returns a handle to the object stored under key. Existence is verified
// with a head request; blob.ErrNotFound derives from the backend's not-found
// response.
func (s *Store) Get(ctx context.Context, key string) (blob.Blob, error) {
	defer instrument.Time(s.inst, "s3.get")()

	full, err := s.objectKey("get", key)
	if err != nil {
		return nil, err
	}
	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(full),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, s.opError("get", key, blob.ErrNotFound)
		}
		return nil, s.opError("get", key, err)
	}
	return &s3Blob{store: s, bucketKey: full}, nil
}

// Put uploads the data read from r under key, overwriting existing content.
func (s *Store) Put(ctx context.Context, key string, r io.Reader) error {
	defer instrument.Time(s.inst, "s3.put")()

	full, err := s.objectKey("put", key)
	if err != nil {
		return err
	}
	uploader := manager.NewUploader(s.client)
	_, err = uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(full),
		Body:   r,
	})
	if err != nil {
		return s.opError("put", key, err)
	}
	return nil
}

// Putter returns a writable stream whose content is uploaded in a single call
// on Close. The whole payload is buffered in memory first.
func (s *Store) Putter(ctx context.Context, key string) (io.WriteCloser, error) {
	if _, err := s.objectKey("putter", key); err != nil {
		return nil, err
	}
	return &bufferedPutter{ctx: ctx, store: s, key: key}, nil
}

// Delete removes the object stored under key. S3 deletes of missing keys are
// already a no-op, matching the contract.
func (s *Store) Delete(ctx context.Context, key string) error {
	defer instrument.Time(s.inst, "s3.delete")()

	full, err := s.objectKey("delete", key)
	if err != nil {
		return err
	}
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(full),
	})
	if err != nil {
		return s.opError("delete", key, err)
	}
	return nil
}

// Namespace returns a view of the bucket under the concatenated prefix. No
// request is made; bucket "directories" need no creation.
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

// Walk lists every object under the namespace prefix, one blob per key,
// excluding a key equal to the prefix directory marker.
func (s *Store) Walk(ctx context.Context, fn func(blob.Blob) error) error {
	defer instrument.Time(s.inst, "s3.walk")()

	listPrefix := ""
	if s.prefix != "" {
		listPrefix = s.prefix + "/"
	}
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(listPrefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return s.opError("walk", "", err)
		}
		for _, obj := range page.Contents {
			if err := ctx.Err(); err != nil {
				return err
			}
			bucketKey := aws.ToString(obj.Key)
			if bucketKey == listPrefix {
				continue
			}
			if err := fn(&s3Blob{store: s, bucketKey: bucketKey}); err != nil {
				return err
			}
		}
	}
	return nil
}

// s3Blob is the S3 implementation of blob.Blob.
type s3Blob struct {
	store     *Store
	bucketKey string
}

func (b *s3Blob) Key() string {
	return b.store.stripPrefix(b.bucketKey)
}

func (b *s3Blob) Open(ctx context.Context) (io.ReadCloser, error) {
	out, err := b.store.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.store.bucket),
		Key:    aws.String(b.bucketKey),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, b.store.opError("stream", b.Key(), blob.ErrNotFound)
		}
		return nil, b.store.opError("stream", b.Key(), err)
	}
	return out.Body, nil
}

// bufferedPutter accumulates the payload and uploads it on Close.
type bufferedPutter struct {
	ctx    context.Context
	store  *Store
	key    string
	buf    bytes.Buffer
	closed bool
}

func (p *bufferedPutter) Write(data []byte) (int, error) {
	return p.buf.Write(data)
}

func (p *bufferedPutter) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true

	err := p.store.Put(p.ctx, p.key, bytes.NewReader(p.buf.Bytes()))
	if err == nil {
		return nil
	}
	// report the operation the caller actually invoked
	var serr *blob.StorageError
	if errors.As(err, &serr) {
		err = serr.Err
	}
	return p.store.opError("putter", p.key, err)
}
