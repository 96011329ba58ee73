// Package featuredefs registers the stock service factories with the features
// registry, so config files can refer to them by key:
//
//	"factory": "blob/fs.New"       filesystem blob storage
//	"factory": "blob/memory.New"   in-memory blob storage
//	"factory": "blob/s3.New"       AWS S3 blob storage
//	"factory": "blob/gcs.New"      Google Cloud Storage blob storage
//	"factory": "instrument.NewLogInstrument"
//
// Importing the package (directly or blank) installs them in the default
// registry; Register installs them in any registry.
package featuredefs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tendant/simple-features/pkg/blob/fs"
	"github.com/tendant/simple-features/pkg/blob/gcs"
	"github.com/tendant/simple-features/pkg/blob/memory"
	"github.com/tendant/simple-features/pkg/blob/s3"
	"github.com/tendant/simple-features/pkg/features"
	"github.com/tendant/simple-features/pkg/instrument"
)

func init() {
	Register(features.DefaultRegistry())
}

// Register installs the stock factories in the given registry.
func Register(r *features.Registry) {
	r.Register("blob/fs.New", newFileStorage)
	r.Register("blob/memory.New", newMemoryStorage)
	r.Register("blob/s3.New", newS3Storage)
	r.Register("blob/gcs.New", newGCSStorage)
	r.Register("instrument.NewLogInstrument", newLogInstrument)
}

func newFileStorage(args []any, kwargs map[string]any) (any, error) {
	root := getString(args, 0, kwargs, "root_path", "")
	if root == "" {
		return nil, fmt.Errorf("blob/fs.New requires a root_path argument")
	}
	return fs.New(fs.Config{RootDir: root})
}

func newMemoryStorage(args []any, kwargs map[string]any) (any, error) {
	return memory.New(memory.Config{}), nil
}

func newS3Storage(args []any, kwargs map[string]any) (any, error) {
	bucket := getString(args, 0, kwargs, "bucket_name", "")
	if bucket == "" {
		return nil, fmt.Errorf("blob/s3.New requires a bucket_name argument")
	}
	return s3.New(s3.Config{
		Bucket:        bucket,
		Region:        getString(args, 1, kwargs, "region", ""),
		Prefix:        getString(args, -1, kwargs, "namespace", ""),
		Anonymous:     getBool(kwargs, "anonymous", false),
		CredsFileName: getString(args, -1, kwargs, "creds_name", ""),
		Endpoint:      getString(args, -1, kwargs, "endpoint", ""),
		UsePathStyle:  getBool(kwargs, "use_path_style", false),
	})
}

func newGCSStorage(args []any, kwargs map[string]any) (any, error) {
	project := getString(args, 0, kwargs, "project_name", "")
	bucket := getString(args, 1, kwargs, "bucket_name", "")
	if project == "" || bucket == "" {
		return nil, fmt.Errorf("blob/gcs.New requires project_name and bucket_name arguments")
	}
	return gcs.New(context.Background(), gcs.Config{
		Project:       project,
		Bucket:        bucket,
		Prefix:        getString(args, -1, kwargs, "namespace", ""),
		Anonymous:     getBool(kwargs, "anonymous", false),
		CredsFileName: getString(args, -1, kwargs, "creds_name", ""),
	})
}

func newLogInstrument(args []any, kwargs map[string]any) (any, error) {
	return instrument.NewLogInstrument(slog.Default()), nil
}

// getString reads a string argument by position, falling back to a keyword
// argument, then to a default. A negative position skips positional lookup.
func getString(args []any, pos int, kwargs map[string]any, key, defaultValue string) string {
	if pos >= 0 && pos < len(args) {
		if s, ok := args[pos].(string); ok {
			return s
		}
	}
	if value, exists := kwargs[key]; exists {
		if s, ok := value.(string); ok {
			return s
		}
	}
	return defaultValue
}

func getBool(kwargs map[string]any, key string, defaultValue bool) bool {
	if value, exists := kwargs[key]; exists {
		if b, ok := value.(bool); ok {
			return b
		}
	}
	return defaultValue
}
