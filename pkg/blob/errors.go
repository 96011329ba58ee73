package blob

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrNotFound indicates no blob exists for the requested key
	ErrNotFound = errors.New("blob not found")

	// ErrKeyEscapesRoot indicates a key whose resolved path leaves the store
	// root
	ErrKeyEscapesRoot = errors.New("key escapes the storage root")
)

// StorageError represents a failed storage operation, carrying enough context
// to diagnose it without inspecting backend internals.
type StorageError struct {
	Backend string
	Op      string
	Key     string
	Err     error
}

func (e *StorageError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("storage operation %s failed on %s: %v", e.Op, e.Backend, e.Err)
	}
	return fmt.Sprintf("storage operation %s failed for key %q on %s: %v", e.Op, e.Key, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
