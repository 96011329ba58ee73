package features

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrFeatureNotFound indicates a requested name or interface is absent
	// from the factory map
	ErrFeatureNotFound = errors.New("feature not found")

	// ErrMultipleDefaults indicates more than one definition is marked
	// default for the same interface
	ErrMultipleDefaults = errors.New("multiple definitions set as default")

	// ErrInvalidType indicates an instantiated service does not satisfy the
	// requested interface
	ErrInvalidType = errors.New("feature does not satisfy the requested type")

	// ErrUnresolvedProperty indicates a property token had no value in any
	// provider and no declared default
	ErrUnresolvedProperty = errors.New("no value found for property")

	// ErrUnsupportedVersion indicates a config file with a schema version the
	// locator does not support
	ErrUnsupportedVersion = errors.New("unsupported config version")

	// ErrUnknownFactory indicates a factory key with no registered constructor
	ErrUnknownFactory = errors.New("factory is not registered")
)

// ConfigError represents a fatal problem with feature configuration. Source
// identifies where the problem came from: a file path, a feature name, or a
// property token.
type ConfigError struct {
	Source string
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("feature config problem with %q: %v", e.Source, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
