package blob

import (
	"fmt"
	"path"
	"strings"
)

// SanitizeKey normalizes a bucket-style key: leading and trailing slashes are
// stripped and path elements collapsed. Keys whose cleaned form still climbs
// above the root are rejected.
func SanitizeKey(key string) (string, error) {
	trimmed := strings.Trim(key, "/")
	if trimmed == "" {
		return "", nil
	}
	cleaned := path.Clean(trimmed)
	if cleaned == "." {
		return "", nil
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("invalid key %q: %w", key, ErrKeyEscapesRoot)
	}
	return cleaned, nil
}

// JoinPrefix concatenates a namespace prefix and a key, both already
// sanitized.
func JoinPrefix(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	default:
		return prefix + "/" + key
	}
}
