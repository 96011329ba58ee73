package features

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLocatorFindsFirstMatch(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(second, "features.json"), []byte("{}"), 0o644))

	loc := NewFileLocator(first, second)
	path, err := loc.Find("features.json")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(second, "features.json"), path)

	// A match in an earlier directory shadows later ones.
	require.NoError(t, os.WriteFile(filepath.Join(first, "features.json"), []byte("{}"), 0o644))
	path, err = loc.Find("features.json")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(first, "features.json"), path)
}

func TestFileLocatorSkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "features.json"), 0o755))

	_, err := NewFileLocator(dir).Find("features.json")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFileLocatorNotFound(t *testing.T) {
	_, err := FindFile([]string{t.TempDir()}, "nope.json")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCurrentOrHomeStartsAtCwd(t *testing.T) {
	paths := CurrentOrHome()
	require.NotEmpty(t, paths)
	assert.Equal(t, ".", paths[0])
}

func TestLoadSettings(t *testing.T) {
	t.Setenv("FEATURES_CONFIG", "")
	os.Unsetenv("FEATURES_CONFIG")
	s, err := LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, "features.json", s.ConfigName)

	t.Setenv("FEATURES_CONFIG", "custom.json")
	s, err = LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, "custom.json", s.ConfigName)
}
