package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	r.Register("pkg.New", func([]any, map[string]any) (any, error) { return 42, nil })

	f, err := r.Lookup("pkg.New")
	require.NoError(t, err)
	v, err := f(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestRegistryLookupUnknown(t *testing.T) {
	_, err := NewRegistry().Lookup("pkg.Missing")
	assert.ErrorIs(t, err, ErrUnknownFactory)
}

func TestRegistryDuplicatePanics(t *testing.T) {
	r := NewRegistry()
	f := func([]any, map[string]any) (any, error) { return nil, nil }
	r.Register("pkg.New", f)
	assert.Panics(t, func() { r.Register("pkg.New", f) })
}
