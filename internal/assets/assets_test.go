package assets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/dawn-toolbox/pkg/formats"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestManager_Load(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "model", "town", "well.rsm"), []byte("well"))

	m := NewManager(root, nil)

	for _, name := range []string{`model\town\well.rsm`, "model/town/well.rsm", "/model/town/well.rsm"} {
		data, err := m.Load(name)
		require.NoError(t, err, name)
		assert.Equal(t, []byte("well"), data)
	}

	_, err := m.Load(`model\missing.rsm`)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManager_NoSources(t *testing.T) {
	_, err := NewManager("", nil).Load("model/well.rsm")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManager_ModelCached(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "model", "bad.rsm")
	writeFile(t, path, []byte("this is not a model file"))

	m := NewManager(root, nil)
	_, err := m.Model("model/bad.rsm")
	assert.ErrorIs(t, err, formats.ErrInvalidRSMMagic)

	hits, misses := m.Stats()
	assert.Equal(t, 0, hits)
	assert.Equal(t, 1, misses)
}

func TestCache(t *testing.T) {
	c := NewCache[int]()

	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Set("a", 1)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 1, c.Len())

	hits, misses := c.Stats()
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)
}
