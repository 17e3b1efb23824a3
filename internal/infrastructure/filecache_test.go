package infrastructure

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileCacheMissingFile(t *testing.T) {
	c := NewFileCache(filepath.Join(t.TempDir(), "news.txt"))
	assert.Empty(t, c.Get())
}

func TestFileCacheReadsAndTracksMtime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "news.txt")
	require.NoError(t, os.WriteFile(path, []byte("first"), 0o644))

	c := NewFileCache(path)
	assert.Equal(t, "first", c.Get())
	assert.Equal(t, "first", c.Get(), "served from cache")

	// A rewrite with a newer mtime invalidates the cache.
	require.NoError(t, os.WriteFile(path, []byte("second"), 0o644))
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))
	assert.Equal(t, "second", c.Get())
}

func TestFileCacheFileRemoved(t *testing.T) {
	path := filepath.Join(t.TempDir(), "news.txt")
	require.NoError(t, os.WriteFile(path, []byte("content"), 0o644))

	c := NewFileCache(path)
	require.Equal(t, "content", c.Get())

	require.NoError(t, os.Remove(path))
	assert.Empty(t, c.Get(), "removed file reads as empty")
}
