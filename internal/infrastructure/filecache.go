package infrastructure

import (
	"os"
	"sync"
	"time"
)

// FileCache serves the news / connection-info texts, re-reading the
// file only when its mtime changes. A missing file reads as empty.
type FileCache struct {
	mu      sync.Mutex
	path    string
	modTime time.Time
	content string
}

func NewFileCache(path string) *FileCache {
	return &FileCache{path: path}
}

func (c *FileCache) Get() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	info, err := os.Stat(c.path)
	if err != nil {
		c.content = ""
		c.modTime = time.Time{}
		return ""
	}
	if info.ModTime().Equal(c.modTime) {
		return c.content
	}

	raw, err := os.ReadFile(c.path)
	if err != nil {
		return c.content
	}
	c.content = string(raw)
	c.modTime = info.ModTime()
	return c.content
}
