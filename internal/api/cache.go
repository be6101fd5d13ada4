package api

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// FileCache stores raw API responses on disk under the data cache
// directory, keyed by the request URL and sorted query parameters.
// Expired entries are deleted on read.
type FileCache struct {
	dir string
	ttl time.Duration
}

// NewFileCache creates the cache directory if needed.
func NewFileCache(dir string, ttl time.Duration) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir %s: %w", dir, err)
	}
	return &FileCache{dir: dir, ttl: ttl}, nil
}

func (c *FileCache) key(rawURL string, params url.Values) string {
	s := rawURL
	if len(params) > 0 {
		s += params.Encode() // Encode sorts keys
	}
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func (c *FileCache) path(rawURL string, params url.Values) string {
	return filepath.Join(c.dir, c.key(rawURL, params)+".json")
}

// Get returns the cached body, or nil when absent or expired.
func (c *FileCache) Get(rawURL string, params url.Values) []byte {
	path := c.path(rawURL, params)
	info, err := os.Stat(path)
	if err != nil {
		return nil
	}
	if time.Since(info.ModTime()) > c.ttl {
		_ = os.Remove(path)
		return nil
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	return body
}

// Set stores a response body. Write failures are ignored: the cache is
// an optimization, not a store of record.
func (c *FileCache) Set(rawURL string, params url.Values, body []byte) {
	_ = os.WriteFile(c.path(rawURL, params), body, 0o644)
}
