// Package cache stores per-file analysis results keyed by file identity and
// validated by a content hash.
package cache

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/zeebo/blake3"
)

const entryExt = ".json"

// Cache is a directory of JSON entries. A nil *Cache is a valid, disabled
// cache: lookups miss and stores are dropped.
type Cache struct {
	dir     string
	ttl     time.Duration
	version string
	now     func() time.Time
}

// Entry is the on-disk form of one cached result.
type Entry struct {
	Key       string          `json:"key"`
	Hash      string          `json:"hash"`
	Version   string          `json:"version"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// New opens (and creates) a cache directory. Entries older than ttl are
// treated as missing; ttl <= 0 keeps entries forever. Entries written by a
// different version are ignored.
func New(dir string, ttl time.Duration, version string) (*Cache, error) {
	if dir == "" {
		return nil, errors.New("cache: empty directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	return &Cache{dir: dir, ttl: ttl, version: version, now: time.Now}, nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

// HashBytes computes a BLAKE3 hash of bytes and returns it as a hex string.
func HashBytes(data []byte) string {
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// KeyName returns the entry file name for a key.
func KeyName(key string) string {
	return strconv.FormatUint(xxhash.Sum64String(key), 16) + entryExt
}

func (c *Cache) keyPath(key string) string {
	return filepath.Join(c.dir, KeyName(key))
}

// Lookup returns the data stored under key when it was stored for the same
// content hash, by the same version, and has not expired.
func (c *Cache) Lookup(key, hash string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}

	path := c.keyPath(key)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		_ = os.Remove(path)
		return nil, false
	}

	// xxhash collisions and stale content both land here
	if entry.Key != key || entry.Hash != hash || entry.Version != c.version {
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(entry.Timestamp) > c.ttl {
		_ = os.Remove(path)
		return nil, false
	}
	return entry.Data, true
}

// Store writes data under key. data must be valid JSON.
func (c *Cache) Store(key, hash string, data []byte) error {
	if c == nil {
		return nil
	}

	raw, err := json.Marshal(Entry{
		Key:       key,
		Hash:      hash,
		Version:   c.version,
		Timestamp: c.now(),
		Data:      data,
	})
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}

	// Workers store concurrently; rename keeps readers from seeing a
	// partial entry.
	tmp, err := os.CreateTemp(c.dir, ".entry-*")
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("cache: write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.keyPath(key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("cache: %w", err)
	}
	return nil
}

// Invalidate removes the entry for key, if any.
func (c *Cache) Invalidate(key string) error {
	if c == nil {
		return nil
	}
	err := os.Remove(c.keyPath(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Clear removes all cache entries and keeps the directory.
func (c *Cache) Clear() error {
	if c == nil {
		return nil
	}
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

// Stats summarizes the cache directory.
type Stats struct {
	Entries   int           `json:"entries"`
	TotalSize int64         `json:"total_size"`
	OldestAge time.Duration `json:"oldest_age"`
	NewestAge time.Duration `json:"newest_age"`
}

// Stats returns statistics about the cache.
func (c *Cache) Stats() (Stats, error) {
	var stats Stats
	if c == nil {
		return stats, nil
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return stats, err
	}

	var oldest, newest time.Time
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), entryExt) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		stats.Entries++
		stats.TotalSize += info.Size()

		mod := info.ModTime()
		if oldest.IsZero() || mod.Before(oldest) {
			oldest = mod
		}
		if newest.IsZero() || mod.After(newest) {
			newest = mod
		}
	}

	now := c.now()
	if !oldest.IsZero() {
		stats.OldestAge = now.Sub(oldest)
	}
	if !newest.IsZero() {
		stats.NewestAge = now.Sub(newest)
	}
	return stats, nil
}
