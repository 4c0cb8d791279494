// Package keycache implements .i18nkey.lock, a cache of keys produced by the
// translation keygen strategy. Entries are indexed by engine and the MD5 of
// the source text, so repeated runs do not call the translation service for
// strings it has already seen.
//
// The cache file lives in the project root next to .i18nkey.yaml.
package keycache

import (
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// FileName is the default cache file name.
const FileName = ".i18nkey.lock"

// Version is the cache file format version.
const Version = 1

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// Cache is the .i18nkey.lock file structure.
type Cache struct {
	Version int                          `yaml:"version"`
	Keys    map[string]map[string]string `yaml:"keys"` // engine -> md5(lang pair + text) -> key

	mu    sync.Mutex `yaml:"-"`
	path  string     `yaml:"-"`
	dirty bool       `yaml:"-"`
}

// New returns an empty cache that saves to path.
func New(path string) *Cache {
	return &Cache{
		Version: Version,
		Keys:    make(map[string]map[string]string),
		path:    path,
	}
}

// ---------------------------------------------------------------------------
// Loading and saving
// ---------------------------------------------------------------------------

// Load reads the cache file from dir.
// Returns an empty cache if the file doesn't exist.
func Load(dir string) (*Cache, error) {
	path := filepath.Join(dir, FileName)
	c := New(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if c.Version > Version {
		return nil, fmt.Errorf("%s: unsupported version %d", path, c.Version)
	}
	if c.Keys == nil {
		c.Keys = make(map[string]map[string]string)
	}
	c.Version = Version
	return c, nil
}

// Save writes the cache to disk. A cache without changes is not rewritten.
func (c *Cache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.path == "" {
		return fmt.Errorf("cache file path not set")
	}
	if !c.dirty {
		return nil
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling key cache: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", c.path, err)
	}
	c.dirty = false
	return nil
}

// Path returns the cache file path.
func (c *Cache) Path() string {
	return c.path
}

// ---------------------------------------------------------------------------
// Lookups
// ---------------------------------------------------------------------------

// Hash computes the MD5 hex digest of a string.
func Hash(s string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(s)))
}

func entryHash(from, to, text string) string {
	return Hash(from + "\x00" + to + "\x00" + text)
}

// Lookup returns the cached key for text translated by engine.
func (c *Cache) Lookup(engine, from, to, text string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key, ok := c.Keys[engine][entryHash(from, to, text)]
	return key, ok
}

// Store records a key. Empty keys are not cached so failed translations are
// retried next time.
func (c *Cache) Store(engine, from, to, text, key string) {
	if key == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Keys[engine] == nil {
		c.Keys[engine] = make(map[string]string)
	}
	h := entryHash(from, to, text)
	if c.Keys[engine][h] != key {
		c.Keys[engine][h] = key
		c.dirty = true
	}
}

// Stats returns the number of engines and total cached keys.
func (c *Cache) Stats() (engines, keys int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	engines = len(c.Keys)
	for _, m := range c.Keys {
		keys += len(m)
	}
	return
}
