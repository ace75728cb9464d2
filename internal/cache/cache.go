// Package cache stores synthesized PCM on disk so repeated previews of
// the same line do not burn provider quota. Entries are keyed by a hash
// of the full synthesis request and compressed with zstd.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// DefaultCapacity bounds the cache directory size.
const DefaultCapacity = 100 << 20 // 100 MB

const fileExt = ".pcm.zst"

type entry struct {
	path    string
	size    int64
	modTime time.Time
}

// Cache is a capacity-bounded disk cache of compressed PCM blobs with an
// in-memory index. Safe for concurrent use.
type Cache struct {
	dir      string
	capacity int64

	mu    sync.RWMutex
	index map[string]entry
	size  int64

	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// Key derives the cache key for one synthesis request. Any parameter
// that changes the audible result is part of the hash.
func Key(model, voice, tone string, temperature float64, text string) string {
	h := sha256.New()
	for _, part := range []string{model, voice, tone, strconv.FormatFloat(temperature, 'f', -1, 64), text} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// New opens (or creates) a cache rooted at dir. capacity <= 0 selects
// DefaultCapacity. Existing entries are indexed from the directory.
func New(dir string, capacity int64) (*Cache, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}

	c := &Cache{
		dir:      dir,
		capacity: capacity,
		index:    make(map[string]entry),
		encoder:  encoder,
		decoder:  decoder,
	}
	if err := c.loadIndex(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Cache) loadIndex() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("reading cache directory: %w", err)
	}
	for _, de := range entries {
		name := de.Name()
		if de.IsDir() || !strings.HasSuffix(name, fileExt) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		key := strings.TrimSuffix(name, fileExt)
		c.index[key] = entry{
			path:    filepath.Join(c.dir, name),
			size:    info.Size(),
			modTime: info.ModTime(),
		}
		c.size += info.Size()
	}
	return nil
}

// Get returns the cached PCM for key, if present and readable.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	e, ok := c.index[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	compressed, err := os.ReadFile(e.path)
	if err != nil {
		c.drop(key)
		return nil, false
	}
	pcm, err := c.decoder.DecodeAll(compressed, nil)
	if err != nil {
		// Corrupt blob; forget it rather than failing the caller.
		c.drop(key)
		return nil, false
	}
	return pcm, true
}

// Put stores PCM under key, evicting the oldest entries when the
// directory would exceed capacity.
func (c *Cache) Put(key string, pcm []byte) error {
	compressed := c.encoder.EncodeAll(pcm, nil)
	path := filepath.Join(c.dir, key+fileExt)
	if err := os.WriteFile(path, compressed, 0o644); err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}

	c.mu.Lock()
	if old, ok := c.index[key]; ok {
		c.size -= old.size
	}
	c.index[key] = entry{path: path, size: int64(len(compressed)), modTime: time.Now()}
	c.size += int64(len(compressed))
	c.evictLocked()
	c.mu.Unlock()
	return nil
}

// Len returns the number of indexed entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.index)
}

// Size returns the total on-disk size of indexed entries in bytes.
func (c *Cache) Size() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.size
}

func (c *Cache) drop(key string) {
	c.mu.Lock()
	if e, ok := c.index[key]; ok {
		c.size -= e.size
		delete(c.index, key)
		_ = os.Remove(e.path)
	}
	c.mu.Unlock()
}

// evictLocked removes oldest entries until the cache fits its capacity.
// Caller holds the write lock.
func (c *Cache) evictLocked() {
	if c.size <= c.capacity {
		return
	}
	type aged struct {
		key string
		entry
	}
	all := make([]aged, 0, len(c.index))
	for k, e := range c.index {
		all = append(all, aged{key: k, entry: e})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].modTime.Before(all[j].modTime) })

	for _, a := range all {
		if c.size <= c.capacity {
			break
		}
		c.size -= a.size
		delete(c.index, a.key)
		_ = os.Remove(a.path)
	}
}

// Close releases the compressor resources.
func (c *Cache) Close() {
	c.encoder.Close()
	c.decoder.Close()
}
