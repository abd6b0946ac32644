// Package cache persists a dataset's discovered FileInfo records to a JSON
// file validated against an embedded schema, so repeat discovery runs can
// skip re-statting files that have not changed.
package cache

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/cairnfield/tempo/pkg/fileinfo"
	"github.com/cairnfield/tempo/pkg/safeio"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema/cache.schema.json
var schemaJSON []byte

// CacheVersion is the on-disk schema version written by this package.
const CacheVersion = 1

// Logger is the minimal logging surface cache needs; pkg/logger.Logger
// satisfies it. A nil Logger is treated as a no-op.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

type wireFormat struct {
	Version  int                     `json:"version"`
	Template string                  `json:"template"`
	Files    []fileinfo.Serializable `json:"files"`
}

// Cache is an in-memory index of FileInfo records, keyed by relative path,
// backed by a single JSON file on disk.
type Cache struct {
	mu       sync.RWMutex
	path     string
	template string
	entries  map[string]fileinfo.FileInfo
	logger   Logger
}

// New creates an empty Cache bound to the given on-disk path and template
// (the template is recorded so Load can detect a stale cache belonging to a
// different dataset configuration).
func New(path, template string, logger Logger) *Cache {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Cache{
		path:     path,
		template: template,
		entries:  make(map[string]fileinfo.FileInfo),
		logger:   logger,
	}
}

// Get returns the cached FileInfo for relPath, if present.
func (c *Cache) Get(relPath string) (fileinfo.FileInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fi, ok := c.entries[relPath]
	return fi, ok
}

// Put inserts or replaces the cached entry for fi.Path.
func (c *Cache) Put(fi fileinfo.FileInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[fi.Path] = fi
}

// Delete removes the cached entry for relPath, if any.
func (c *Cache) Delete(relPath string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, relPath)
}

// All returns a snapshot slice of every cached FileInfo.
func (c *Cache) All() []fileinfo.FileInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]fileinfo.FileInfo, 0, len(c.entries))
	for _, fi := range c.entries {
		out = append(out, fi)
	}
	return out
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Load reads and validates the cache file at c.path. A missing file is not
// an error (Load leaves the cache empty). A file that fails schema
// validation, fails to parse, or was written for a different template is
// logged as a warning and the cache is reset to empty rather than
// propagating the error — a corrupt cache should never block discovery.
func (c *Cache) Load() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("cache: read %s: %w", c.path, err)
	}

	if err := validate(data); err != nil {
		c.logger.Warn("cache: schema validation failed, resetting cache", "path", c.path, "error", err.Error())
		c.reset()
		return nil
	}

	var wf wireFormat
	if err := json.Unmarshal(data, &wf); err != nil {
		c.logger.Warn("cache: malformed JSON, resetting cache", "path", c.path, "error", err.Error())
		c.reset()
		return nil
	}
	if wf.Template != c.template {
		c.logger.Warn("cache: template mismatch, resetting cache", "path", c.path, "cached_template", wf.Template, "template", c.template)
		c.reset()
		return nil
	}

	entries := make(map[string]fileinfo.FileInfo, len(wf.Files))
	for _, s := range wf.Files {
		fi, err := fileinfo.FromSerializable(s)
		if err != nil {
			c.logger.Warn("cache: malformed entry, skipping", "path", s.Path, "error", err.Error())
			continue
		}
		entries[fi.Path] = fi
	}

	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()
	return nil
}

func (c *Cache) reset() {
	c.mu.Lock()
	c.entries = make(map[string]fileinfo.FileInfo)
	c.mu.Unlock()
}

// Save serializes the cache and atomically writes it to c.path (via a
// backup-then-rename sequence, leaving the previous contents at
// c.path+".backup").
func (c *Cache) Save() error {
	c.mu.RLock()
	wf := wireFormat{Version: CacheVersion, Template: c.template, Files: make([]fileinfo.Serializable, 0, len(c.entries))}
	for _, fi := range c.entries {
		wf.Files = append(wf.Files, fi.ToSerializable())
	}
	c.mu.RUnlock()

	data, err := json.MarshalIndent(wf, "", "  ")
	if err != nil {
		return fmt.Errorf("cache: marshal: %w", err)
	}
	if err := validate(data); err != nil {
		return fmt.Errorf("cache: refusing to write invalid cache: %w", err)
	}
	return safeio.WriteFileAtomicBackup(c.path, data, 0o644)
}

func validate(data []byte) error {
	schemaLoader := gojsonschema.NewBytesLoader(schemaJSON)
	docLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if !result.Valid() {
		var msgs []string
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return fmt.Errorf("cache does not conform to schema: %s", strings.Join(msgs, "; "))
	}
	return nil
}
