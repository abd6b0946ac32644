// Package dataset is the user-facing facade over a time-partitioned file
// collection: it composes template compilation, the pruned discovery walk,
// the file-info cache, format handlers, and the parallel dispatcher behind a
// single Dataset value.
package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cairnfield/tempo/pkg/cache"
	"github.com/cairnfield/tempo/pkg/config"
	"github.com/cairnfield/tempo/pkg/discovery"
	"github.com/cairnfield/tempo/pkg/dispatch"
	"github.com/cairnfield/tempo/pkg/fileinfo"
	"github.com/cairnfield/tempo/pkg/handler"
	"github.com/cairnfield/tempo/pkg/ignore"
	"github.com/cairnfield/tempo/pkg/interval"
	"github.com/cairnfield/tempo/pkg/safeio"
	"github.com/cairnfield/tempo/pkg/tempoerr"
	"github.com/cairnfield/tempo/pkg/template"
)

// Logger is the minimal logging surface the dataset and its collaborators
// need; pkg/logger.WarnLogger satisfies it.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// Dataset is a time-partitioned file collection rooted at Root and named by
// Template.
type Dataset struct {
	mu sync.RWMutex

	Root         string
	Template     string
	Placeholders map[string]string
	Matcher      *template.Matcher
	Registry     *handler.Registry
	Cache        *cache.Cache
	Engine       *discovery.Engine
	Exclusions   *interval.Tree
	Ignore       *ignore.Matcher

	logger       Logger
	dispatchOpts dispatch.Options
	links        map[string]*Dataset
}

// Exclude adds a time window to the dataset's exclusion set: any file whose
// coverage subsequently overlaps [start, end] is omitted from Find/Collect
// results, per spec.md §3's "Exclusion set".
func (d *Dataset) Exclude(start, end time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Exclusions == nil {
		d.Exclusions = interval.New(nil)
	}
	d.Exclusions.Insert(interval.Interval{Start: start.UnixNano(), End: end.UnixNano()})
}

// LoadIgnoreFile layers .tempoignore (and any ordinary .gitignore already
// present under Root) onto discovery's path-level blacklist, in addition to
// the time-based Exclusions set. A dataset with no ignore files present
// still succeeds, with an empty matcher.
func (d *Dataset) LoadIgnoreFile() error {
	return d.LoadIgnoreFileWithConfig(nil, nil)
}

// LoadIgnoreFileWithConfig is LoadIgnoreFile plus the ignore_files and
// patterns named in a config's ExclusionsConfig, layered on top.
func (d *Dataset) LoadIgnoreFileWithConfig(extraFiles, extraPatterns []string) error {
	m, err := ignore.NewMatcherFromConfig(d.Root, extraFiles, extraPatterns)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.Ignore = m
	d.mu.Unlock()
	return nil
}

// excludeFn combines the ignore matcher (if loaded) into the discovery
// Exclude callback; nil if no ignore matcher is configured.
func (d *Dataset) excludeFn() func(string) bool {
	d.mu.RLock()
	m := d.Ignore
	d.mu.RUnlock()
	if m == nil {
		return nil
	}
	return m.IsIgnoredRel
}

// New compiles template against root and returns a ready-to-use Dataset.
// registry and cacheFile may be zero-valued (registry defaults to
// handler.DefaultRegistry, an empty cacheFile disables caching).
func New(root, tmpl string, placeholders map[string]string, registry *handler.Registry, cacheFile string, logger Logger) (*Dataset, error) {
	matcher, err := template.Compile(tmpl, placeholders)
	if err != nil {
		return nil, err
	}
	if registry == nil {
		registry = handler.DefaultRegistry()
	}
	if logger == nil {
		logger = noopLogger{}
	}

	var c *cache.Cache
	if cacheFile != "" {
		c = cache.New(cacheFile, tmpl, cacheLoggerAdapter{logger})
		if err := c.Load(); err != nil {
			return nil, err
		}
	}

	d := &Dataset{
		Root:         root,
		Template:     tmpl,
		Placeholders: placeholders,
		Matcher:      matcher,
		Registry:     registry,
		Cache:        c,
		logger:       logger,
		dispatchOpts: dispatch.Options{WorkerType: dispatch.ThreadWorker},
	}
	d.Engine = discovery.NewEngine(root, matcher, registry, c, discoveryLoggerAdapter{logger})
	return d, nil
}

// NewFromConfig builds a Dataset from a loaded dataset config.
func NewFromConfig(cfg *config.Config, logger Logger) (*Dataset, error) {
	registry := handler.NewRegistry()
	for ext, kind := range cfg.Handlers.Extensions {
		switch kind {
		case "csv":
			registry.Register(ext, handler.CSVHandler{Comma: cfg.EffectiveDelimiter()})
		case "netcdf":
			registry.Register(ext, handler.NetCDFHandler{})
		}
	}

	d, err := New(cfg.BaseDir, cfg.Template, cfg.Placeholders, registry, cfg.CacheFile, logger)
	if err != nil {
		return nil, err
	}

	d.dispatchOpts.MaxWorkers = cfg.Dispatch.MaxWorkers
	if cfg.Dispatch.WorkerType == "process" {
		d.dispatchOpts.WorkerType = dispatch.ProcessWorker
	}

	if err := d.LoadIgnoreFileWithConfig(cfg.Exclusions.IgnoreFiles, cfg.Exclusions.Patterns); err != nil {
		d.logger.Warn("dataset: failed to load ignore patterns", "root", cfg.BaseDir, "error", err.Error())
	}
	return d, nil
}

type cacheLoggerAdapter struct{ l Logger }

func (a cacheLoggerAdapter) Warn(msg string, args ...any) { a.l.Warn(msg, args...) }

type discoveryLoggerAdapter struct{ l Logger }

func (a discoveryLoggerAdapter) Warn(msg string, args ...any) { a.l.Warn(msg, args...) }

// Find runs the pruned discovery walk over [start, end) and returns matches
// in discovery order.
func (d *Dataset) Find(ctx context.Context, start, end time.Time, filters ...discovery.Filter) ([]fileinfo.FileInfo, error) {
	d.mu.RLock()
	exclusions := d.Exclusions
	d.mu.RUnlock()
	return d.Engine.Find(ctx, discovery.Options{Start: start, End: end, Filters: filters, Exclusions: exclusions, Exclude: d.excludeFn()})
}

// Collect is Find with the results sorted by start time and NoFilesError
// enabled, for callers that want a fully materialized, deterministic slice.
func (d *Dataset) Collect(ctx context.Context, start, end time.Time, filters ...discovery.Filter) ([]fileinfo.FileInfo, error) {
	d.mu.RLock()
	exclusions := d.Exclusions
	d.mu.RUnlock()
	return d.Engine.Find(ctx, discovery.Options{Start: start, End: end, Filters: filters, Sort: true, NoFilesError: true, Exclusions: exclusions, Exclude: d.excludeFn()})
}

// CollectBundled is Collect followed by Bundle, for callers who want grouped
// batches (fixed count or time-frequency) directly from the facade.
func (d *Dataset) CollectBundled(ctx context.Context, start, end time.Time, spec discovery.BundleSpec, filters ...discovery.Filter) ([][]fileinfo.FileInfo, error) {
	files, err := d.Collect(ctx, start, end, filters...)
	if err != nil {
		return nil, err
	}
	return discovery.Bundle(files, spec), nil
}

// Iterator is a pull-style cursor over a Collect result. The underlying walk
// is not itself incremental, so ICollect does not reduce peak memory versus
// Collect, but it lets a caller begin processing before believing the full
// slice exists and gives Map/IMap-style callers a uniform Next() contract.
type Iterator struct {
	ch  chan fileinfo.FileInfo
	err error
}

// Next returns the next file, or ok=false once the collection is exhausted
// (checking err for a discovery failure).
func (it *Iterator) Next() (fileinfo.FileInfo, bool, error) {
	fi, ok := <-it.ch
	if !ok {
		return fileinfo.FileInfo{}, false, it.err
	}
	return fi, true, nil
}

// ICollect starts a Collect call in the background and streams its results.
func (d *Dataset) ICollect(ctx context.Context, start, end time.Time, filters ...discovery.Filter) *Iterator {
	it := &Iterator{ch: make(chan fileinfo.FileInfo)}
	go func() {
		defer close(it.ch)
		files, err := d.Collect(ctx, start, end, filters...)
		if err != nil {
			it.err = err
			return
		}
		for _, fi := range files {
			select {
			case it.ch <- fi:
			case <-ctx.Done():
				it.err = ctx.Err()
				return
			}
		}
	}()
	return it
}

// Watch arms a live filesystem watch over the dataset's root and streams
// newly completed files matching its template until ctx is cancelled.
func (d *Dataset) Watch(ctx context.Context, onEvent func(discovery.WatchEvent)) error {
	return d.Engine.Watch(ctx, onEvent)
}

// FindClosest resolves the file whose coverage is nearest timestamp.
func (d *Dataset) FindClosest(ctx context.Context, timestamp time.Time, attrs map[string]string) (*fileinfo.FileInfo, error) {
	return d.Engine.FindClosest(ctx, timestamp, attrs)
}

// GenerateFilename renders the dataset's template for the given coverage
// and attributes.
func (d *Dataset) GenerateFilename(t0, t1 time.Time, attrs map[string]string) (string, error) {
	return d.Matcher.Render(t0, t1, attrs)
}

// ParseFilename extracts the raw named-capture values (temporal fields and
// user placeholders together) from a path matching the dataset's template.
func (d *Dataset) ParseFilename(relPath string) (map[string]string, error) {
	return d.Matcher.Parse(filepath.ToSlash(relPath))
}

// GetInfo resolves the FileInfo for a path already known to match the
// dataset's template, consulting the cache first.
func (d *Dataset) GetInfo(relPath string) (fileinfo.FileInfo, error) {
	return d.Engine.GetInfo(relPath)
}

// SetPlaceholders recompiles the dataset's template with a new set of user
// placeholder regexes, replacing the ones given at construction time.
func (d *Dataset) SetPlaceholders(placeholders map[string]string) error {
	matcher, err := template.Compile(d.Template, placeholders)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.Matcher = matcher
	d.Placeholders = placeholders
	d.Engine.Matcher = matcher
	d.mu.Unlock()
	return nil
}

// LoadInfoCache reloads the on-disk file-info cache, if one is configured.
func (d *Dataset) LoadInfoCache() error {
	if d.Cache == nil {
		return nil
	}
	return d.Cache.Load()
}

// SaveInfoCache persists the in-memory file-info cache, if one is
// configured.
func (d *Dataset) SaveInfoCache() error {
	if d.Cache == nil {
		return nil
	}
	return d.Cache.Save()
}

// Read decodes the content of fi using the dataset's handler registry.
func (d *Dataset) Read(fi fileinfo.FileInfo) (handler.Content, error) {
	h, _, err := d.Registry.Lookup(fi.Path)
	if err != nil {
		return handler.Content{}, err
	}
	return h.Read(filepath.Join(d.Root, fi.Path))
}

// Write encodes content via the dataset's handler registry and writes it to
// relPath (creating parent directories as needed), then returns the
// resulting FileInfo.
func (d *Dataset) Write(relPath string, content handler.Content) (fileinfo.FileInfo, error) {
	h, _, err := d.Registry.Lookup(relPath)
	if err != nil {
		return fileinfo.FileInfo{}, err
	}
	full := filepath.Join(d.Root, relPath)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fileinfo.FileInfo{}, err
	}
	if err := h.Write(full, content); err != nil {
		return fileinfo.FileInfo{}, err
	}
	return d.GetInfo(relPath)
}

// writeRaw atomically writes data to relPath under Root, independent of any
// handler (used by Copy and dispatch sinks, which move bytes rather than
// decoded Content).
func (d *Dataset) writeRaw(relPath string, data []byte) error {
	full := filepath.Join(d.Root, relPath)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	return safeio.WriteFileAtomicBackup(full, data, 0o644)
}

// Copy finds every file in d covering [start, end), renders a destination
// name from each file's coverage and attributes against dst's template, and
// copies the raw bytes across. It returns the FileInfo of every file
// written into dst.
func (d *Dataset) Copy(ctx context.Context, dst *Dataset, start, end time.Time) ([]fileinfo.FileInfo, error) {
	files, err := d.Collect(ctx, start, end)
	if err != nil {
		return nil, err
	}

	if dst.Matcher.SingleFile && len(files) > 1 {
		return nil, fmt.Errorf("%w: %d files match %q in %q", tempoerr.ErrMultiToSingle, len(files), d.Matcher.Template, dst.Matcher.Template)
	}

	written := make([]fileinfo.FileInfo, 0, len(files))
	for _, fi := range files {
		data, err := os.ReadFile(filepath.Join(d.Root, fi.Path))
		if err != nil {
			return written, err
		}

		destName, err := dst.GenerateFilename(fi.Times[0], fi.Times[1], fi.Attrs)
		if err != nil {
			return written, err
		}

		if err := dst.writeRaw(destName, data); err != nil {
			return written, err
		}
		info, err := dst.GetInfo(destName)
		if err != nil {
			return written, err
		}
		written = append(written, info)
	}
	return written, nil
}

// JoinPair is one matched pair from OverlapsWith: a file from the receiver
// whose coverage overlaps a file from other.
type JoinPair struct {
	Left, Right fileinfo.FileInfo
}

// OverlapsWith finds every file in d and other covering [start, end) and
// returns every pair whose time coverage overlaps, using an interval tree
// over other's files so the join costs O(n log n + k) rather than O(n*m).
func (d *Dataset) OverlapsWith(ctx context.Context, other *Dataset, start, end time.Time) ([]JoinPair, error) {
	left, err := d.Collect(ctx, start, end)
	if err != nil {
		return nil, err
	}
	right, err := other.Collect(ctx, start, end)
	if err != nil {
		return nil, err
	}

	rightIvs := make([]interval.Interval, len(right))
	for i, fi := range right {
		rightIvs[i] = interval.Interval{Start: fi.Times[0].UnixNano(), End: fi.Times[1].UnixNano()}
	}
	tree := interval.New(rightIvs)

	queries := make([]interval.Interval, len(left))
	for i, fi := range left {
		queries[i] = interval.Interval{Start: fi.Times[0].UnixNano(), End: fi.Times[1].UnixNano()}
	}
	matches := tree.QueryIntervals(queries)

	var pairs []JoinPair
	for i, idxs := range matches {
		for _, j := range idxs {
			pairs = append(pairs, JoinPair{Left: left[i], Right: right[j]})
		}
	}
	return pairs, nil
}

// Link records a named edge to another dataset (e.g. a derived product
// pointing back at its source), rejecting the link if it would create a
// cycle in the link graph.
func (d *Dataset) Link(name string, other *Dataset) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if reachable(other, d, map[*Dataset]bool{}) {
		return tempoerr.ErrLinkCycle
	}
	if d.links == nil {
		d.links = make(map[string]*Dataset)
	}
	d.links[name] = other
	return nil
}

// Dislink removes a previously established link.
func (d *Dataset) Dislink(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.links, name)
}

// Linked returns the dataset registered under name, if any.
func (d *Dataset) Linked(name string) (*Dataset, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ds, ok := d.links[name]
	return ds, ok
}

func reachable(from, target *Dataset, visited map[*Dataset]bool) bool {
	if from == target {
		return true
	}
	if from == nil || visited[from] {
		return false
	}
	visited[from] = true
	from.mu.RLock()
	links := from.links
	from.mu.RUnlock()
	for _, next := range links {
		if reachable(next, target, visited) {
			return true
		}
	}
	return false
}

// Map runs f over files using the dataset's default dispatch settings
// (overridable per call via opts), reading each file's bytes first when
// opts.OnContent is set.
func (d *Dataset) Map(ctx context.Context, files []fileinfo.FileInfo, f dispatch.Func, opts dispatch.Options) ([]dispatch.Result, error) {
	return dispatch.Map(ctx, files, f, d.fillDispatchDefaults(opts))
}

// IMap is the streaming counterpart of Map.
func (d *Dataset) IMap(ctx context.Context, files []fileinfo.FileInfo, f dispatch.Func, opts dispatch.Options) *dispatch.ResultStream {
	return dispatch.IMap(ctx, files, f, d.fillDispatchDefaults(opts))
}

func (d *Dataset) fillDispatchDefaults(opts dispatch.Options) dispatch.Options {
	if opts.MaxWorkers == 0 {
		opts.MaxWorkers = d.dispatchOpts.MaxWorkers
	}
	if opts.WorkerType == dispatch.ThreadWorker {
		opts.WorkerType = d.dispatchOpts.WorkerType
	}
	if opts.OnContent && opts.Reader == nil {
		root := d.Root
		opts.Reader = func(fi fileinfo.FileInfo) ([]byte, error) {
			return os.ReadFile(filepath.Join(root, fi.Path))
		}
	}
	return opts
}

// SinkInto builds a dispatch.Sink that renders filenames against dst's
// template and writes raw []byte return values into dst, for use as a Map
// or IMap sink when the worker function's result is the new file's bytes.
func SinkInto(dst *Dataset) *dispatch.Sink {
	return &dispatch.Sink{
		Render: func(fi fileinfo.FileInfo) (string, error) {
			return dst.GenerateFilename(fi.Times[0], fi.Times[1], fi.Attrs)
		},
		Write: func(relPath string, value any) error {
			data, ok := value.([]byte)
			if !ok {
				return fmt.Errorf("tempo: dispatch sink expects []byte, got %T", value)
			}
			return dst.writeRaw(relPath, data)
		},
	}
}
