// Package discovery implements the pruned directory walk that turns a
// compiled template plus a time window into the set of files on disk that
// satisfy it, without statting every file under the dataset root.
package discovery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/text/unicode/norm"

	"github.com/cairnfield/tempo/pkg/audit"
	"github.com/cairnfield/tempo/pkg/cache"
	"github.com/cairnfield/tempo/pkg/fileinfo"
	"github.com/cairnfield/tempo/pkg/handler"
	"github.com/cairnfield/tempo/pkg/interval"
	"github.com/cairnfield/tempo/pkg/metrics"
	"github.com/cairnfield/tempo/pkg/template"
	"github.com/cairnfield/tempo/pkg/tempoerr"
)

// Filter is one attribute filter entry: Name (prefixed with "!" for a
// blacklist), matched against one or more acceptable Values.
type Filter struct {
	Name   string
	Values []string
}

func (f Filter) isBlacklist() bool { return len(f.Name) > 0 && f.Name[0] == '!' }
func (f Filter) attrName() string {
	if f.isBlacklist() {
		return f.Name[1:]
	}
	return f.Name
}

// Options configures one Find call.
type Options struct {
	Start        time.Time
	End          time.Time
	Filters      []Filter
	Sort         bool
	NoFilesError bool
	// Exclude, when non-nil, reports whether a relative path must be
	// skipped (e.g. a cached "known bad" entry).
	Exclude func(relPath string) bool
	// Exclusions shadows any file whose time coverage overlaps a stored
	// interval (spec.md §3 "Exclusion set"); nil disables this filter.
	Exclusions *interval.Tree
}

// excluded reports whether fi's coverage overlaps any interval in tree.
func excluded(tree *interval.Tree, fi fileinfo.FileInfo) bool {
	if tree == nil || tree.Len() == 0 {
		return false
	}
	return tree.Overlaps(fi.Times[0].UnixNano(), fi.Times[1].UnixNano())
}

// Logger is the minimal logging surface the engine needs.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// Engine walks Root according to Matcher, optionally consulting Cache to
// avoid re-statting unchanged files.
type Engine struct {
	Root     string
	Matcher  *template.Matcher
	Registry *handler.Registry
	Cache    *cache.Cache
	Logger   Logger
}

// NewEngine builds an Engine. registry and c may be nil.
func NewEngine(root string, matcher *template.Matcher, registry *handler.Registry, c *cache.Cache, logger Logger) *Engine {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Engine{Root: root, Matcher: matcher, Registry: registry, Cache: c, Logger: logger}
}

type candidate struct {
	dir   string
	attrs map[string]string
}

// Find runs the pruned walk and returns matches in discovery order (or
// sorted by start time ascending if opts.Sort is set). Bundling by count or
// frequency is a separate concern handled by Bundle.
func (e *Engine) Find(ctx context.Context, opts Options) ([]fileinfo.FileInfo, error) {
	if opts.End.Before(opts.Start) {
		return nil, fmt.Errorf("tempo: end %s precedes start %s", opts.End, opts.Start)
	}
	queryEnd := opts.End.Add(-time.Microsecond)
	runID := audit.NewRunID()

	var results []fileinfo.FileInfo

	if e.Matcher.SingleFile {
		path := filepath.Join(e.Root, e.Matcher.Template)
		fi, err := e.getInfo(path, e.Matcher.Template, nil)
		if err == nil && fi.Times[0].Compare(queryEnd) <= 0 && fi.Times[1].Compare(opts.Start) >= 0 && !excluded(opts.Exclusions, fi) {
			results = append(results, fi)
		}
		return e.finish(results, opts)
	}

	dirStart := opts.Start
	if e.Matcher.SubDirTimeResolution != template.UnitNone {
		dirStart = subtractUnit(opts.Start, e.Matcher.SubDirTimeResolution)
	}

	set := []candidate{{dir: filepath.Join(e.Root, e.Matcher.BaseDir), attrs: map[string]string{}}}

	for _, chunk := range e.Matcher.SubDirChunks {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		var next []candidate
		if !chunk.HasSpecial {
			for _, c := range set {
				next = append(next, candidate{dir: filepath.Join(c.dir, chunk.Raw), attrs: c.attrs})
			}
			set = next
			continue
		}

		for _, c := range set {
			entries, err := os.ReadDir(c.dir)
			if err != nil {
				if !os.IsNotExist(err) {
					e.Logger.Warn("discovery: read dir failed", "run_id", runID, "dir", c.dir, "error", err.Error())
				}
				continue
			}
			for _, entry := range entries {
				if !entry.IsDir() {
					continue
				}
				m := chunk.Regex.FindStringSubmatch(entry.Name())
				if m == nil {
					continue
				}
				attrs := mergeAttrs(c.attrs, chunk.Regex.SubexpNames(), m)
				if chunk.FinestUnit != template.UnitNone {
					instant := approxInstant(attrs)
					low := truncateToUnit(dirStart, chunk.FinestUnit)
					high := truncateToUnit(opts.End, chunk.FinestUnit)
					high = addUnit(high, chunk.FinestUnit)
					if instant.Before(low) || !instant.Before(high) {
						continue
					}
				}
				next = append(next, candidate{dir: filepath.Join(c.dir, entry.Name()), attrs: attrs})
			}
		}
		set = next
	}

	for _, c := range set {
		entries, err := os.ReadDir(c.dir)
		if err != nil {
			if !os.IsNotExist(err) {
				e.Logger.Warn("discovery: read dir failed", "run_id", runID, "dir", c.dir, "error", err.Error())
			}
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			full := filepath.Join(c.dir, entry.Name())
			relPath, err := filepath.Rel(e.Root, full)
			if err != nil {
				continue
			}
			captures, err := e.Matcher.Parse(filepath.ToSlash(relPath))
			if err != nil {
				continue
			}
			if opts.Exclude != nil && opts.Exclude(relPath) {
				continue
			}
			if !passesFilters(captures, opts.Filters) {
				continue
			}
			fi, err := e.getInfo(full, relPath, captures)
			if err != nil {
				continue
			}
			if fi.Times[0].Compare(queryEnd) <= 0 && fi.Times[1].Compare(opts.Start) >= 0 && !excluded(opts.Exclusions, fi) {
				results = append(results, fi)
			}
		}
	}

	return e.finish(results, opts)
}

func (e *Engine) finish(results []fileinfo.FileInfo, opts Options) ([]fileinfo.FileInfo, error) {
	if opts.NoFilesError && len(results) == 0 {
		return nil, tempoerr.ErrNoFiles
	}
	if opts.Sort {
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Times[0].Before(results[j].Times[0])
		})
	}
	metrics.Default().FilesDiscovered(e.Matcher.Template, len(results))
	return results, nil
}

// GetInfo resolves the FileInfo for a single relative path, consulting Cache
// first, without running the directory walk. relPath must already match the
// template (discovery's Find is what locates it in the first place); GetInfo
// is for re-statting a path a caller already has in hand.
func (e *Engine) GetInfo(relPath string) (fileinfo.FileInfo, error) {
	full := filepath.Join(e.Root, relPath)
	var captures map[string]string
	if !e.Matcher.SingleFile {
		if c, err := e.Matcher.Parse(filepath.ToSlash(relPath)); err == nil {
			captures = c
		}
	}
	return e.getInfo(full, relPath, captures)
}

// getInfo builds the FileInfo for full (consulting Cache first when the
// on-disk mtime/size match the cached entry), or stats it fresh.
func (e *Engine) getInfo(full, relPath string, captures map[string]string) (fileinfo.FileInfo, error) {
	st, err := os.Stat(full)
	if err != nil {
		return fileinfo.FileInfo{}, err
	}

	if e.Cache != nil {
		if cached, ok := e.Cache.Get(relPath); ok && cached.ModTime.Equal(st.ModTime()) && cached.Size == st.Size() {
			metrics.Default().CacheHit()
			return cached, nil
		}
		metrics.Default().CacheMiss()
	}

	var fi fileinfo.FileInfo
	if captures == nil || !e.Matcher.IsTemporal() {
		fi = fileinfo.NewNonTemporal(relPath, e.Matcher.UserAttrs(captures))
	} else {
		start, end, terr := e.Matcher.ToTimeRange(captures)
		if terr != nil {
			return fileinfo.FileInfo{}, terr
		}
		fi = fileinfo.FileInfo{
			Path:  relPath,
			Times: [2]time.Time{start, end},
			Attrs: e.Matcher.UserAttrs(captures),
		}
	}
	fi.ModTime = st.ModTime()
	fi.Size = st.Size()

	if e.Cache != nil {
		e.Cache.Put(fi)
	}
	return fi, nil
}

func mergeAttrs(parent map[string]string, names []string, match []string) map[string]string {
	out := make(map[string]string, len(parent)+len(names))
	for k, v := range parent {
		out[k] = v
	}
	for i, n := range names {
		if n == "" {
			continue
		}
		out[n] = match[i]
	}
	return out
}

// approxInstant resolves a best-effort instant from a partial attrs map for
// directory-pruning purposes only; missing fields default like
// template.ToTimeRange's start side. It is intentionally approximate: the
// final per-file regex match in Find is what determines correctness.
func approxInstant(attrs map[string]string) time.Time {
	year, month, day := 0, 1, 1
	hour, minute, second := 0, 0, 0
	if v, ok := attrs["year"]; ok {
		fmt.Sscanf(v, "%d", &year)
	}
	if v, ok := attrs["year2"]; ok {
		var y2 int
		fmt.Sscanf(v, "%d", &y2)
		if y2 >= 65 {
			year = 1900 + y2
		} else {
			year = 2000 + y2
		}
	}
	if v, ok := attrs["month"]; ok {
		fmt.Sscanf(v, "%d", &month)
	}
	if v, ok := attrs["day"]; ok {
		fmt.Sscanf(v, "%d", &day)
	}
	if v, ok := attrs["hour"]; ok {
		fmt.Sscanf(v, "%d", &hour)
	}
	if v, ok := attrs["minute"]; ok {
		fmt.Sscanf(v, "%d", &minute)
	}
	if v, ok := attrs["second"]; ok {
		fmt.Sscanf(v, "%d", &second)
	}
	if v, ok := attrs["doy"]; ok {
		var doy int
		fmt.Sscanf(v, "%d", &doy)
		if doy > 0 {
			base := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, doy-1)
			month, day = int(base.Month()), base.Day()
		}
	}
	return time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
}

func truncateToUnit(t time.Time, u template.Unit) time.Time {
	switch u {
	case template.UnitYear:
		return time.Date(t.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	case template.UnitMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	case template.UnitDay:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	case template.UnitHour:
		return t.Truncate(time.Hour)
	case template.UnitMinute:
		return t.Truncate(time.Minute)
	case template.UnitSecond:
		return t.Truncate(time.Second)
	default:
		return t
	}
}

func addUnit(t time.Time, u template.Unit) time.Time {
	switch u {
	case template.UnitYear:
		return t.AddDate(1, 0, 0)
	case template.UnitMonth:
		return t.AddDate(0, 1, 0)
	case template.UnitDay:
		return t.AddDate(0, 0, 1)
	case template.UnitHour:
		return t.Add(time.Hour)
	case template.UnitMinute:
		return t.Add(time.Minute)
	case template.UnitSecond:
		return t.Add(time.Second)
	case template.UnitMillisecond:
		return t.Add(time.Millisecond)
	default:
		return t
	}
}

func subtractUnit(t time.Time, u template.Unit) time.Time {
	switch u {
	case template.UnitYear:
		return t.AddDate(-1, 0, 0)
	case template.UnitMonth:
		return t.AddDate(0, -1, 0)
	case template.UnitDay:
		return t.AddDate(0, 0, -1)
	case template.UnitHour:
		return t.Add(-time.Hour)
	case template.UnitMinute:
		return t.Add(-time.Minute)
	case template.UnitSecond:
		return t.Add(-time.Second)
	case template.UnitMillisecond:
		return t.Add(-time.Millisecond)
	default:
		return t
	}
}

func passesFilters(captures map[string]string, filters []Filter) bool {
	for _, f := range filters {
		val, present := captures[f.attrName()]
		matches := present && containsString(f.Values, val)
		if f.isBlacklist() {
			if matches {
				return false
			}
		} else if !matches {
			return false
		}
	}
	return true
}

// unitApproxDuration returns a conservative real-time upper bound for one
// unit of u, used only to size a pruning/search window (never for exact
// calendar arithmetic).
func unitApproxDuration(u template.Unit) time.Duration {
	switch u {
	case template.UnitYear:
		return 366 * 24 * time.Hour
	case template.UnitMonth:
		return 31 * 24 * time.Hour
	case template.UnitDay:
		return 24 * time.Hour
	case template.UnitHour:
		return time.Hour
	case template.UnitMinute:
		return time.Minute
	case template.UnitSecond:
		return time.Second
	case template.UnitMillisecond:
		return time.Millisecond
	default:
		return 0
	}
}

// containsString reports whether v matches any of vs, treating an entry
// containing a doublestar glob metacharacter as a glob pattern (so a filter
// value like "ABC*" or "[AB]CD" matches by shape, not just exact string
// equality) and everything else as a literal compared under Unicode NFC
// normalization (so a station code typed or captured under a different
// composed/decomposed form still matches).
func containsString(vs []string, v string) bool {
	vNorm := norm.NFC.String(v)
	for _, x := range vs {
		if x == v || norm.NFC.String(x) == vNorm {
			return true
		}
		if strings.ContainsAny(x, "*?[") {
			if ok, err := doublestar.Match(x, v); err == nil && ok {
				return true
			}
		}
	}
	return false
}
