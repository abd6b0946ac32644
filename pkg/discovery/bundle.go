package discovery

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/cairnfield/tempo/pkg/fileinfo"
)

// BundleSpec configures post-discovery grouping of a sorted result set
// (spec §4.7 step 8). Exactly one of Count/Freq should be set; the zero
// value groups nothing (callers should check IsZero first).
type BundleSpec struct {
	Count int           // fixed-size consecutive groups
	Freq  time.Duration // group by floor(start time, Freq)
}

func (b BundleSpec) IsZero() bool { return b.Count == 0 && b.Freq == 0 }

// Bundle sorts files by start time ascending and groups them per spec.
func Bundle(files []fileinfo.FileInfo, spec BundleSpec) [][]fileinfo.FileInfo {
	sorted := make([]fileinfo.FileInfo, len(files))
	copy(sorted, files)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Times[0].Before(sorted[j].Times[0])
	})

	if spec.Count > 0 {
		var groups [][]fileinfo.FileInfo
		for i := 0; i < len(sorted); i += spec.Count {
			end := i + spec.Count
			if end > len(sorted) {
				end = len(sorted)
			}
			groups = append(groups, sorted[i:end])
		}
		return groups
	}

	if spec.Freq > 0 {
		var groups [][]fileinfo.FileInfo
		var cur []fileinfo.FileInfo
		var curFloor time.Time
		for _, fi := range sorted {
			floor := fi.Times[0].Truncate(spec.Freq)
			if cur == nil || floor.Equal(curFloor) {
				if cur == nil {
					curFloor = floor
				}
				cur = append(cur, fi)
				continue
			}
			groups = append(groups, cur)
			cur = []fileinfo.FileInfo{fi}
			curFloor = floor
		}
		if len(cur) > 0 {
			groups = append(groups, cur)
		}
		return groups
	}

	return [][]fileinfo.FileInfo{sorted}
}

// FindClosest resolves the file whose coverage is nearest timestamp. It
// first tries a direct filename render (the fast path for datasets where
// attrs fully determine the path); if that file exists, it is returned
// without a directory walk. Otherwise it searches a window of
// +/- SubDirTimeResolution around timestamp and picks the closest match.
func (e *Engine) FindClosest(ctx context.Context, timestamp time.Time, attrs map[string]string) (*fileinfo.FileInfo, error) {
	if !e.Matcher.SingleFile && e.Matcher.IsTemporal() {
		if name, err := e.Matcher.Render(timestamp, timestamp, attrs); err == nil {
			full := filepath.Join(e.Root, name)
			if st, statErr := os.Stat(full); statErr == nil {
				relPath, _ := filepath.Rel(e.Root, full)
				captures, parseErr := e.Matcher.Parse(filepath.ToSlash(relPath))
				if parseErr == nil {
					fi, infoErr := e.getInfo(full, relPath, captures)
					if infoErr == nil {
						fi.ModTime = st.ModTime()
						return &fi, nil
					}
				}
			}
		}
	}

	window := time.Duration(0)
	if e.Matcher.SubDirTimeResolution != 0 {
		window = unitApproxDuration(e.Matcher.SubDirTimeResolution)
	}
	files, err := e.Find(ctx, Options{Start: timestamp.Add(-window), End: timestamp.Add(window)})
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, nil
	}

	var best *fileinfo.FileInfo
	var bestDist time.Duration
	for i := range files {
		fi := files[i]
		if !fi.Times[0].After(timestamp) && !fi.Times[1].Before(timestamp) {
			return &fi, nil
		}
		dist := fi.Times[0].Sub(timestamp)
		if dist < 0 {
			dist = -dist
		}
		endDist := fi.Times[1].Sub(timestamp)
		if endDist < 0 {
			endDist = -endDist
		}
		if endDist < dist {
			dist = endDist
		}
		if best == nil || dist < bestDist {
			best, bestDist = &fi, dist
		}
	}
	return best, nil
}
