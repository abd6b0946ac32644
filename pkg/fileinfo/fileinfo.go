// Package fileinfo defines the per-file metadata record tracked by the
// dataset cache: path, temporal coverage, and user-placeholder attributes.
package fileinfo

import (
	"time"
)

// FileInfo describes one file discovered under a dataset's template.
// Times is a two-element [start, end] pair; for non-temporal datasets
// NewNonTemporal sets it to the (-inf, +inf) sentinel range that IsTemporal
// checks for.
type FileInfo struct {
	Path       string            `json:"path"`
	Times      [2]time.Time      `json:"times"`
	Attrs      map[string]string `json:"attrs"`
	ModTime    time.Time         `json:"mod_time"`
	Size       int64             `json:"size"`
	Compressed string            `json:"compressed,omitempty"`
}

// negInf/posInf bound the coverage of a non-temporal (single, or
// placeholder-only) file — it is considered to overlap any query interval.
var (
	negInf = time.Unix(-1<<62, 0).UTC()
	posInf = time.Unix(1<<62, 0).UTC()
)

// NewNonTemporal builds a FileInfo whose coverage spans (-inf, +inf), for
// datasets without any temporal placeholder.
func NewNonTemporal(path string, attrs map[string]string) FileInfo {
	return FileInfo{
		Path:  path,
		Times: [2]time.Time{negInf, posInf},
		Attrs: attrs,
	}
}

// IsTemporal reports whether fi carries real (non-infinite) time coverage.
func (fi FileInfo) IsTemporal() bool {
	return fi.Times[0] != negInf || fi.Times[1] != posInf
}

// Copy returns a deep copy of fi (Attrs map is cloned).
func (fi FileInfo) Copy() FileInfo {
	out := fi
	if fi.Attrs != nil {
		out.Attrs = make(map[string]string, len(fi.Attrs))
		for k, v := range fi.Attrs {
			out.Attrs[k] = v
		}
	}
	return out
}

// Update overlays non-zero/non-empty fields from other onto a copy of fi and
// returns the result; fi itself is left untouched.
func (fi FileInfo) Update(other FileInfo) FileInfo {
	out := fi.Copy()
	if other.Path != "" {
		out.Path = other.Path
	}
	if !other.Times[0].IsZero() || !other.Times[1].IsZero() {
		out.Times = other.Times
	}
	if !other.ModTime.IsZero() {
		out.ModTime = other.ModTime
	}
	if other.Size != 0 {
		out.Size = other.Size
	}
	if other.Compressed != "" {
		out.Compressed = other.Compressed
	}
	for k, v := range other.Attrs {
		if out.Attrs == nil {
			out.Attrs = make(map[string]string)
		}
		out.Attrs[k] = v
	}
	return out
}

// Serializable is the JSON-friendly wire form of a FileInfo: times are
// encoded as RFC3339Nano strings (or the literal sentinels "-inf"/"+inf").
type Serializable struct {
	Path       string            `json:"path"`
	Start      string            `json:"start"`
	End        string            `json:"end"`
	Attrs      map[string]string `json:"attrs,omitempty"`
	ModTime    string            `json:"mod_time"`
	Size       int64             `json:"size"`
	Compressed string            `json:"compressed,omitempty"`
}

// ToSerializable converts fi to its wire form.
func (fi FileInfo) ToSerializable() Serializable {
	return Serializable{
		Path:       fi.Path,
		Start:      encodeTime(fi.Times[0]),
		End:        encodeTime(fi.Times[1]),
		Attrs:      fi.Attrs,
		ModTime:    fi.ModTime.UTC().Format(time.RFC3339Nano),
		Size:       fi.Size,
		Compressed: fi.Compressed,
	}
}

// FromSerializable reconstructs a FileInfo from its wire form.
func FromSerializable(s Serializable) (FileInfo, error) {
	start, err := decodeTime(s.Start)
	if err != nil {
		return FileInfo{}, err
	}
	end, err := decodeTime(s.End)
	if err != nil {
		return FileInfo{}, err
	}
	modTime, err := time.Parse(time.RFC3339Nano, s.ModTime)
	if err != nil {
		modTime = time.Time{}
	}
	return FileInfo{
		Path:       s.Path,
		Times:      [2]time.Time{start, end},
		Attrs:      s.Attrs,
		ModTime:    modTime,
		Size:       s.Size,
		Compressed: s.Compressed,
	}, nil
}

func encodeTime(t time.Time) string {
	switch t {
	case negInf:
		return "-inf"
	case posInf:
		return "+inf"
	default:
		return t.UTC().Format(time.RFC3339Nano)
	}
}

func decodeTime(s string) (time.Time, error) {
	switch s {
	case "-inf":
		return negInf, nil
	case "+inf":
		return posInf, nil
	default:
		return time.Parse(time.RFC3339Nano, s)
	}
}

// Diff reports the field names that differ between a and b (shallow compare
// of Path/Times/ModTime/Size/Compressed; Attrs compared key-by-key).
func Diff(a, b FileInfo) []string {
	var diffs []string
	if a.Path != b.Path {
		diffs = append(diffs, "path")
	}
	if a.Times != b.Times {
		diffs = append(diffs, "times")
	}
	if !a.ModTime.Equal(b.ModTime) {
		diffs = append(diffs, "mod_time")
	}
	if a.Size != b.Size {
		diffs = append(diffs, "size")
	}
	if a.Compressed != b.Compressed {
		diffs = append(diffs, "compressed")
	}
	if len(a.Attrs) != len(b.Attrs) {
		diffs = append(diffs, "attrs")
	} else {
		for k, v := range a.Attrs {
			if b.Attrs[k] != v {
				diffs = append(diffs, "attrs")
				break
			}
		}
	}
	return diffs
}
