// Package handler adapts dataset files' on-disk formats to a uniform
// read/write/merge contract. A Registry maps a file extension (after
// stripping a recognized compression suffix) to the Handler responsible
// for it.
package handler

import (
	"fmt"
	"os"
	"strings"

	"github.com/cairnfield/tempo/pkg/fileinfo"
	"github.com/cairnfield/tempo/pkg/tempoerr"
)

// Content is a handler's in-memory representation of one file's data: a
// header row plus the data rows beneath it.
type Content struct {
	Header []string
	Rows   [][]string
}

// Handler reads, writes, and merges files of one or more related formats.
type Handler interface {
	// Extensions lists the (uncompressed) file extensions this handler owns,
	// e.g. [".csv"].
	Extensions() []string
	Read(path string) (Content, error)
	Write(path string, content Content) error
	// GetInfo returns handler-specific metadata (size, mod time) for path.
	GetInfo(path string) (fileinfo.FileInfo, error)
	// HandleCompressionFormats lists compression suffixes (e.g. ".gz") this
	// handler can transparently read through.
	HandleCompressionFormats() []string
	// DataMerger concatenates same-shaped Content values (identical headers)
	// into one, for dataset-wide aggregate reads across multiple files.
	DataMerger(contents []Content) (Content, error)
}

// compressionSuffixes are stripped from a filename before extension lookup.
var compressionSuffixes = []string{".gz", ".bz2", ".zip", ".xz"}

// StripCompressionSuffix removes a trailing recognized compression suffix
// from name, reporting which suffix (if any) was removed.
func StripCompressionSuffix(name string) (stripped string, suffix string) {
	for _, s := range compressionSuffixes {
		if strings.HasSuffix(name, s) {
			return strings.TrimSuffix(name, s), s
		}
	}
	return name, ""
}

// Registry maps a file extension to the Handler that owns it.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register associates ext (e.g. ".csv") with h. Registering the same
// extension twice overwrites the previous association.
func (r *Registry) Register(ext string, h Handler) {
	r.handlers[ext] = h
}

// Lookup resolves the Handler for filename, stripping any recognized
// compression suffix first. It returns ErrNoHandler if no handler is
// registered for the resulting extension.
func (r *Registry) Lookup(filename string) (Handler, string, error) {
	base, compSuffix := StripCompressionSuffix(filename)
	ext := extOf(base)
	h, ok := r.handlers[ext]
	if !ok {
		return nil, "", fmt.Errorf("%w: no handler for extension %q", tempoerr.ErrNoHandler, ext)
	}
	return h, compSuffix, nil
}

func extOf(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return ""
	}
	return name[i:]
}

// DefaultRegistry returns a Registry with the built-in handlers registered:
// a working CSVHandler for ".csv"/".txt"/".asc", and NetCDFHandler stubs for
// ".nc"/".h5" that fail at call time (a real NetCDF/HDF5 codec is out of
// scope).
func DefaultRegistry() *Registry {
	r := NewRegistry()
	csvHandler := CSVHandler{}
	for _, ext := range csvHandler.Extensions() {
		r.Register(ext, csvHandler)
	}
	nc := NetCDFHandler{}
	r.Register(".nc", nc)
	r.Register(".h5", nc)
	return r
}

// GetInfoStat is a handler-agnostic helper that fills the filesystem-derived
// fields of a FileInfo (size, mod time) from os.Stat.
func GetInfoStat(path string) (fileinfo.FileInfo, error) {
	st, err := os.Stat(path)
	if err != nil {
		return fileinfo.FileInfo{}, err
	}
	return fileinfo.FileInfo{
		Path:    path,
		ModTime: st.ModTime(),
		Size:    st.Size(),
	}, nil
}
