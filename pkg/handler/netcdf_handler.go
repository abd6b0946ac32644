package handler

import (
	"fmt"

	"github.com/cairnfield/tempo/pkg/fileinfo"
	"github.com/cairnfield/tempo/pkg/tempoerr"
)

// NetCDFHandler registers the extension/factory shape for NetCDF and HDF5
// files without implementing a real codec: a binary NetCDF/HDF5 reader is
// out of scope, but datasets templated over ".nc"/".h5" should still fail
// with a clear, typed error rather than "no handler for extension".
type NetCDFHandler struct{}

func (h NetCDFHandler) Extensions() []string              { return []string{".nc", ".h5"} }
func (h NetCDFHandler) HandleCompressionFormats() []string { return nil }

func (h NetCDFHandler) Read(path string) (Content, error) {
	return Content{}, fmt.Errorf("%w: NetCDF/HDF5 decoding is not implemented", tempoerr.ErrNoHandler)
}

func (h NetCDFHandler) Write(path string, content Content) error {
	return fmt.Errorf("%w: NetCDF/HDF5 encoding is not implemented", tempoerr.ErrNoHandler)
}

func (h NetCDFHandler) GetInfo(path string) (fileinfo.FileInfo, error) {
	return GetInfoStat(path)
}

func (h NetCDFHandler) DataMerger(contents []Content) (Content, error) {
	return Content{}, fmt.Errorf("%w: NetCDF/HDF5 merging is not implemented", tempoerr.ErrNoHandler)
}
