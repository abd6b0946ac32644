package handler

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cairnfield/tempo/pkg/fileinfo"
	"github.com/cairnfield/tempo/pkg/tempoerr"
)

// CSVHandler reads and writes pipe-agnostic delimited text files, mirroring
// the encoding/csv idiom used to ingest fixed-width event logs: a header
// row followed by data rows; rows may differ in field count, and comment
// lines are not recognised.
type CSVHandler struct {
	// Comma is the field delimiter. The zero value defaults to ','.
	Comma rune
}

func (h CSVHandler) Extensions() []string { return []string{".csv", ".txt", ".asc"} }

func (h CSVHandler) HandleCompressionFormats() []string {
	return nil
}

func (h CSVHandler) comma() rune {
	if h.Comma == 0 {
		return ','
	}
	return h.Comma
}

func (h CSVHandler) Read(path string) (Content, error) {
	f, err := os.Open(path)
	if err != nil {
		return Content{}, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = h.comma()
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return Content{}, nil
		}
		return Content{}, fmt.Errorf("handler: csv header: %w", err)
	}

	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Content{}, fmt.Errorf("handler: csv row: %w", err)
		}
		rows = append(rows, row)
	}
	return Content{Header: header, Rows: rows}, nil
}

func (h CSVHandler) Write(path string, content Content) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = h.comma()
	if err := w.Write(content.Header); err != nil {
		return err
	}
	for _, row := range content.Rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func (h CSVHandler) GetInfo(path string) (fileinfo.FileInfo, error) {
	return GetInfoStat(path)
}

// DataMerger concatenates rows from contents that share an identical
// header, in order. Mismatched headers fail with ErrInhomogeneousFiles.
func (h CSVHandler) DataMerger(contents []Content) (Content, error) {
	if len(contents) == 0 {
		return Content{}, nil
	}
	merged := Content{Header: contents[0].Header}
	for _, c := range contents {
		if strings.Join(c.Header, ",") != strings.Join(merged.Header, ",") {
			return Content{}, fmt.Errorf("%w: csv headers differ (%v vs %v)", tempoerr.ErrInhomogeneousFiles, merged.Header, c.Header)
		}
		merged.Rows = append(merged.Rows, c.Rows...)
	}
	return merged, nil
}
