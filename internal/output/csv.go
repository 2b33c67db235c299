// internal/output/csv.go
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// csvHeader is the canonical per-site CSV header; keep it as the single
// source of truth.
var csvHeader = []string{"refName", "tpl", "strand", "base", "score", "ipdRatio", "coverage", "modification"}

// CSVSink writes one CSV row per called site.
type CSVSink struct {
	w      *csv.Writer
	closer io.Closer
	closed bool
}

func NewCSVFile(path string) (*CSVSink, error) {
	fh, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	s := &CSVSink{w: csv.NewWriter(fh), closer: fh}
	if err := s.w.Write(csvHeader); err != nil {
		fh.Close()
		return nil, err
	}
	return s, nil
}

// NewCSV writes to an arbitrary writer; used by tests.
func NewCSV(w io.Writer) (*CSVSink, error) {
	s := &CSVSink{w: csv.NewWriter(w)}
	if err := s.w.Write(csvHeader); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *CSVSink) Write(rec Record) error {
	for _, site := range rec.Payload {
		row := []string{
			site.RefID,
			strconv.Itoa(site.Pos),
			string(site.Strand),
			string(site.Base),
			fmt.Sprintf("%.1f", site.Score),
			fmt.Sprintf("%.2f", site.IPDRatio),
			strconv.Itoa(site.Coverage),
			site.Mod,
		}
		if err := s.w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func (s *CSVSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.w.Flush()
	err := s.w.Error()
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
