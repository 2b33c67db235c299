// internal/output/gff.go
package output

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"kinscan/internal/kinetics"
	"kinscan/internal/version"
	"kinscan/internal/worker"
)

// Record is the result type all sinks consume: the called sites of one chunk.
type Record = worker.Result[[]kinetics.Site]

// GFFSink writes called modification sites as GFF3 feature lines, one per
// site, in the order records arrive. It owns its output handle.
type GFFSink struct {
	w      *bufio.Writer
	closer io.Closer
	closed bool
}

// NewGFFFile creates path and writes the GFF3 header, stamped with the run
// identifier for provenance.
func NewGFFFile(path, runID string) (*GFFSink, error) {
	fh, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	s := &GFFSink{w: bufio.NewWriter(fh), closer: fh}
	if err := s.header(runID); err != nil {
		fh.Close()
		return nil, err
	}
	return s, nil
}

// NewGFF writes to an arbitrary writer; used by tests.
func NewGFF(w io.Writer, runID string) (*GFFSink, error) {
	s := &GFFSink{w: bufio.NewWriter(w)}
	if err := s.header(runID); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *GFFSink) header(runID string) error {
	_, err := fmt.Fprintf(s.w, "##gff-version 3\n##source kinscan v%s\n##run-id %s\n", version.Version, runID)
	return err
}

func (s *GFFSink) Write(rec Record) error {
	for _, site := range rec.Payload {
		_, err := fmt.Fprintf(s.w, "%s\tkinscan\t%s\t%d\t%d\t%.1f\t%c\t.\tcoverage=%d;IPDRatio=%.2f\n",
			site.RefID, site.Mod,
			site.Pos+1, site.Pos+1, // GFF is 1-based, end-inclusive
			site.Score, site.Strand,
			site.Coverage, site.IPDRatio)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *GFFSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.w.Flush()
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
