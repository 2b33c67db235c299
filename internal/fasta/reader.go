// internal/fasta/reader.go
package fasta

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"
)

// Contig is one reference sequence, held read-only for the whole run.
type Contig struct {
	ID  string
	Seq []byte
}

func (c Contig) Len() int { return len(c.Seq) }

// LoadContigs reads every record from a FASTA file into memory.
// Sequences are uppercased. Supports plain and gzip files, and "-" for stdin.
func LoadContigs(path string) ([]Contig, error) {
	rc, err := openReader(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return ReadContigs(rc)
}

// ReadContigs parses FASTA records from r.
func ReadContigs(r io.Reader) ([]Contig, error) {
	br := bufio.NewReader(r)
	var (
		contigs []Contig
		id      string
		seq     []byte
		started bool
		seen    = map[string]struct{}{}
	)

	flush := func() error {
		if !started {
			if len(seq) > 0 {
				return fmt.Errorf("fasta: sequence data before first header")
			}
			return nil
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("fasta: duplicate contig id %q", id)
		}
		seen[id] = struct{}{}
		contigs = append(contigs, Contig{ID: id, Seq: bytes.Clone(seq)})
		return nil
	}

	for {
		line, err := br.ReadBytes('\n')
		eof := err == io.EOF
		if err != nil && !eof {
			return nil, fmt.Errorf("fasta: read: %w", err)
		}
		line = bytes.TrimRight(line, "\r\n")
		if len(line) > 0 && line[0] == '>' {
			if err := flush(); err != nil {
				return nil, err
			}
			id = headerID(line[1:])
			if id == "" {
				return nil, fmt.Errorf("fasta: empty header line")
			}
			started = true
			seq = seq[:0]
		} else if len(line) > 0 {
			seq = append(seq, bytes.ToUpper(line)...)
		}
		if eof {
			break
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	if len(contigs) == 0 {
		return nil, fmt.Errorf("fasta: no records found")
	}
	return contigs, nil
}

// Lengths maps contig id to sequence length.
func Lengths(contigs []Contig) map[string]int {
	m := make(map[string]int, len(contigs))
	for _, c := range contigs {
		m[c.ID] = len(c.Seq)
	}
	return m
}

func headerID(hdr []byte) string {
	f := strings.Fields(string(hdr))
	if len(f) == 0 {
		return ""
	}
	return f[0]
}

func openReader(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(path, ".gz") {
		gr, err := gzip.NewReader(fh)
		if err != nil {
			fh.Close()
			return nil, err
		}
		return struct {
			io.Reader
			io.Closer
		}{Reader: gr, Closer: fh}, nil
	}
	return fh, nil
}
