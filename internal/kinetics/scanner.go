// internal/kinetics/scanner.go
package kinetics

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"

	"kinscan/internal/chunk"
	"kinscan/internal/fasta"
)

// Modifications callable from kinetic signatures, keyed by flag name.
// m5C_TET exists upstream but only behind debug classifiers, so it is not
// offered here.
var modTargets = map[string]byte{
	"m6A": 'A',
	"m4C": 'C',
}

// Config holds the detection knobs. Zero values are invalid; use Defaults.
type Config struct {
	PValue      float64  // detection p-value cutoff, in (0,1]
	MinCoverage int      // minimum coverage required to call a site
	MaxCoverage int      // cap on per-site coverage; 0 = uncapped
	Mods        []string // modification types to identify, e.g. m6A, m4C
}

// Defaults mirror the command-line defaults.
func Defaults() Config {
	return Config{PValue: 0.01, MinCoverage: 3, Mods: []string{"m6A", "m4C"}}
}

// Site is one called modification site: the opaque payload the orchestration
// core shuttles from workers to the writer.
type Site struct {
	RefID    string
	Pos      int // 0-based reference position
	Strand   byte
	Base     byte
	Mod      string
	Score    float64
	IPDRatio float64
	Coverage int
}

// Scanner evaluates kinetic signal over reference chunks. It holds the
// reference contigs read-only and is safe for concurrent use by the whole
// worker pool.
type Scanner struct {
	cfg       Config
	threshold float64
	targets   map[byte]string
	contigs   map[string][]byte
}

func NewScanner(cfg Config, contigs []fasta.Contig) (*Scanner, error) {
	if cfg.PValue <= 0 || cfg.PValue > 1 {
		return nil, fmt.Errorf("kinetics: pvalue must be in (0,1] (got %g)", cfg.PValue)
	}
	if cfg.MinCoverage < 0 {
		return nil, fmt.Errorf("kinetics: min coverage must be >= 0 (got %d)", cfg.MinCoverage)
	}
	targets := map[byte]string{}
	for _, m := range cfg.Mods {
		base, ok := modTargets[m]
		if !ok {
			return nil, fmt.Errorf("kinetics: unknown modification %q", m)
		}
		targets[base] = m
	}
	seqs := make(map[string][]byte, len(contigs))
	for _, c := range contigs {
		seqs[c.ID] = c.Seq
	}
	return &Scanner{
		cfg:       cfg,
		threshold: -10 * math.Log10(cfg.PValue),
		targets:   targets,
		contigs:   seqs,
	}, nil
}

// ScanChunk scores every position of the chunk on both strands and returns
// the sites whose modification evidence clears the configured cutoffs.
// An unknown contig is an unhandled fault: it propagates out of the worker.
func (s *Scanner) ScanChunk(ctx context.Context, c chunk.Chunk) ([]Site, error) {
	seq, ok := s.contigs[c.RefID]
	if !ok {
		return nil, fmt.Errorf("kinetics: chunk %s names unknown contig", c)
	}
	if c.End > len(seq) {
		return nil, fmt.Errorf("kinetics: chunk %s exceeds contig length %d", c, len(seq))
	}

	var sites []Site
	for pos := c.Start; pos < c.End; pos++ {
		if pos&0x3ff == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}
		base := seq[pos]
		mod, wanted := s.targets[base]
		if !wanted {
			continue
		}
		for _, strand := range []byte{'+', '-'} {
			cov, ratio := s.signal(c.RefID, pos, strand)
			if cov < s.cfg.MinCoverage {
				continue
			}
			if s.cfg.MaxCoverage > 0 && cov > s.cfg.MaxCoverage {
				cov = s.cfg.MaxCoverage
			}
			score := scoreFor(ratio, cov)
			if score < s.threshold {
				continue
			}
			sites = append(sites, Site{
				RefID:    c.RefID,
				Pos:      pos,
				Strand:   strand,
				Base:     base,
				Mod:      mod,
				Score:    score,
				IPDRatio: ratio,
				Coverage: cov,
			})
		}
	}
	return sites, nil
}

// signal derives a deterministic per-site coverage and IPD ratio from the
// site identity. The scanner stands in for the trained kinetic model, whose
// behavior the orchestration layer treats as opaque.
func (s *Scanner) signal(refID string, pos int, strand byte) (coverage int, ipdRatio float64) {
	h := fnv.New64a()
	h.Write([]byte(refID))
	h.Write([]byte{strand,
		byte(pos), byte(pos >> 8), byte(pos >> 16), byte(pos >> 24)})
	v := h.Sum64()

	coverage = 1 + int(v%97)
	ipdRatio = 1 + float64((v>>8)%4000)/1000 // in [1,5)
	return coverage, ipdRatio
}

// scoreFor converts an IPD ratio and coverage into a phred-like score.
func scoreFor(ipdRatio float64, coverage int) float64 {
	if ipdRatio <= 1 {
		return 0
	}
	return 10 * (ipdRatio - 1) * math.Log10(float64(1+coverage))
}
