// internal/refwin/window.go
package refwin

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"kinscan/internal/fasta"
)

// ErrUnknownContig marks a window naming a contig absent from the reference.
var ErrUnknownContig = errors.New("refwin: unrecognized contig")

// Window is a contiguous half-open region [Start,End) of one reference
// contig. Windows are resolved before orchestration begins and are
// read-only afterwards.
type Window struct {
	RefID string
	Start int
	End   int
}

func (w Window) Len() int { return w.End - w.Start }

func (w Window) String() string {
	return fmt.Sprintf("%s:%d-%d", w.RefID, w.Start, w.End)
}

// FromContigs returns one window per contig covering the whole sequence.
// If maxLength > 0, each window is truncated to at most maxLength bases.
func FromContigs(contigs []fasta.Contig, maxLength int) []Window {
	wins := make([]Window, 0, len(contigs))
	for _, c := range contigs {
		end := c.Len()
		if maxLength > 0 && end > maxLength {
			end = maxLength
		}
		wins = append(wins, Window{RefID: c.ID, Start: 0, End: end})
	}
	return wins
}

// Parse resolves a window designation of the form "ref" or "ref:start-end"
// against known contig lengths. Coordinates are 0-based half-open and are
// clamped to the contig bounds.
func Parse(s string, lengths map[string]int) (Window, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Window{}, fmt.Errorf("refwin: empty window designation")
	}
	name, span, hasSpan := strings.Cut(s, ":")
	length, ok := lengths[name]
	if !ok {
		return Window{}, fmt.Errorf("%w %q", ErrUnknownContig, name)
	}
	if !hasSpan {
		return Window{RefID: name, Start: 0, End: length}, nil
	}

	startStr, endStr, ok := strings.Cut(span, "-")
	if !ok {
		return Window{}, fmt.Errorf("refwin: malformed window %q (want ref:start-end)", s)
	}
	start, err := strconv.Atoi(startStr)
	if err != nil {
		return Window{}, fmt.Errorf("refwin: malformed window %q: %w", s, err)
	}
	end, err := strconv.Atoi(endStr)
	if err != nil {
		return Window{}, fmt.Errorf("refwin: malformed window %q: %w", s, err)
	}
	if start < 0 || end < start {
		return Window{}, fmt.Errorf("refwin: malformed window %q: end must be >= start >= 0", s)
	}
	if start > length {
		start = length
	}
	if end > length {
		end = length
	}
	return Window{RefID: name, Start: start, End: end}, nil
}

// ParseList resolves a comma-separated list of window designations.
// Unrecognized contigs abort unless skipUnknown is set.
func ParseList(s string, lengths map[string]int, skipUnknown bool) ([]Window, error) {
	var wins []Window
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		w, err := Parse(part, lengths)
		if err != nil {
			if skipUnknown && errors.Is(err, ErrUnknownContig) {
				continue
			}
			return nil, err
		}
		wins = append(wins, w)
	}
	if len(wins) == 0 {
		return nil, fmt.Errorf("refwin: no usable windows in %q", s)
	}
	return wins, nil
}

// ParseFile resolves window designations from a file, one per line.
func ParseFile(path string, lengths map[string]int, skipUnknown bool) ([]Window, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	var parts []string
	sc := bufio.NewScanner(fh)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			parts = append(parts, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("refwin: read %s: %w", path, err)
	}
	return ParseList(strings.Join(parts, ","), lengths, skipUnknown)
}
