// internal/chunk/planner.go
package chunk

import (
	"fmt"

	"kinscan/internal/refwin"
)

// Chunk is one unit of schedulable work: a sub-region of a reference window
// at most stride bases long. Index is assigned globally in enqueue order,
// starting at 0, and never repeats within a run.
type Chunk struct {
	Index int
	RefID string
	Start int
	End   int
}

func (c Chunk) Len() int { return c.End - c.Start }

func (c Chunk) String() string {
	return fmt.Sprintf("#%d %s:%d-%d", c.Index, c.RefID, c.Start, c.End)
}

// ForEach splits every window into ⌈len/stride⌉ chunks and emits them in
// order, assigning contiguous indices from 0 across the whole window
// sequence. No chunk crosses a window boundary; the last chunk of a window
// covers exactly its remainder. Zero-length windows emit nothing.
//
// The iteration is lazy: emit is called as chunks are produced, so a blocking
// emit (a bounded queue put) throttles planning itself. A non-nil error from
// emit stops the iteration and is returned as-is.
func ForEach(windows []refwin.Window, stride int, emit func(Chunk) error) error {
	if stride <= 0 {
		return fmt.Errorf("chunk: stride must be positive (got %d)", stride)
	}
	idx := 0
	for _, w := range windows {
		if w.Len() < 0 || w.Start < 0 {
			return fmt.Errorf("chunk: malformed window %s", w)
		}
		for start := w.Start; start < w.End; start += stride {
			end := start + stride
			if end > w.End {
				end = w.End
			}
			if err := emit(Chunk{Index: idx, RefID: w.RefID, Start: start, End: end}); err != nil {
				return err
			}
			idx++
		}
	}
	return nil
}

// Count returns the total number of chunks ForEach would emit.
func Count(windows []refwin.Window, stride int) (int, error) {
	if stride <= 0 {
		return 0, fmt.Errorf("chunk: stride must be positive (got %d)", stride)
	}
	total := 0
	for _, w := range windows {
		if w.Len() < 0 || w.Start < 0 {
			return 0, fmt.Errorf("chunk: malformed window %s", w)
		}
		total += (w.Len() + stride - 1) / stride
	}
	return total, nil
}
