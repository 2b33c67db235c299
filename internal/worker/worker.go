// internal/worker/worker.go
package worker

import (
	"context"
	"fmt"

	"kinscan/internal/chunk"
	"kinscan/internal/queue"
)

// Item is what travels on the work queue: either a Task carrying one chunk
// or a Sentinel telling exactly one worker to stop. Consumers branch on the
// variant type, never on a magic value.
type Item interface{ isItem() }

// Task wraps one work chunk.
type Task struct {
	Chunk chunk.Chunk
}

// Sentinel is the in-band "no more work" marker. The orchestrator enqueues
// one per worker after all tasks.
type Sentinel struct{}

func (Task) isItem()     {}
func (Sentinel) isItem() {}

// Result pairs a chunk index with the payload computed for it. The payload
// is opaque to the orchestration core.
type Result[R any] struct {
	ChunkIndex int
	Payload    R
}

// Compute is the per-chunk computation collaborator. A worker delegates
// every task to it and treats any returned error as an unhandled fault.
type Compute[R any] func(ctx context.Context, c chunk.Chunk) (R, error)

// Run is one worker's consume-compute-produce loop. Each retrieved Task is
// computed, its Result pushed to the result queue, and only then
// acknowledged on the work queue. A Sentinel is acknowledged and terminates
// the loop cleanly.
//
// A compute fault is not caught or retried: it propagates out of the loop
// (leaving the chunk unacknowledged) and surfaces solely as this worker's
// nonzero exit status for the supervisor to observe.
func Run[R any](
	ctx context.Context,
	id int,
	work *queue.Queue[Item],
	results *queue.Queue[Result[R]],
	compute Compute[R],
) error {
	for {
		item, err := work.Get(ctx)
		if err != nil {
			return err
		}
		switch it := item.(type) {
		case Sentinel:
			work.TaskDone()
			return nil
		case Task:
			payload, err := compute(ctx, it.Chunk)
			if err != nil {
				return fmt.Errorf("worker %d: chunk %s: %w", id, it.Chunk, err)
			}
			if err := results.Put(ctx, Result[R]{ChunkIndex: it.Chunk.Index, Payload: payload}); err != nil {
				return err
			}
			work.TaskDone()
		default:
			return fmt.Errorf("worker %d: unexpected queue item %T", id, item)
		}
	}
}
