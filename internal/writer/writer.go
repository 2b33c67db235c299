// internal/writer/writer.go
package writer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/schollz/progressbar/v3"

	"kinscan/internal/queue"
	"kinscan/internal/worker"
)

// Sink consumes result records in the order the writer receives them and
// manages its own output handle lifecycle. The core gives no cross-chunk
// ordering guarantee; a sink needing chunk order must buffer and reorder
// itself.
type Sink[R any] interface {
	Write(rec worker.Result[R]) error
	Close() error
}

// Collector is the single result-consuming process. It drains the result
// queue, hands every record to each sink in arrival order, and exits when
// the orchestrator calls Stop — which the orchestrator does only after all
// workers have joined and the queue has fully drained, since "no more
// producers remain" is a fact only the orchestrator can establish.
type Collector[R any] struct {
	results *queue.Queue[worker.Result[R]]
	sinks   []Sink[R]

	stopOnce sync.Once
	stopc    chan struct{}
	written  atomic.Int64
	bar      *progressbar.ProgressBar
}

func New[R any](results *queue.Queue[worker.Result[R]], sinks ...Sink[R]) *Collector[R] {
	return &Collector[R]{
		results: results,
		sinks:   sinks,
		stopc:   make(chan struct{}),
	}
}

// EnableProgress renders a progress bar over the expected record count.
// Call before Run.
func (c *Collector[R]) EnableProgress(total int) {
	c.bar = progressbar.Default(int64(total), "scanning")
}

// Stop tells the collector that no more producers remain. Safe to call more
// than once.
func (c *Collector[R]) Stop() {
	c.stopOnce.Do(func() { close(c.stopc) })
}

// Written reports how many records have been handed to the sinks.
func (c *Collector[R]) Written() int64 { return c.written.Load() }

// Run is the collector loop. A sink fault aborts it with an error, which
// surfaces as the writer process's nonzero exit for the supervisor. On a
// clean stop all sinks are closed and their close errors reported.
func (c *Collector[R]) Run(ctx context.Context) (err error) {
	defer func() {
		for _, s := range c.sinks {
			if cerr := s.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("writer: close sink: %w", cerr)
			}
		}
		if c.bar != nil && err == nil {
			_ = c.bar.Finish()
		}
	}()

	// Stop is delivered by canceling the Get below; a stop-driven
	// cancellation is a clean exit, anything else is a fault.
	gctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-c.stopc:
			cancel()
		case <-gctx.Done():
		}
	}()

	for {
		rec, err := c.results.Get(gctx)
		if err != nil {
			if c.stopped() && ctx.Err() == nil && errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		for _, s := range c.sinks {
			if werr := s.Write(rec); werr != nil {
				return fmt.Errorf("writer: %w", werr)
			}
		}
		c.results.TaskDone()
		c.written.Add(1)
		if c.bar != nil {
			_ = c.bar.Add(1)
		}
	}
}

func (c *Collector[R]) stopped() bool {
	select {
	case <-c.stopc:
		return true
	default:
		return false
	}
}
