// internal/orchestrate/orchestrate.go
package orchestrate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"kinscan/internal/chunk"
	"kinscan/internal/proc"
	"kinscan/internal/queue"
	"kinscan/internal/refwin"
	"kinscan/internal/supervise"
	"kinscan/internal/worker"
	"kinscan/internal/writer"
)

// Options configures one orchestrated run. All values are validated before
// any process is spawned.
type Options struct {
	Workers   int // number of worker processes, >= 1
	QueueSize int // capacity bound shared by the work and result queues
	Stride    int // maximum chunk length in reference bases

	PollInterval time.Duration // supervisor poll interval; 0 = default
	KillGrace    time.Duration // grace before giving up on killed children; 0 = default
	Progress     bool
	Logger       *slog.Logger
}

// Stats summarizes a completed run.
type Stats struct {
	Chunks  int
	Records int64
}

// run is the explicit orchestration context: every piece of process state
// lives here and is threaded through the lifecycle functions, never held in
// package globals.
type run[R any] struct {
	opts    Options
	log     *slog.Logger
	work    *queue.Queue[worker.Item]
	results *queue.Queue[worker.Result[R]]
	workers []*proc.Proc
	wproc   *proc.Proc
	coll    *writer.Collector[R]
}

// Run executes the whole scan: it spawns the worker pool and the writer,
// starts the supervisor, streams planned chunks into the work queue,
// appends one shutdown sentinel per worker, and joins everything in
// dependency order. The supervisor can preempt the sequence at any point;
// its *supervise.ExitError carries the failed child's exit code.
func Run[R any](
	ctx context.Context,
	opts Options,
	windows []refwin.Window,
	compute worker.Compute[R],
	sinks ...writer.Sink[R],
) (Stats, error) {
	if opts.Workers < 1 {
		return Stats{}, fmt.Errorf("orchestrate: worker count must be >= 1 (got %d)", opts.Workers)
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	// Counting validates stride and windows up front, before anything runs.
	total, err := chunk.Count(windows, opts.Stride)
	if err != nil {
		return Stats{}, err
	}

	work, err := queue.New[worker.Item](opts.QueueSize)
	if err != nil {
		return Stats{}, err
	}
	results, err := queue.New[worker.Result[R]](opts.QueueSize)
	if err != nil {
		return Stats{}, err
	}

	log.Info("starting scan",
		"windows", len(windows), "chunks", total,
		"workers", opts.Workers, "queue_size", opts.QueueSize, "stride", opts.Stride)

	r := &run[R]{
		opts:    opts,
		log:     log,
		work:    work,
		results: results,
		coll:    writer.New(results, sinks...),
	}
	if opts.Progress {
		r.coll.EnableProgress(total)
	}

	// Workers and the writer share only the two queues; reference and model
	// data reach them read-only through the compute closure.
	for i := 0; i < opts.Workers; i++ {
		id := i
		r.workers = append(r.workers, proc.Spawn(ctx, fmt.Sprintf("worker-%d", id),
			func(ctx context.Context) error {
				return worker.Run(ctx, id, work, results, compute)
			}))
	}
	r.wproc = proc.Spawn(ctx, "writer", r.coll.Run)

	monitored := append(append([]*proc.Proc(nil), r.workers...), r.wproc)
	sup := supervise.New(supervise.Config{
		PollInterval: opts.PollInterval,
		KillGrace:    opts.KillGrace,
		Logger:       log,
	}, monitored...)

	// The supervisor and the main sequence run as a group: the first error
	// cancels the shared context, so a supervision abort preempts any
	// blocking put, join, or wait in the sequence, and a sequence fault
	// wakes the supervisor to clean up.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sup.Watch(gctx) })
	g.Go(func() error { return r.drive(gctx, windows) })
	err = g.Wait()

	stats := Stats{Chunks: total, Records: r.coll.Written()}
	if err != nil {
		return stats, err
	}
	log.Info("scan finished", "chunks", stats.Chunks, "records", stats.Records)
	return stats, nil
}

// drive is the orchestrator's main sequence. On any fault it kills every
// live child before returning, so no process is ever orphaned behind an
// orchestrator error.
func (r *run[R]) drive(ctx context.Context, windows []refwin.Window) (err error) {
	defer func() {
		if err != nil {
			for _, p := range append(append([]*proc.Proc(nil), r.workers...), r.wproc) {
				if p.Alive() {
					p.Kill()
				}
			}
		}
	}()

	// Feed: chunk planning is lazy, so a full work queue throttles planning
	// itself. This is the system's only backpressure mechanism.
	if err := chunk.ForEach(windows, r.opts.Stride, func(c chunk.Chunk) error {
		return r.work.Put(ctx, worker.Task{Chunk: c})
	}); err != nil {
		return err
	}

	// Exactly one sentinel per worker is the sole worker shutdown signal.
	for i := 0; i < r.opts.Workers; i++ {
		if err := r.work.Put(ctx, worker.Sentinel{}); err != nil {
			return err
		}
	}

	// Workers must finish producing before the result drain-wait below
	// means anything.
	for _, p := range r.workers {
		if err := p.Wait(ctx); err != nil {
			return err
		}
	}

	if err := r.results.Join(ctx); err != nil {
		return err
	}

	// All workers have joined and the result queue is drained: only now is
	// "no more producers remain" established, so stop the writer.
	r.coll.Stop()
	if err := r.wproc.Wait(ctx); err != nil {
		return err
	}
	return nil
}
