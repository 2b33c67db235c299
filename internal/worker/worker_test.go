package worker

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kinscan/internal/chunk"
	"kinscan/internal/queue"
)

func newQueues(t *testing.T, capacity int) (*queue.Queue[Item], *queue.Queue[Result[string]]) {
	t.Helper()
	work, err := queue.New[Item](capacity)
	require.NoError(t, err)
	results, err := queue.New[Result[string]](capacity)
	require.NoError(t, err)
	return work, results
}

func TestRun_ConsumesUntilSentinel(t *testing.T) {
	ctx := context.Background()
	work, results := newQueues(t, 8)

	for i := 0; i < 3; i++ {
		require.NoError(t, work.Put(ctx, Task{Chunk: chunk.Chunk{Index: i, RefID: "c", Start: i * 10, End: i*10 + 10}}))
	}
	require.NoError(t, work.Put(ctx, Sentinel{}))

	err := Run(ctx, 0, work, results, func(_ context.Context, c chunk.Chunk) (string, error) {
		return fmt.Sprintf("payload-%d", c.Index), nil
	})
	require.NoError(t, err)

	// Every task acknowledged, sentinel included.
	require.NoError(t, work.Join(ctx))

	var got []Result[string]
	for i := 0; i < 3; i++ {
		r, err := results.Get(ctx)
		require.NoError(t, err)
		results.TaskDone()
		got = append(got, r)
	}
	sort.Slice(got, func(i, j int) bool { return got[i].ChunkIndex < got[j].ChunkIndex })
	for i, r := range got {
		assert.Equal(t, i, r.ChunkIndex)
		assert.Equal(t, fmt.Sprintf("payload-%d", i), r.Payload)
	}
}

func TestRun_ComputeFaultPropagatesUnacknowledged(t *testing.T) {
	ctx := context.Background()
	work, results := newQueues(t, 8)
	require.NoError(t, work.Put(ctx, Task{Chunk: chunk.Chunk{Index: 0, RefID: "c", End: 10}}))

	fault := errors.New("model blew up")
	err := Run(ctx, 2, work, results, func(context.Context, chunk.Chunk) (string, error) {
		return "", fault
	})
	require.ErrorIs(t, err, fault)
	assert.ErrorContains(t, err, "worker 2")

	// The failed chunk stays unacknowledged: the drain barrier must not pass.
	assert.Equal(t, 1, work.Outstanding())
}

func TestRun_GetHonorsCancellation(t *testing.T) {
	work, results := newQueues(t, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, 0, work, results, func(context.Context, chunk.Chunk) (string, error) {
			return "", nil
		})
	}()
	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on cancellation")
	}
}

// N sentinels stop N workers; each sentinel is consumed by a distinct
// worker, and every chunk is processed exactly once across the pool.
func TestRun_PoolSentinelPerWorker(t *testing.T) {
	const (
		workers = 3
		chunks  = 20
	)
	ctx := context.Background()
	work, results := newQueues(t, 5)

	var (
		mu        sync.Mutex
		processed = map[int]int{}
	)
	computeFn := func(_ context.Context, c chunk.Chunk) (string, error) {
		mu.Lock()
		processed[c.Index]++
		mu.Unlock()
		return "", nil
	}

	var wg sync.WaitGroup
	errs := make([]error, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			errs[w] = Run(ctx, w, work, results, computeFn)
		}(w)
	}

	// Drain results so workers never block on a full result queue.
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for i := 0; i < chunks; i++ {
			if _, err := results.Get(ctx); err != nil {
				return
			}
			results.TaskDone()
		}
	}()

	for i := 0; i < chunks; i++ {
		require.NoError(t, work.Put(ctx, Task{Chunk: chunk.Chunk{Index: i, RefID: "c", Start: i, End: i + 1}}))
	}
	for w := 0; w < workers; w++ {
		require.NoError(t, work.Put(ctx, Sentinel{}))
	}

	wg.Wait()
	<-drained
	for w, err := range errs {
		require.NoError(t, err, "worker %d", w)
	}

	require.Len(t, processed, chunks)
	for idx, n := range processed {
		assert.Equal(t, 1, n, "chunk %d processed %d times", idx, n)
	}
	require.NoError(t, work.Join(ctx))
	require.NoError(t, results.Join(ctx))
}
