package worker

import (
	"context"
	"sync"
)

type ProcessFunc[J any] func(ctx context.Context, job J) error

// WorkerPool runs a fixed number of goroutines over a buffered job queue.
// Submit blocks once the buffer is full, so size it for the batch when the
// caller submits everything up front.
type WorkerPool[J any] struct {
	numWorkers int
	jobs       chan J
	processor  ProcessFunc[J]
	wg         sync.WaitGroup
}

func NewWorkerPool[J any](numWorkers int, bufferSize int, processor ProcessFunc[J]) *WorkerPool[J] {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &WorkerPool[J]{
		numWorkers: numWorkers,
		jobs:       make(chan J, bufferSize),
		processor:  processor,
	}
}

func (wp *WorkerPool[J]) Start(ctx context.Context) {
	for i := 1; i <= wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool[J]) worker(ctx context.Context, id int) {
	defer wp.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-wp.jobs:
			if !ok {
				return
			}
			_ = wp.processor(ctx, job)
		}
	}
}

func (wp *WorkerPool[J]) Submit(job J) {
	wp.jobs <- job
}

// Stop closes the queue and waits for the workers to drain it.
func (wp *WorkerPool[J]) Stop() {
	close(wp.jobs)
	wp.wg.Wait()
}
