package concurrent

import (
	"context"
	"errors"
	"sync"
)

type Job[T any] struct {
	Index   int
	Payload T
}

type Result[G any] struct {
	Index int
	Value G
	Err   error
}

type JobFunc[T any, G any] func(ctx context.Context, job T) (G, error)

// WorkerPool runs jobs on a fixed number of goroutines. Results arrive in completion order, use Result.Index to reorder.
type WorkerPool[T any, G any] struct {
	numWorkers int
	jobQueue   chan Job[T]
	results    chan Result[G]
	wg         sync.WaitGroup
}

func NewWorkerPool[T any, G any](numWorkers, jobQueueSize int) *WorkerPool[T, G] {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &WorkerPool[T, G]{
		numWorkers: numWorkers,
		jobQueue:   make(chan Job[T], jobQueueSize),
		results:    make(chan Result[G], jobQueueSize),
	}
}

func (wp *WorkerPool[T, G]) worker(ctx context.Context, jobFunc JobFunc[T, G]) {
	defer wp.wg.Done()
	for job := range wp.jobQueue {
		if err := ctx.Err(); err != nil {
			wp.results <- Result[G]{Index: job.Index, Err: err}
			continue
		}
		res, err := jobFunc(ctx, job.Payload)
		wp.results <- Result[G]{Index: job.Index, Value: res, Err: err}
	}
}

func (wp *WorkerPool[T, G]) Start(ctx context.Context, jobFunc JobFunc[T, G]) {
	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, jobFunc)
	}
}

// Wait blocks until every worker has exited, then closes the results channel. Call Close first.
func (wp *WorkerPool[T, G]) Wait() {
	wp.wg.Wait()
	close(wp.results)
}

func (wp *WorkerPool[T, G]) AddJob(index int, payload T) {
	wp.jobQueue <- Job[T]{Index: index, Payload: payload}
}

func (wp *WorkerPool[T, G]) CollectResults() <-chan Result[G] {
	return wp.results
}

func (wp *WorkerPool[T, G]) Close() {
	close(wp.jobQueue)
}

// RunAll runs jobFunc over payloads and returns the values in payload order, with every job error joined.
func RunAll[T any, G any](ctx context.Context, numWorkers int, payloads []T, jobFunc JobFunc[T, G]) ([]G, error) {
	wp := NewWorkerPool[T, G](numWorkers, len(payloads))
	wp.Start(ctx, jobFunc)
	for i, p := range payloads {
		wp.AddJob(i, p)
	}
	wp.Close()
	go wp.Wait()

	values := make([]G, len(payloads))
	errs := make([]error, len(payloads))
	for res := range wp.CollectResults() {
		values[res.Index] = res.Value
		errs[res.Index] = res.Err
	}
	return values, errors.Join(errs...)
}
