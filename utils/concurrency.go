package utils

import (
	"sync"
	"time"
)

// WorkerPool runs jobs on a bounded number of goroutines with a minimum
// interval between job starts.
type WorkerPool struct {
	rateLimit   time.Duration
	semaphore   chan struct{}
	wg          sync.WaitGroup
	mu          sync.Mutex
	lastRequest time.Time
}

// NewWorkerPool creates a WorkerPool with the given concurrency and rate limit.
func NewWorkerPool(maxWorkers int, rateLimit time.Duration) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &WorkerPool{
		rateLimit: rateLimit,
		semaphore: make(chan struct{}, maxWorkers),
	}
}

// Submit enqueues a job, blocking while all workers are busy.
func (wp *WorkerPool) Submit(job func()) {
	wp.wg.Add(1)
	wp.semaphore <- struct{}{}

	go func() {
		defer wp.wg.Done()
		defer func() { <-wp.semaphore }()

		wp.enforceRateLimit()
		job()
	}()
}

// Wait blocks until all submitted jobs have completed.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

func (wp *WorkerPool) enforceRateLimit() {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if !wp.lastRequest.IsZero() {
		if elapsed := time.Since(wp.lastRequest); elapsed < wp.rateLimit {
			time.Sleep(wp.rateLimit - elapsed)
		}
	}
	wp.lastRequest = time.Now()
}
