// Package queue runs automated-feed ingests through a bounded worker
// pool so a directory dump of a full day's exports does not fan out
// unbounded goroutines.
package queue

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
)

// Job encapsulates one unit of work.
type Job struct {
	Name string
	Work func(context.Context) error
}

// Stats exposes current queue metrics.
type Stats struct {
	Length      int    `json:"length"`
	Capacity    int    `json:"capacity"`
	WorkerCount int    `json:"workers"`
	Processed   uint64 `json:"processed"`
	Failed      uint64 `json:"failed"`
}

// Queue is a bounded job queue with a fixed worker pool.
type Queue struct {
	jobs        chan Job
	workerCount int
	started     bool
	mu          sync.RWMutex
	wg          sync.WaitGroup
	processed   uint64
	failed      uint64
}

func New(capacity, workerCount int) *Queue {
	return &Queue{
		jobs:        make(chan Job, capacity),
		workerCount: workerCount,
	}
}

// Start launches the worker pool. Safe to call once.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return
	}
	q.started = true
	q.mu.Unlock()
	for i := 0; i < q.workerCount; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}
}

// Enqueue attempts to queue a job without blocking. Returns false if the
// queue is full or not started.
func (q *Queue) Enqueue(j Job) bool {
	q.mu.RLock()
	started := q.started
	q.mu.RUnlock()
	if !started {
		log.Printf("enqueue called before queue started for job %s", j.Name)
		return false
	}
	select {
	case q.jobs <- j:
		return true
	default:
		log.Printf("job queue full, dropping job %s", j.Name)
		return false
	}
}

func (q *Queue) worker(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-q.jobs:
			if !ok {
				return
			}
			if err := j.Work(ctx); err != nil {
				atomic.AddUint64(&q.failed, 1)
				log.Printf("job %s failed: %v", j.Name, err)
				continue
			}
			atomic.AddUint64(&q.processed, 1)
		}
	}
}

// Stop stops accepting new jobs and waits for workers to drain until
// context is done.
func (q *Queue) Stop(ctx context.Context) {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.started = false
	close(q.jobs)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// Stats returns current queue metrics.
func (q *Queue) Stats() Stats {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return Stats{
		Length:      len(q.jobs),
		Capacity:    cap(q.jobs),
		WorkerCount: q.workerCount,
		Processed:   atomic.LoadUint64(&q.processed),
		Failed:      atomic.LoadUint64(&q.failed),
	}
}
