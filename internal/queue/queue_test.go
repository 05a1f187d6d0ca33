package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestQueueProcessesJobs(t *testing.T) {
	q := New(16, 2)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	var mu sync.Mutex
	ran := 0
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		ok := q.Enqueue(Job{Name: "job", Work: func(context.Context) error {
			defer wg.Done()
			mu.Lock()
			ran++
			mu.Unlock()
			return nil
		}})
		if !ok {
			t.Fatal("enqueue rejected with free capacity")
		}
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if ran != 10 {
		t.Fatalf("ran %d jobs, want 10", ran)
	}
}

func TestEnqueueBeforeStart(t *testing.T) {
	q := New(4, 1)
	if q.Enqueue(Job{Name: "early", Work: func(context.Context) error { return nil }}) {
		t.Fatal("enqueue accepted before Start")
	}
}

func TestEnqueueFullQueue(t *testing.T) {
	q := New(1, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	block := make(chan struct{})
	q.Enqueue(Job{Name: "blocker", Work: func(context.Context) error {
		<-block
		return nil
	}})
	// The worker may not have picked up the blocker yet. Fill until the
	// channel rejects, which must happen within capacity+1 attempts.
	rejected := false
	for i := 0; i < 50 && !rejected; i++ {
		if !q.Enqueue(Job{Name: "filler", Work: func(context.Context) error {
			<-block
			return nil
		}}) {
			rejected = true
		}
	}
	close(block)
	if !rejected {
		t.Fatal("queue never rejected past capacity")
	}
}

func TestStatsCountFailures(t *testing.T) {
	q := New(8, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	q.Enqueue(Job{Name: "bad", Work: func(context.Context) error {
		return errors.New("boom")
	}})
	q.Enqueue(Job{Name: "good", Work: func(context.Context) error {
		return nil
	}})

	deadline := time.Now().Add(2 * time.Second)
	for {
		st := q.Stats()
		if st.Processed == 1 && st.Failed == 1 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("stats processed=%d failed=%d, want 1/1", st.Processed, st.Failed)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestStopDrainsAndRejects(t *testing.T) {
	q := New(8, 2)
	q.Start(context.Background())

	var mu sync.Mutex
	ran := 0
	for i := 0; i < 5; i++ {
		q.Enqueue(Job{Name: "job", Work: func(context.Context) error {
			mu.Lock()
			ran++
			mu.Unlock()
			return nil
		}})
	}
	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	q.Stop(stopCtx)

	mu.Lock()
	got := ran
	mu.Unlock()
	if got != 5 {
		t.Fatalf("drained %d jobs, want 5", got)
	}
	if q.Enqueue(Job{Name: "late", Work: func(context.Context) error { return nil }}) {
		t.Fatal("enqueue accepted after Stop")
	}
}
