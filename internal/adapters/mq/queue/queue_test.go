package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

type job struct {
	ID string
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue[job](WithCapacity(2), WithName("test_basic"))
	ctx := context.Background()

	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	if !q.Enqueue(ctx, job{ID: "job1"}) {
		t.Error("expected enqueue to succeed")
	}
	if l := q.Len(); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	item := <-q.Dequeue(ctx)
	if item.ID != "job1" {
		t.Errorf("expected job1, got %v", item.ID)
	}
	if l := q.Len(); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue[string](WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, "a") || !q.Enqueue(ctx, "b") {
		t.Fatal("expected enqueue to succeed")
	}
	if q.Enqueue(ctx, "c") {
		t.Error("expected enqueue to fail when full")
	}
	if q.Cap() != 2 {
		t.Errorf("expected capacity 2, got %d", q.Cap())
	}
	if l := q.Len(); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue[string](WithCapacity(4))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if q.Enqueue(ctx, "late") {
		t.Error("expected enqueue to fail with a cancelled context")
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue[job](WithCapacity(100))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	numGoroutines := 10
	numItems := 100

	var producers sync.WaitGroup
	for i := 0; i < numGoroutines; i++ {
		producers.Add(1)
		go func(id int) {
			defer producers.Done()
			for j := 0; j < numItems; j++ {
				for !q.Enqueue(ctx, job{ID: fmt.Sprintf("job%d_%d", id, j)}) {
					time.Sleep(time.Millisecond)
				}
			}
		}(i)
	}

	consumed := make(chan string, numGoroutines*numItems)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			for item := range q.Dequeue(ctx) {
				consumed <- item.ID
			}
		}()
	}

	producers.Wait()

	deadline := time.After(2 * time.Second)
	for received := 0; received < numGoroutines*numItems; received++ {
		select {
		case <-consumed:
		case <-deadline:
			t.Fatalf("consumed %d of %d items", received, numGoroutines*numItems)
		}
	}
	if l := q.Len(); l != 0 {
		t.Errorf("expected final length 0, got %d", l)
	}
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue[job](WithCapacity(10))
	ctx := context.Background()

	if !q.Enqueue(ctx, job{ID: "job1"}) {
		t.Error("expected enqueue to succeed")
	}
	if q.IsClosed() {
		t.Error("expected queue to be open initially")
	}

	if err := q.Close(); err != nil {
		t.Errorf("expected close to succeed, got error: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed after Close()")
	}
	if q.Enqueue(ctx, job{ID: "job2"}) {
		t.Error("expected enqueue to fail after closing")
	}

	ch := q.Dequeue(ctx)
	timeout := time.After(100 * time.Millisecond)
	drained := 0
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				if drained != 1 {
					t.Errorf("expected buffered item to drain before close, got %d", drained)
				}
				if err := q.Close(); err != nil {
					t.Errorf("expected second close to succeed, got error: %v", err)
				}
				return
			}
			drained++
		case <-timeout:
			t.Fatal("expected dequeue channel to be closed within timeout")
		}
	}
}
