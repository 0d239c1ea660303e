package parallel

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dd0wney/cluso-district/pkg/logging"
)

func newPool(t *testing.T, workers int) *WorkerPool {
	t.Helper()
	pool, err := NewWorkerPool(workers, logging.NewNopLogger())
	if err != nil {
		t.Fatalf("NewWorkerPool(%d): %v", workers, err)
	}
	return pool
}

func TestWorkerPoolSizing(t *testing.T) {
	tests := []struct {
		requested int
		want      int
	}{
		{0, 1},
		{-5, 1},
		{1, 1},
		{16, 16},
	}

	for _, tt := range tests {
		pool := newPool(t, tt.requested)
		if pool.Workers() != tt.want {
			t.Errorf("NewWorkerPool(%d) has %d workers, want %d", tt.requested, pool.Workers(), tt.want)
		}
		if cap(pool.taskQueue) != tt.want*2 {
			t.Errorf("queue capacity %d, want %d", cap(pool.taskQueue), tt.want*2)
		}
		pool.Close()
	}

	if _, err := NewWorkerPool(math.MaxInt, nil); !errors.Is(err, ErrTooManyWorkers) {
		t.Errorf("Expected ErrTooManyWorkers, got %v", err)
	}
}

// TestWorkerPoolConcurrentSubmissions tests concurrent task submissions
func TestWorkerPoolConcurrentSubmissions(t *testing.T) {
	pool := newPool(t, 10)

	numTasks := 100
	var counter int64

	var wg sync.WaitGroup
	for i := 0; i < numTasks; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pool.Submit(func() {
				atomic.AddInt64(&counter, 1)
			})
		}()
	}

	wg.Wait()
	pool.Close()

	if counter != int64(numTasks) {
		t.Errorf("Expected counter %d, got %d", numTasks, counter)
	}
}

// TestWorkerPoolCloseRace closes the pool while submitters are still running.
func TestWorkerPoolCloseRace(t *testing.T) {
	for iteration := 0; iteration < 50; iteration++ {
		pool := newPool(t, 4)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 10; j++ {
					pool.Submit(func() {
						time.Sleep(time.Millisecond)
					})
				}
			}()
		}

		time.Sleep(2 * time.Millisecond)
		pool.Close()
		wg.Wait()
	}
}

func TestWorkerPoolSubmitAfterClose(t *testing.T) {
	pool := newPool(t, 4)
	pool.Close()

	if pool.Submit(func() { t.Error("This task should never execute") }) {
		t.Error("Task submission after close should return false")
	}
	if err := pool.SubmitContext(context.Background(), func() {}); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("Expected ErrPoolClosed, got %v", err)
	}

	// closing again is safe
	pool.Close()
	pool.Wait()
}

func TestWorkerPoolSubmitContextCancelled(t *testing.T) {
	pool := newPool(t, 1)
	release := make(chan struct{})
	started := make(chan struct{})

	pool.Submit(func() {
		close(started)
		<-release
	})
	<-started
	// fill the queue behind the blocked worker
	for i := 0; i < cap(pool.taskQueue); i++ {
		pool.Submit(func() {})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := pool.SubmitContext(ctx, func() {}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected DeadlineExceeded, got %v", err)
	}

	close(release)
	pool.Close()
}

func TestWorkerPoolTaskExecution(t *testing.T) {
	pool := newPool(t, 5)

	numTasks := 50
	executed := make([]bool, numTasks)
	var mu sync.Mutex

	for i := 0; i < numTasks; i++ {
		pool.Submit(func() {
			mu.Lock()
			executed[i] = true
			mu.Unlock()
		})
	}

	pool.Close()

	for i, exec := range executed {
		if !exec {
			t.Errorf("Task %d was not executed", i)
		}
	}
}

// TestWorkerPoolWithPanic tests that panics in tasks don't crash the pool
func TestWorkerPoolWithPanic(t *testing.T) {
	var buf bytes.Buffer
	pool, err := NewWorkerPool(2, logging.NewJSONLogger(&buf, logging.InfoLevel))
	if err != nil {
		t.Fatal(err)
	}

	var counter int64
	for i := 0; i < 5; i++ {
		pool.Submit(func() {
			panic("intentional panic")
		})
	}
	for i := 0; i < 10; i++ {
		pool.Submit(func() {
			atomic.AddInt64(&counter, 1)
		})
	}

	pool.Close()

	if counter != 10 {
		t.Errorf("Expected counter 10, got %d", counter)
	}
	if n := strings.Count(buf.String(), "worker panic recovered"); n != 5 {
		t.Errorf("Expected 5 recovered panics logged, got %d", n)
	}
}

func BenchmarkWorkerPoolThroughput(b *testing.B) {
	pool, _ := NewWorkerPool(10, logging.NewNopLogger())
	defer pool.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pool.Submit(func() {})
	}
}
