package guard

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestAcquireRelease(t *testing.T) {
	var word uint32
	g := New(&word)

	g.Acquire()
	if word == unlocked {
		t.Fatal("Lock word still unlocked after Acquire")
	}
	g.Release()
	if word != unlocked {
		t.Fatalf("Lock word not unlocked after Release, got %d", word)
	}
}

func TestMutualExclusion(t *testing.T) {
	const (
		workers = 16
		rounds  = 1000
	)

	var word uint32
	g := New(&word)

	// A plain int incremented under the guard; races would lose updates
	// (and trip the race detector).
	counter := 0
	inside := atomic.Int32{}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				g.Acquire()
				if n := inside.Add(1); n != 1 {
					t.Errorf("%d goroutines inside the critical section", n)
				}
				counter++
				inside.Add(-1)
				g.Release()
			}
		}()
	}
	wg.Wait()

	if counter != workers*rounds {
		t.Errorf("Expected counter %d, got %d (lost updates)", workers*rounds, counter)
	}
	if word != unlocked {
		t.Errorf("Lock word not unlocked after all workers finished, got %d", word)
	}
}

func TestAcquireBlocksUntilRelease(t *testing.T) {
	var word uint32
	g := New(&word)

	g.Acquire()

	acquired := make(chan struct{})
	go func() {
		g.Acquire()
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("Second Acquire succeeded while the guard was held")
	case <-time.After(50 * time.Millisecond):
	}

	g.Release()

	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("Waiter was not woken by Release")
	}
	g.Release()
}

func TestDoReleasesOnPanic(t *testing.T) {
	var word uint32
	g := New(&word)

	func() {
		defer func() { _ = recover() }()
		g.Do(func() { panic("operation failed mid-flight") })
	}()

	done := make(chan struct{})
	go func() {
		g.Do(func() {})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Guard stayed held after a panic inside Do")
	}
}
