package guard

import "sync/atomic"

// Lock word states. The split between locked and contended lets Release
// skip the wake syscall on the fast path.
const (
	unlocked  = 0 // free
	locked    = 1 // held, no waiters
	contended = 2 // held, at least one waiter parked
)

// Guard is a binary mutex over a 32-bit word in shared memory. The zero
// value of the word is the unlocked state.
type Guard struct {
	word *uint32
}

// New wraps the given lock word. The word must live inside a MAP_SHARED
// region for the guard to work across processes.
func New(word *uint32) *Guard {
	return &Guard{word: word}
}

// Acquire blocks the calling goroutine until the guard is available.
// There is no timeout and no way to abort the wait.
func (g *Guard) Acquire() {
	// Fast path: uncontended
	if atomic.CompareAndSwapUint32(g.word, unlocked, locked) {
		return
	}
	// Slow path: mark the word contended and park. The swap returning
	// unlocked means we took the lock ourselves; the word stays at
	// contended so our Release wakes any waiter we may have raced with.
	for atomic.SwapUint32(g.word, contended) != unlocked {
		futexWait(g.word, contended)
	}
}

// Release makes the guard available and wakes at most one parked waiter.
// It must only be called by the execution context that acquired the guard.
func (g *Guard) Release() {
	if atomic.SwapUint32(g.word, unlocked) == contended {
		futexWake(g.word, 1)
	}
}

// Do runs fn while holding the guard. The guard is released on every exit
// path, including panics, so callers cannot leak a held lock.
func (g *Guard) Do(fn func()) {
	g.Acquire()
	defer g.Release()
	fn()
}
