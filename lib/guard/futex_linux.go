//go:build linux

package guard

import (
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Linux futex opcodes. The non-PRIVATE variants: the lock word is shared
// between processes, so FUTEX_PRIVATE_FLAG must not be set.
const (
	futexOpWait = 0 // FUTEX_WAIT
	futexOpWake = 1 // FUTEX_WAKE
)

// futexWait parks the calling thread until the value at addr changes from
// val or another process calls futexWake on the same address. Spurious
// wakeups are possible; callers must re-check their condition in a loop.
func futexWait(addr *uint32, val uint32) {
	// Re-check before entering the syscall to narrow the lost-wake window
	if atomic.LoadUint32(addr) != val {
		return
	}
	// EAGAIN means the value changed first, EINTR a signal - both are
	// normal, the caller loops anyway.
	_, _, _ = unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		futexOpWait,
		uintptr(val),
		0, 0, 0,
	)
}

// futexWake wakes up to n threads parked on addr, across all processes
// mapping the word.
func futexWake(addr *uint32, n int) {
	_, _, _ = unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		futexOpWake,
		uintptr(n),
		0, 0, 0,
	)
}
