//go:build !linux

package guard

import (
	"sync/atomic"
	"time"
)

// Without a futex the guard degrades to a polling wait. Correctness is
// unchanged (the lock word protocol is the same), only blocked acquirers
// burn a little CPU.

func futexWait(addr *uint32, val uint32) {
	if atomic.LoadUint32(addr) != val {
		return
	}
	time.Sleep(200 * time.Microsecond)
}

func futexWake(addr *uint32, n int) {}
