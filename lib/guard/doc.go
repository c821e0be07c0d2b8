// Package guard implements the binary, process-shared mutual exclusion
// primitive embedded in the shared segment.
//
// The guard is a 32-bit lock word living inside the mapped region, so it is
// usable by every process that holds a mapping - it has no single owner and
// its lifetime is the lifetime of the segment. On Linux blocked acquirers
// park on the lock word with the futex syscall (the shared variant, not
// FUTEX_*_PRIVATE: the waiters are in different processes); Release wakes at
// most one of them.
//
// There is deliberately no timeout and no crash detection: a process that
// dies while holding the guard wedges every subsequent operation in every
// attached process. This is a documented limitation of the design, not an
// oversight - detecting a stale holder would require an ownership notion the
// binary token does not have.
//
// A zeroed lock word is an unlocked guard, so a freshly created (zero
// filled) segment needs no extra initialization.
package guard
