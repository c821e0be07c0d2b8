// Package engine implements the fixed-capacity key-value table that lives
// inside the shared segment.
//
// The table is a flat array of shm.Capacity slots scanned linearly on every
// operation. That is a deliberate choice, not a shortcut: the capacity is
// part of the binary contract shared byte-for-byte by all attached
// processes, so it must stay a build-time constant - and at a constant of
// this size a hash index would buy nothing. The engine targets narrow
// coordination use-cases, not bulk storage.
//
// Every operation, reads included, runs under the guard embedded in the
// segment. Validation happens before the guard is taken and before any
// shared byte is touched; once the guard is held a mutation always runs to
// completion. Together this means no process can ever observe a slot
// mid-write: put, get, delete and status are linearized through the guard.
//
// A slot is free iff the first byte of its key is zero, and a stored key
// ends at its first zero byte. Two consequences: an empty key is
// indistinguishable from a free slot, and a key with an interior zero byte
// would be stored truncated, aliasing a different key. The engine rejects
// both outright rather than storing something it could never find again.
package engine
