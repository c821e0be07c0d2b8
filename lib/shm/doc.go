// Package shm manages the lifecycle of the named shared-memory segment that
// backs the key-value table. It is the lowest layer of the system: it depends
// on nothing but the OS.
//
// The package focuses on:
//   - Creating the segment with the exact byte layout all processes agree on
//   - Attaching to an existing segment and validating its layout
//   - Detaching (local unmap) and unlinking (global removal) as separate,
//     independent operations
//
// Key Components:
//
//   - Layout: the fixed binary contract. A segment is a Table of Capacity
//     slots (key, value, timestamp), followed by the guard token, the version
//     counter and the entry counter. The layout is a build-time constant:
//     every process that maps the segment must have been built with the same
//     constants, which is why Open rejects segments whose size does not match
//     (ErrInvalidLayout).
//
//   - Segment: a process-local handle to the mapped region. Destroy unmaps
//     the region for the calling process only; the segment stays alive in the
//     OS namespace until Unlink removes it. By convention only the creating
//     process unlinks - this is not enforced.
//
// Lifecycle errors are reported through sentinel errors (ErrAlreadyExists,
// ErrNotFound, ErrInvalidLayout, ErrResourceExhausted) so callers can decide
// on fallback policy (e.g. "open, and create if not found") themselves.
package shm
