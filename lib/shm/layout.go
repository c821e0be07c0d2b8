package shm

import "errors"

// --------------------------------------------------------------------------
// Binary Contract
// --------------------------------------------------------------------------

// Constants for the shared segment layout. These are build-time constants:
// all processes mapping the same segment must agree on them byte-for-byte.
const (
	// Capacity is the fixed number of slots in the table.
	Capacity = 10

	// KeySize is the byte capacity of a key field, including the
	// terminating zero byte. A stored key is at most KeySize-1 bytes.
	KeySize = 64

	// ValueSize is the byte capacity of a value field, including the
	// terminating zero byte. A stored value is at most ValueSize-1 bytes.
	ValueSize = 256

	// GuardSize is the size of the opaque guard token embedded in the
	// segment. Only the first 4 bytes are used as the lock word, the rest
	// is reserved.
	GuardSize = 32

	// SlotSize is the size of one table record: key, value and an int64
	// unix timestamp. The record is 8-byte aligned by construction.
	SlotSize = KeySize + ValueSize + 8

	// LayoutSize is the total segment size: the table, the guard token,
	// the uint32 version counter and the uint32 entry counter.
	LayoutSize = Capacity*SlotSize + GuardSize + 4 + 4
)

// DefaultSegmentName is the well-known name under which the segment is
// registered in the OS namespace (e.g. /dev/shm/gitflow_kv_store on Linux).
const DefaultSegmentName = "gitflow_kv_store"

// --------------------------------------------------------------------------
// Overlay Types
// --------------------------------------------------------------------------

// Slot is one table record. The field order and sizes are part of the
// binary contract and must not change.
type Slot struct {
	Key       [KeySize]byte
	Value     [ValueSize]byte
	Timestamp int64
}

// Layout is the full segment overlay. A *Layout is obtained by casting the
// base address of the mapped region, so reads and writes through it go
// directly to shared memory.
type Layout struct {
	Table      [Capacity]Slot
	Guard      [GuardSize]byte
	Version    uint32
	EntryCount uint32
}

// --------------------------------------------------------------------------
// Sentinel Errors
// --------------------------------------------------------------------------

var (
	// ErrAlreadyExists is returned by Create when a segment of the same
	// name is already registered.
	ErrAlreadyExists = errors.New("segment already exists")

	// ErrNotFound is returned by Open and Unlink when no segment of the
	// given name exists.
	ErrNotFound = errors.New("segment not found")

	// ErrInvalidLayout is returned by Open when the existing segment's
	// size does not match the expected layout, i.e. it was created by an
	// incompatible build.
	ErrInvalidLayout = errors.New("segment has incompatible layout")

	// ErrResourceExhausted is returned when the OS fails to allocate or
	// map the segment.
	ErrResourceExhausted = errors.New("system resources exhausted")
)
