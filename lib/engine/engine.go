package engine

import (
	"bytes"
	"errors"
	"strings"
	"time"

	"github.com/ValentinKolb/shmKV/lib/guard"
	"github.com/ValentinKolb/shmKV/lib/shm"
)

// --------------------------------------------------------------------------
// Sentinel Errors
// --------------------------------------------------------------------------

var (
	// ErrNotInitialized is returned when the engine has no mapped segment.
	ErrNotInitialized = errors.New("engine not initialized")

	// ErrKeyTooLong is returned when a key does not fit a slot's key field
	// (max shm.KeySize-1 bytes).
	ErrKeyTooLong = errors.New("key too long")

	// ErrValueTooLong is returned when a value does not fit a slot's value
	// field (max shm.ValueSize-1 bytes).
	ErrValueTooLong = errors.New("value too long")

	// ErrEmptyKey is returned by Put for a zero-length key, which would
	// collide with the free-slot sentinel.
	ErrEmptyKey = errors.New("key must not be empty")

	// ErrInvalidKey is returned for a key containing a zero byte. The key
	// field is zero-terminated, so such a key would be stored truncated and
	// alias a different key.
	ErrInvalidKey = errors.New("key must not contain a zero byte")

	// ErrNotFound is returned when no occupied slot holds the key.
	ErrNotFound = errors.New("key not found")

	// ErrStoreFull is returned by Put when the key is new and no free slot
	// is left.
	ErrStoreFull = errors.New("store full")
)

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// Entry is a copy of one occupied slot, safe to use after the guard has
// been released.
type Entry struct {
	Key       string
	Value     []byte
	Timestamp int64
}

// Status is a read-only snapshot of the table taken under the guard.
type Status struct {
	Version    uint32
	EntryCount uint32
	Capacity   int
	Entries    []Entry
}

// Engine executes the table operations against one mapped segment. It is
// safe for concurrent use from any number of goroutines and processes: all
// accesses are serialized through the guard embedded in the segment.
type Engine struct {
	layout *shm.Layout
	guard  *guard.Guard
}

// New creates an engine over the given segment's mapping.
func New(seg *shm.Segment) (*Engine, error) {
	if seg == nil || seg.Layout() == nil {
		return nil, ErrNotInitialized
	}
	return &Engine{
		layout: seg.Layout(),
		guard:  guard.New(seg.GuardWord()),
	}, nil
}

// --------------------------------------------------------------------------
// Operations
// --------------------------------------------------------------------------

// Put inserts or updates a key-value pair. An existing key is overwritten
// in place (slot position and entry count unchanged); a new key takes the
// first free slot in index order. Every successful mutation stamps the slot
// with the current unix time and increments the version counter by exactly
// one.
func (e *Engine) Put(key string, value []byte) error {
	if err := e.checkKey(key); err != nil {
		return err
	}
	if len(key) == 0 {
		return ErrEmptyKey
	}
	if len(value) >= shm.ValueSize {
		return ErrValueTooLong
	}

	var err error
	e.guard.Do(func() {
		// Update in place if the key is already stored
		if slot := e.lookup(key); slot != nil {
			writeValue(slot, value)
			e.layout.Version++
			return
		}

		// Otherwise take the first free slot
		for i := range e.layout.Table {
			slot := &e.layout.Table[i]
			if slot.Key[0] == 0 {
				writeKey(slot, key)
				writeValue(slot, value)
				e.layout.EntryCount++
				e.layout.Version++
				return
			}
		}
		err = ErrStoreFull
	})
	return err
}

// Get returns a copy of the value and last-modified timestamp for key.
// It never mutates the version or entry counters.
func (e *Engine) Get(key string) ([]byte, int64, error) {
	if err := e.checkKey(key); err != nil {
		return nil, 0, err
	}

	var (
		value []byte
		stamp int64
		err   error
	)
	e.guard.Do(func() {
		slot := e.lookup(key)
		if slot == nil {
			err = ErrNotFound
			return
		}
		value = append([]byte(nil), slot.Value[:clen(slot.Value[:])]...)
		stamp = slot.Timestamp
	})
	return value, stamp, err
}

// Delete removes the slot holding key, returning it to the free state, and
// decrements the entry counter. The version counter is incremented by
// exactly one on success.
func (e *Engine) Delete(key string) error {
	if err := e.checkKey(key); err != nil {
		return err
	}

	var err error
	e.guard.Do(func() {
		slot := e.lookup(key)
		if slot == nil {
			err = ErrNotFound
			return
		}
		*slot = shm.Slot{}
		e.layout.EntryCount--
		e.layout.Version++
	})
	return err
}

// Status snapshots the version and entry counters and every occupied slot
// in index order. It takes the same guard as the mutating operations so it
// can never observe a partial write, but mutates nothing itself.
func (e *Engine) Status() (Status, error) {
	if e == nil || e.layout == nil {
		return Status{}, ErrNotInitialized
	}

	var status Status
	e.guard.Do(func() {
		status = Status{
			Version:    e.layout.Version,
			EntryCount: e.layout.EntryCount,
			Capacity:   shm.Capacity,
			Entries:    make([]Entry, 0, e.layout.EntryCount),
		}
		for i := range e.layout.Table {
			slot := &e.layout.Table[i]
			if slot.Key[0] == 0 {
				continue
			}
			status.Entries = append(status.Entries, Entry{
				Key:       string(slot.Key[:clen(slot.Key[:])]),
				Value:     append([]byte(nil), slot.Value[:clen(slot.Value[:])]...),
				Timestamp: slot.Timestamp,
			})
		}
	})
	return status, nil
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

// checkKey runs the validations shared by all operations. They happen
// before the guard is taken and before any shared byte is read.
func (e *Engine) checkKey(key string) error {
	if e == nil || e.layout == nil {
		return ErrNotInitialized
	}
	if len(key) >= shm.KeySize {
		return ErrKeyTooLong
	}
	// The stored key is zero-terminated, an interior zero byte would
	// truncate it into a different key
	if strings.IndexByte(key, 0) >= 0 {
		return ErrInvalidKey
	}
	return nil
}

// lookup scans for an occupied slot holding key. Must be called under the
// guard. A zero-length key never matches: the first slot byte being zero
// marks the slot as free.
func (e *Engine) lookup(key string) *shm.Slot {
	if len(key) == 0 {
		return nil
	}
	for i := range e.layout.Table {
		slot := &e.layout.Table[i]
		if slot.Key[0] == 0 {
			continue
		}
		if slot.Key[len(key)] == 0 && bytes.Equal(slot.Key[:len(key)], []byte(key)) {
			return slot
		}
	}
	return nil
}

// writeKey stores key into the slot's key field, zero-padding the rest.
func writeKey(slot *shm.Slot, key string) {
	slot.Key = [shm.KeySize]byte{}
	copy(slot.Key[:], key)
}

// writeValue stores value and refreshes the slot timestamp.
func writeValue(slot *shm.Slot, value []byte) {
	slot.Value = [shm.ValueSize]byte{}
	copy(slot.Value[:], value)
	slot.Timestamp = time.Now().Unix()
}

// clen returns the length of a zero-terminated byte field.
func clen(b []byte) int {
	for i, c := range b {
		if c == 0 {
			return i
		}
	}
	return len(b)
}
