package store

import "fmt"

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IStore is the generic interface for interacting with the shared-memory
// key-value store. It is the contract consumed by every binding (CLI, REST
// server, REST client). All write operations return only an error (nil on
// success), while read operations return the requested data along with an
// error (nil on success).
type IStore interface {
	// Put inserts or updates a key-value pair.
	Put(key string, value []byte) (err error)
	// Get returns a copy of the value and the last-modified unix timestamp
	// for a key.
	Get(key string) (value []byte, timestamp int64, err error)
	// Delete removes a key-value pair.
	Delete(key string) (err error)
	// Status returns a consistent snapshot of the store: version counter,
	// entry count and all occupied entries in slot order.
	Status() (status Status, err error)
	// Close detaches the store from the calling process. Operations on a
	// closed store fail with RetCNotInitialized. Close is idempotent.
	Close() (err error)
}

// Entry is one key-value pair as reported by Status.
type Entry struct {
	Key       string `json:"key"`
	Value     []byte `json:"value"`
	Timestamp int64  `json:"timestamp"`
}

// Status is a read-only diagnostic snapshot of the store.
type Status struct {
	Version    uint32  `json:"version"`
	EntryCount uint32  `json:"entry_count"`
	Capacity   int     `json:"max_entries"`
	Entries    []Entry `json:"entries"`
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("KVStoreError (code %s): %s", e.Code, e.Msg)
}

// NewError creates a new Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// CodeOf extracts the RetCode from an error returned by an IStore
// implementation. Errors of other types report RetCInternalError; nil
// reports RetCSuccess.
func CodeOf(err error) RetCode {
	if err == nil {
		return RetCSuccess
	}
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return RetCInternalError
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess           RetCode = iota // 0: Command executed successfully.
	RetCInternalError                    // 1: Command failed due to an internal error.
	RetCNotInitialized                   // 2: The store is not attached to a segment.
	RetCEmptyKey                         // 3: The key is empty (collides with the free-slot sentinel).
	RetCInvalidKey                       // 4: The key contains a zero byte (would be stored truncated).
	RetCKeyTooLong                       // 5: The key exceeds the fixed key capacity.
	RetCValueTooLong                     // 6: The value exceeds the fixed value capacity.
	RetCNotFound                         // 7: No entry (or no segment) with that name exists.
	RetCStoreFull                        // 8: All slots are occupied and the key is new.
	RetCInvalidLayout                    // 9: The segment was created by an incompatible build.
	RetCResourceExhausted                // 10: The OS failed to allocate or map the segment.
	RetCAlreadyExists                    // 11: A segment of that name already exists.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCNotInitialized:
		return "NotInitialized"
	case RetCEmptyKey:
		return "EmptyKey"
	case RetCInvalidKey:
		return "InvalidKey"
	case RetCKeyTooLong:
		return "KeyTooLong"
	case RetCValueTooLong:
		return "ValueTooLong"
	case RetCNotFound:
		return "NotFound"
	case RetCStoreFull:
		return "StoreFull"
	case RetCInvalidLayout:
		return "InvalidLayout"
	case RetCResourceExhausted:
		return "SystemResourceExhausted"
	case RetCAlreadyExists:
		return "AlreadyExists"
	default:
		return "Unknown"
	}
}
