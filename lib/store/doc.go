// Package store defines the operation contract of the shared-memory
// key-value store and its unified error reporting. It is the abstraction
// layer every consumer programs against: the CLI, the REST server and the
// REST client all speak IStore.
//
// The package focuses on:
//   - A unified interface (IStore) for the four table operations plus the
//     local detach
//   - A structured error system using typed return codes
//
// Key Components:
//
//   - IStore Interface: Put, Get, Delete, Status and Close. All
//     implementations share this interface, so callers can switch between a
//     direct segment attachment and a remote REST connection without code
//     changes.
//
//   - Error System: every failure is a *Error carrying a RetCode. The codes
//     mirror the result kinds of the underlying engine and segment manager
//     (NotFound, KeyTooLong, ValueTooLong, StoreFull, InvalidLayout,
//     SystemResourceExhausted, AlreadyExists, NotInitialized, EmptyKey), so
//     bindings such as the REST server can map them mechanically to their
//     own idioms (HTTP status codes). CodeOf extracts the code from any
//     error without type assertions at the call site.
//
// Implementations:
//
//   - Shared-memory store (shmstore): binds the interface to a mapped
//     segment and the table engine. This is the real store; every process
//     on the machine attaching to the same segment name sees the same data.
//     Available in "github.com/ValentinKolb/shmKV/lib/store/shmstore".
//
//   - REST client (rest/client): speaks the same interface against a
//     remote shmKV server over HTTP, for processes that cannot (or should
//     not) map the segment themselves.
package store
