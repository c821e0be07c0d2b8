// Package shmstore binds the store.IStore contract to a mapped
// shared-memory segment.
//
// A shmstore is a thin translation layer: the segment manager (lib/shm)
// owns the mapping lifecycle, the table engine (lib/engine) owns the
// operations, and this package converts their sentinel errors into the
// typed store.Error codes that bindings consume.
//
// Three constructors cover the lifecycle policies a caller can want:
//
//   - CreateStore: be the designated creator, fail if the segment exists
//   - NewStore: attach to an existing segment, fail if it does not
//   - OpenOrCreateStore: the common service policy "open, and create if
//     not found", with a short exponential backoff to absorb the race of
//     two processes creating simultaneously
//
// Unlinking the segment name is deliberately NOT part of Close: detaching
// is a local operation, removal from the OS namespace is a global one that
// by convention only the creator performs (see Unlink).
package shmstore
