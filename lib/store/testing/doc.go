// Package testing provides a reusable conformance suite for store.IStore
// implementations. Both the shared-memory store and the REST client are run
// against the same suite, so every binding proves the same contract: the
// table semantics (round trip, overwrite, delete, capacity), the counter
// invariants (version, entry count) and the typed error codes.
package testing
