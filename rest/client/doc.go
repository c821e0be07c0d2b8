// Package client implements a HTTP client for the REST service layer.
//
// The client implements the store.IStore interface, so application code can
// talk to a remote shmKV server exactly like to a locally attached segment.
// Typed errors survive the HTTP round trip: the server encodes the return
// code by name in the error envelope and the client reconstructs the same
// store.Error from it.
//
// Multiple endpoints are supported; requests are spread round-robin and
// transport failures are retried with exponential backoff before the next
// endpoint is tried.
//
// One limitation of the HTTP binding: the keys "." and ".." cannot be
// addressed through the path routes (server-side path cleaning collapses
// them), so the client rejects them with InvalidKey. A directly attached
// segment has no such restriction.
package client
