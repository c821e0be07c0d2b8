// Package rest provides the HTTP service layer of the shared-memory
// key-value store. It is a thin binding: every route invokes one store
// operation and maps its typed return code to an HTTP status, nothing more.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures and utilities used across the service
//     layer, including the JSON API models, the return-code to HTTP status
//     mapping, configuration structures, and logging.
//
//   - server: The HTTP server fronting one or more attached segments,
//     including request metrics and logging middleware.
//
//   - client: An HTTP client implementing store.IStore, allowing
//     applications to use a remote shmKV server exactly like a locally
//     attached segment.
package rest
