// Package cmd implements the command-line interface for the shmKV
// shared-memory key-value store. It provides a hierarchical command
// structure with operations for managing segments, running the server and
// interacting with a store as a client.
//
// The package is organized into several subpackages:
//
//   - kv: Commands for key-value store operations (get, set, del, status)
//     against a local segment or a remote server
//   - segment: Commands for the segment lifecycle (create, unlink, info)
//   - serve: Commands for starting and configuring the shmKV REST server
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See shmkv -help for a list of all commands.
package cmd
