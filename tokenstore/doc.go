// Package tokenstore persists the access token, refresh token and user
// payload of the current session in a durable key-value store.
//
// # Contract
//
// Missing data is never an error: [Store.Get] returns an empty [Record].
// Errors are reserved for backend failures. [Store.Set] writes all three
// fields atomically and [Store.Clear] removes them atomically.
//
// # Backends
//
//   - [MemoryStore]: process-local, for tests and short-lived tools.
//   - [FileStore]: one JSON document written via temp-file + rename.
//   - [RedisStore]: three keys written in a MULTI/EXEC pipeline.
//
// # What this package must NOT do
//
//   - Decide whether a session is valid (policy lives in the root Client).
//   - Import the root package, transport, or guard.
package tokenstore
