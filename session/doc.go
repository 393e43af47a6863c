// Package session holds the public session model: the [User] identity
// snapshot persisted next to the tokens, the read-only [Snapshot] of the
// in-memory session, and the [Change] notifications delivered to
// subscribers.
//
// # Architecture boundaries
//
// This package owns data shapes only. Mutation of the live session is
// reserved to the root Client; storage lives in tokenstore.
//
// # What this package must NOT do
//
//   - Perform I/O.
//   - Import the root package, tokenstore, transport, or guard.
package session
