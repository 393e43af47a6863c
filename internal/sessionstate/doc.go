// Package sessionstate holds the in-memory session: current user, the
// authenticated flag, the one-shot initialization gate and a generation
// counter, plus the subscriber list notified on every change.
//
// # Architecture boundaries
//
// State is written only by the root Client, which serializes each write
// with the matching token store write. Everything else reads snapshots.
//
// # What this package must NOT do
//
//   - Touch the token store or the network.
//   - Import goAuthClient (to avoid import cycles).
//   - Call subscribers while holding the state lock.
package sessionstate
