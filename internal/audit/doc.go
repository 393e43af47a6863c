// Package audit delivers session lifecycle and guard events to sinks off
// the caller's goroutine.
//
// # Components
//
//   - [Sink]: event consumer (channel, JSON lines, slog, fan-out, no-op).
//   - [Dispatcher]: buffered relay that either drops or waits when full.
//   - [Event]: one audit record. It never carries credentials or tokens.
//
// # Architecture boundaries
//
// This package buffers and delivers. Deciding which events to emit belongs
// to the Client.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Import goAuthClient or any sibling internal package.
//   - Perform network I/O beyond what a caller-supplied Sink does.
package audit
