// Package otel publishes goAuthClient counters through OpenTelemetry.
//
// Related counters share one instrument and are told apart by attribute:
// goauthclient.logins carries outcome=success|failure|not_authorized, and
// goauthclient.session.ends carries cause=logout|store_lost. Refresh
// latency is a cumulative gauge keyed by le. [New] also reports whether a
// user is signed in and how many route decisions are memoized.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate client state, including reading through to the token store.
package otel
