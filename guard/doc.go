// Package guard decides whether the current session may reach a route or
// gated feature.
//
// [Decider.Check] waits for session initialization, denies unauthenticated
// sessions with a sign-in redirect, and otherwise allows when any required
// role matches any user role, ignoring case. Decisions for authenticated
// sessions are memoized per (target, sorted required roles) for the life of
// the Decider.
//
// The cache is never invalidated when the session changes. A user who
// signs in after another user on the same Decider sees the previous user's
// cached decisions until [Decider.Purge] is called.
package guard
