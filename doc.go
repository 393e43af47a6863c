// Package goAuthClient is the client-side authentication core of the CRM:
// it signs users in, keeps their token pair in a [tokenstore.Store],
// refreshes the access token transparently when the backend answers 401,
// and decides whether the signed-in user may open a route.
//
// One [Client] holds the session of one user. It is safe to call from
// multiple goroutines after [Builder.Build]; concurrent 401s share a
// single refresh exchange.
//
// # Architecture boundaries
//
// goAuthClient is the public surface. It exposes [Client], [Builder],
// [Config], and value types (LoginData, TokenPair, MetricsSnapshot). Flow
// orchestration, session state and audit dispatch live under internal/.
// The wire protocol lives in authapi, the retrying HTTP layer in transport,
// and route decisions in guard.
//
// # What this package must NOT do
//
//   - Expose Redis clients or store encodings in its public API.
//   - Perform network I/O during Build. Initialize is the first call that
//     reads the store.
//   - Let the in-memory session disagree with the store after a write.
package goAuthClient
