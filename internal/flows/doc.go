// Package flows contains pure-function orchestrators for every Client
// session operation.
//
// Each flow function (RunLogin, RunRefresh, RunHydrate, RunLogout) accepts a
// typed dependency struct and returns a result carrying a failure kind. The
// root Client maps failure kinds to normalized errors, audit events and
// metrics.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the auth API, the token store and the
// session state through function hooks. They do NOT own any of these
// resources; ownership stays with the Client.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goAuthClient (to avoid import cycles).
//   - Perform I/O directly. All I/O is mediated through dependency hooks.
package flows
