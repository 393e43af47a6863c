// Package permission normalizes role names and holds the allow-list of roles
// that may sign in to the CRM client.
//
// # Architecture boundaries
//
// This package is a pure in-memory data structure with no I/O. Role values
// arrive here already extracted from token claims or the user payload; the
// jwt and session packages own that extraction.
//
// # What this package must NOT do
//
//   - Access Redis, files, or the network.
//   - Import goAuthClient, jwt, or tokenstore.
//   - Cache decisions. Memoization lives in the guard package.
package permission
