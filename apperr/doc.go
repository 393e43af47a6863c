// Package apperr defines the normalized error taxonomy of the auth core.
//
// Every failure that leaves the session manager or the request
// authenticator is an [*Error] carrying a stable [Key] and a short
// human-readable message. Raw transport errors never cross that boundary.
//
// # Matching
//
// Errors compare by key: errors.Is(err, apperr.ErrUnauthorized) is true for
// any *Error whose Key is UNAUTHORIZED, regardless of message or cause.
//
// # What this package must NOT do
//
//   - Perform I/O.
//   - Import any other package of this module.
package apperr
