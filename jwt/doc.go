// Package jwt reads role claims out of access tokens and, for test servers
// and tooling, issues them.
//
// Clients usually cannot verify the server's signature, so [Roles] and
// [ExpiresAt] parse without verification unless a [Manager] configured with
// the server's public key (or shared secret) is supplied.
package jwt
