// Package authtest runs an in-process fake of the CRM backend for tests,
// the load test and local demos.
//
// The server implements the auth endpoints (login, refresh-token and the
// public password/OTP endpoints) and treats every path under /api/ as a
// protected resource. Access tokens are HS256 JWTs signed with [Secret];
// refresh tokens are opaque and rotate on every exchange.
//
// Tests steer the protocol with [Server.ExpireAccessTokens],
// [Server.RevokeRefreshTokens] and [Server.SetRefreshHook], and observe it
// through the call counters.
package authtest
