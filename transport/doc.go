// Package transport attaches bearer tokens to outgoing API calls and
// recovers from expired access tokens.
//
// [Authenticator] is an http.RoundTripper. On a 401 from a protected
// endpoint it joins or starts a single refresh cycle, then replays the
// original request once with the new token. Concurrent 401s share one
// refresh call and one outcome.
//
// [Client] wraps an http.Client using the Authenticator and turns non-2xx
// responses into *apperr.Error values.
//
// # What this package must NOT do
//
//   - Write the token store. Tokens are read through the Token hook and
//     renewed through the Refresh hook, both owned by the session manager.
//   - Retry anything other than the single post-refresh replay.
package transport
