// Package middleware adapts route authorization to net/http.
//
// # Guards
//
//   - [Guard] protects handlers with a [goAuthClient.Client]'s decider and
//     page configuration.
//   - [RequireRoles] is the same middleware over any [Checker] and [Pages].
//
// A denied request is redirected with 303 See Other: signed-out sessions to
// the sign-in page carrying the requested path in its return parameter,
// signed-in sessions without a matching role to the unauthorized page.
// Allowed requests carry the [guard.Decision] in their context.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into decider calls. It does NOT
// implement role matching itself; all decisions are delegated to
// guard.Decider.
//
// # What this package must NOT do
//
//   - Parse tokens or read the token store.
//   - Call the client's navigator; the HTTP redirect is the navigation.
//   - Cache decisions beyond what the decider does.
package middleware
