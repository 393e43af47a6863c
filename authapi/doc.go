// Package authapi calls the CRM backend's authentication endpoints: login,
// token refresh and the public account-recovery endpoints.
//
// Every method returns an *apperr.Error on failure. Payloads may arrive bare
// or wrapped in a {"data": ...} envelope; error bodies contribute their
// "message", "error" or "title" field as the error message.
//
// # What this package must NOT do
//
//   - Read or write the token store.
//   - Attach bearer tokens. Every endpoint here is public.
package authapi
