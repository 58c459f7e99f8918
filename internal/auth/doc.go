// Package auth implements the client side of the OpenID Connect
// authorization code flow and the session lifecycle built on top of it.
//
// # Architecture
//
// The package provides:
//   - Provider endpoint discovery via OIDC well-known metadata, with a
//     cached, single-flight fetch
//   - A Manager that exchanges authorization codes for tokens, derives the
//     session state from the persisted record, and implements logout
//   - A Bootstrapper that decides, from the persisted record and the
//     current URL, whether startup should exchange a code, redirect to the
//     provider, or do nothing
//   - An expiry Watchdog that latches a monotonic expired flag once the
//     token's recorded expiry passes
//   - A local CallbackServer that receives the provider redirect during
//     CLI login
//
// # Session states
//
// The Manager never stores its state directly. It derives one of
// Unauthenticated, Exchanging, Authenticated, or Failed from the session
// record every time it is asked, so a record written by another process is
// reflected immediately.
//
// # Error handling
//
// Code exchange failures never escape as Go errors. LoginWithCode retries
// the token endpoint up to three times and, when all attempts fail, writes
// the failure message into the session record where the UI reads it.
package auth
